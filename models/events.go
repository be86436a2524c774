package models

import "time"

const (
	EventOrderConfirmed  = "order_confirmed"
	EventOrderStatus     = "order_status_changed"
	EventRefundCompleted = "refund_completed"
)

// OrderEvent is published to SNS when an order is created or changes status.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// RefundEvent is published to SNS when a refund has been paid out.
type RefundEvent struct {
	Type      string    `json:"type"`
	RefundID  string    `json:"refund_id"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}
