package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

const PaymentMethodStripe = "stripe"

// Payment is the ledger entry for one reconciled checkout session. The unique
// index on transaction_id is what makes reconciliation exactly-once.
type Payment struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID               uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	UserID                string          `gorm:"type:varchar(64);index" json:"user_id"`
	Method                string          `gorm:"type:varchar(20);not null" json:"method"`
	Status                PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	TransactionID         string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"transaction_id"`
	StripePaymentIntentID *string         `gorm:"type:varchar(255);index" json:"stripe_payment_intent_id,omitempty"`
	Amount                decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency              string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`
	GatewayPayload        *string         `gorm:"type:jsonb" json:"-"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type RefundStatus string

const (
	RefundStatusRequested  RefundStatus = "requested"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusRejected   RefundStatus = "rejected"
)

// Refund is a customer request to return part or all of a payment.
type Refund struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"payment_id"`
	OrderID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	UserID         string          `gorm:"type:varchar(64);index" json:"user_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Reason         string          `gorm:"type:text" json:"reason"`
	Status         RefundStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	StripeRefundID *string         `gorm:"type:varchar(255)" json:"stripe_refund_id,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	AdminMemo      string          `gorm:"type:text" json:"admin_memo,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Outstanding reports whether the refund still counts against the refundable balance.
func (r Refund) Outstanding() bool {
	return r.Status != RefundStatusRejected
}

type CreateRefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" binding:"required,max=1000"`
}

type ReviewRefundRequest struct {
	AdminMemo string `json:"admin_memo" binding:"max=1000"`
}
