package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is the durable purchase record. Amounts are fixed at creation; only
// Status changes afterwards.
type Order struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber           string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	UserID                string          `gorm:"type:varchar(64);index" json:"user_id"`
	Status                OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippingName          string          `gorm:"type:varchar(100)" json:"shipping_name"`
	ShippingPhone         string          `gorm:"type:varchar(30)" json:"shipping_phone"`
	ShippingEmail         string          `gorm:"type:varchar(255)" json:"shipping_email"`
	ShippingAddress       string          `gorm:"type:varchar(255)" json:"shipping_address"`
	ShippingDetailAddress string          `gorm:"type:varchar(255)" json:"shipping_detail_address"`
	ShippingZipcode       string          `gorm:"type:varchar(20)" json:"shipping_zipcode"`
	Memo                  string          `gorm:"type:text" json:"memo,omitempty"`
	TotalAmount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	ShippingFee           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_fee"`
	DiscountAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	FinalAmount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"final_amount"`
	Currency              string          `gorm:"type:varchar(3);not null" json:"currency"`
	Items                 []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt             time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the product name and unit price at purchase time, so
// later catalog edits never change it.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity    int             `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Total is the line total, unit price times quantity.
func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderNumber returns an order number of the form ORD-YYYYMMDD-HHMMSS-XXXXXXXX.
func NewOrderNumber(now time.Time) string {
	return "ORD-" + now.Format("20060102-150405") + "-" + strings.ToUpper(uuid.New().String()[:8])
}
