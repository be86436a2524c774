package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=99"`
}

type ShippingInfo struct {
	Name          string `json:"shipping_name" binding:"max=100"`
	Phone         string `json:"shipping_phone" binding:"max=30"`
	Email         string `json:"shipping_email" binding:"omitempty,email,max=255"`
	Address       string `json:"shipping_address" binding:"max=255"`
	DetailAddress string `json:"shipping_detail_address" binding:"max=255"`
	Zipcode       string `json:"shipping_zipcode" binding:"max=20"`
	Memo          string `json:"memo" binding:"max=300"`
}

// CreateCheckoutSessionRequest lists the items to buy. When Items is empty the
// caller's stored cart is used instead.
type CreateCheckoutSessionRequest struct {
	Items    []CheckoutItemRequest `json:"items" binding:"omitempty,dive"`
	Shipping ShippingInfo          `json:"shipping"`
}

type CheckoutSessionResponse struct {
	SessionID   string          `json:"session_id"`
	CheckoutURL string          `json:"checkout_url"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
}

type PaymentIntentResponse struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Total           decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required,startswith=pi_,max=255"`
}

// LineItemSnapshot is one purchased line as carried in checkout session
// metadata. UnitPrice is the price quoted when the session was created; it is
// nil only for sessions created before prices were recorded.
type LineItemSnapshot struct {
	ProductID uuid.UUID        `json:"p" validate:"required"`
	Quantity  int              `json:"q" validate:"min=1"`
	UnitPrice *decimal.Decimal `json:"u,omitempty"`
}

// UnmarshalJSON accepts both the compact keys and the long form
// {"product_id","quantity","price"} written by older checkout pages.
func (l *LineItemSnapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		P         *uuid.UUID       `json:"p"`
		Q         *int             `json:"q"`
		U         *decimal.Decimal `json:"u"`
		ProductID *uuid.UUID       `json:"product_id"`
		Quantity  *int             `json:"quantity"`
		Price     *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = LineItemSnapshot{}
	switch {
	case raw.P != nil:
		l.ProductID = *raw.P
	case raw.ProductID != nil:
		l.ProductID = *raw.ProductID
	}
	switch {
	case raw.Q != nil:
		l.Quantity = *raw.Q
	case raw.Quantity != nil:
		l.Quantity = *raw.Quantity
	}
	if raw.U != nil {
		l.UnitPrice = raw.U
	} else {
		l.UnitPrice = raw.Price
	}
	return nil
}

// PriceOr returns the snapshot unit price, or fallback when none was recorded.
func (l LineItemSnapshot) PriceOr(fallback decimal.Decimal) decimal.Decimal {
	if l.UnitPrice != nil {
		return *l.UnitPrice
	}
	return fallback
}

type OrderSummaryItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// OrderSummary is what checkout endpoints return. It is built only from stored
// rows, so every call for the same order yields the same content.
type OrderSummary struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	Status         OrderStatus        `json:"status"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	ShippingFee    decimal.Decimal    `json:"shipping_fee"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	FinalAmount    decimal.Decimal    `json:"final_amount"`
	Currency       string             `json:"currency"`
	CreatedAt      time.Time          `json:"created_at"`
	Items          []OrderSummaryItem `json:"items"`
}

func NewOrderSummary(o *Order) *OrderSummary {
	s := &OrderSummary{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		TotalAmount:    o.TotalAmount,
		ShippingFee:    o.ShippingFee,
		DiscountAmount: o.DiscountAmount,
		FinalAmount:    o.FinalAmount,
		Currency:       o.Currency,
		CreatedAt:      o.CreatedAt,
		Items:          make([]OrderSummaryItem, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		s.Items = append(s.Items, OrderSummaryItem{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     item.Total(),
		})
	}
	return s
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,oneof=pending confirmed preparing shipped delivered cancelled"`
}
