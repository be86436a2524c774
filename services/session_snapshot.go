package services

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
)

// SessionSnapshot is the part of a Stripe checkout session (or payment
// intent) reconciliation needs, with every optional field already defaulted.
// ID is the transaction id the payment is recorded under.
type SessionSnapshot struct {
	ID              string
	Paid            bool
	Status          string
	PaymentIntentID string
	Currency        string
	UserID          string
	ShippingFee     decimal.Decimal
	Shipping        ShippingDetails
	Metadata        map[string]string
	Raw             []byte
}

type ShippingDetails struct {
	Name          string
	Phone         string
	Email         string
	Address       string
	DetailAddress string
	Zipcode       string
	Memo          string
}

// ParseSession maps sess into a SessionSnapshot. Customer details collected by
// Stripe win over the shipping fields the shop stored in metadata.
func ParseSession(sess *stripe.CheckoutSession, defaultCurrency string) SessionSnapshot {
	snap := snapshotFromMetadata(sess.ID, sess.Metadata, string(sess.Currency), defaultCurrency)
	snap.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	snap.Status = string(sess.PaymentStatus)
	if sess.PaymentIntent != nil {
		snap.PaymentIntentID = sess.PaymentIntent.ID
	}

	if cd := sess.CustomerDetails; cd != nil {
		snap.Shipping.Name = firstNonEmpty(cd.Name, snap.Shipping.Name)
		snap.Shipping.Email = firstNonEmpty(cd.Email, snap.Shipping.Email)
		snap.Shipping.Phone = firstNonEmpty(cd.Phone, snap.Shipping.Phone)
		snap.Shipping.applyAddress(cd.Address)
	}
	if snap.Shipping.Email == "" && sess.CustomerEmail != "" {
		snap.Shipping.Email = sess.CustomerEmail
	}

	if sess.LastResponse != nil && len(sess.LastResponse.RawJSON) > 0 {
		snap.Raw = sess.LastResponse.RawJSON
	} else if raw, err := json.Marshal(sess); err == nil {
		snap.Raw = raw
	}
	return snap
}

// ParsePaymentIntent maps a payment intent created by CreatePaymentIntent.
// The intent id doubles as the transaction id.
func ParsePaymentIntent(pi *stripe.PaymentIntent, defaultCurrency string) SessionSnapshot {
	snap := snapshotFromMetadata(pi.ID, pi.Metadata, string(pi.Currency), defaultCurrency)
	snap.Paid = pi.Status == stripe.PaymentIntentStatusSucceeded
	snap.Status = string(pi.Status)
	snap.PaymentIntentID = snap.ID

	if sd := pi.Shipping; sd != nil {
		snap.Shipping.Name = firstNonEmpty(sd.Name, snap.Shipping.Name)
		snap.Shipping.Phone = firstNonEmpty(sd.Phone, snap.Shipping.Phone)
		snap.Shipping.applyAddress(sd.Address)
	}
	snap.Shipping.Email = firstNonEmpty(snap.Shipping.Email, pi.ReceiptEmail)

	if pi.LastResponse != nil && len(pi.LastResponse.RawJSON) > 0 {
		snap.Raw = pi.LastResponse.RawJSON
	} else if raw, err := json.Marshal(pi); err == nil {
		snap.Raw = raw
	}
	return snap
}

func snapshotFromMetadata(id string, md map[string]string, currency, defaultCurrency string) SessionSnapshot {
	if md == nil {
		md = map[string]string{}
	}
	snap := SessionSnapshot{
		ID:          strings.TrimSpace(id),
		Currency:    strings.ToLower(currency),
		UserID:      md[MetadataUserID],
		ShippingFee: parseAmount(md[MetadataShippingFee]),
		Metadata:    md,
		Shipping: ShippingDetails{
			Name:          md[MetadataShippingName],
			Phone:         md[MetadataShippingPhone],
			Email:         md[MetadataShippingEmail],
			Address:       md[MetadataAddress],
			DetailAddress: md[MetadataDetailAddress],
			Zipcode:       md[MetadataZipcode],
			Memo:          md[MetadataMemo],
		},
	}
	if snap.Currency == "" {
		snap.Currency = strings.ToLower(defaultCurrency)
	}
	return snap
}

func (d *ShippingDetails) applyAddress(a *stripe.Address) {
	if a == nil || a.Line1 == "" {
		return
	}
	d.Address = joinNonEmpty(", ", a.Line1, a.City, a.State, a.Country)
	d.DetailAddress = firstNonEmpty(a.Line2, d.DetailAddress)
	d.Zipcode = firstNonEmpty(a.PostalCode, d.Zipcode)
}

// parseAmount reads a decimal from metadata; anything unparseable or negative is zero.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
