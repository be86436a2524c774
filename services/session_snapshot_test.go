package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v80"
)

func TestParseSession_Defaults(t *testing.T) {
	snap := ParseSession(&stripe.CheckoutSession{ID: " cs_1 "}, "KRW")

	assert.Equal(t, "cs_1", snap.ID)
	assert.False(t, snap.Paid)
	assert.Equal(t, "krw", snap.Currency)
	assert.True(t, snap.ShippingFee.IsZero())
	assert.Empty(t, snap.PaymentIntentID)
	assert.Empty(t, snap.Shipping.Name)
	assert.NotNil(t, snap.Metadata)
	assert.NotEmpty(t, snap.Raw)
}

func TestParseSession_CustomerDetailsWinOverMetadata(t *testing.T) {
	sess := &stripe.CheckoutSession{
		ID:            "cs_2",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Currency:      stripe.CurrencyUSD,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_2"},
		Metadata: map[string]string{
			MetadataShippingName:  "Meta Name",
			MetadataShippingPhone: "010-0000-0000",
			MetadataZipcode:       "04524",
			MetadataMemo:          "door code 1234",
			MetadataShippingFee:   "4.50",
		},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name:  "Stripe Name",
			Email: "buyer@example.com",
			Address: &stripe.Address{
				Line1:      "1 Main St",
				Line2:      "Apt 2",
				City:       "Springfield",
				PostalCode: "12345",
				Country:    "US",
			},
		},
	}

	snap := ParseSession(sess, "krw")

	assert.True(t, snap.Paid)
	assert.Equal(t, "usd", snap.Currency)
	assert.Equal(t, "pi_2", snap.PaymentIntentID)
	assert.True(t, snap.ShippingFee.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, "Stripe Name", snap.Shipping.Name)
	assert.Equal(t, "buyer@example.com", snap.Shipping.Email)
	assert.Equal(t, "010-0000-0000", snap.Shipping.Phone)
	assert.Equal(t, "1 Main St, Springfield, US", snap.Shipping.Address)
	assert.Equal(t, "Apt 2", snap.Shipping.DetailAddress)
	assert.Equal(t, "12345", snap.Shipping.Zipcode)
	assert.Equal(t, "door code 1234", snap.Shipping.Memo)
}

func TestParseSession_BadShippingFeeIsZero(t *testing.T) {
	snap := ParseSession(&stripe.CheckoutSession{ID: "cs_3", Metadata: map[string]string{MetadataShippingFee: "-1"}}, "krw")
	assert.True(t, snap.ShippingFee.IsZero())

	snap = ParseSession(&stripe.CheckoutSession{ID: "cs_3", Metadata: map[string]string{MetadataShippingFee: "free"}}, "krw")
	assert.True(t, snap.ShippingFee.IsZero())
}
