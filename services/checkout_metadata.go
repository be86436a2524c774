package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"

	"github.com/go-playground/validator/v10"
)

// Stripe limits metadata to 50 keys with values of at most 500 characters, so
// the item snapshot is split across items_0..items_{n-1}.
const (
	metadataItemsCount   = "items_n"
	metadataItemsPrefix  = "items_"
	metadataLegacyItems  = "items"
	metadataValueMaxLen  = 500
	metadataMaxItemParts = 40
)

// Metadata keys written at session creation.
const (
	MetadataUserID        = "user_id"
	MetadataShippingFee   = "shipping_fee"
	MetadataShippingName  = "shipping_name"
	MetadataShippingPhone = "shipping_phone"
	MetadataShippingEmail = "shipping_email"
	MetadataAddress       = "shipping_address"
	MetadataDetailAddress = "shipping_detail_address"
	MetadataZipcode       = "shipping_zipcode"
	MetadataMemo          = "memo"
	MetadataFlow          = "flow"
)

// FlowPaymentIntent marks payment intents created by CreatePaymentIntent.
// Intents behind a checkout session never carry it.
const FlowPaymentIntent = "payment_intent"

var validate = validator.New()

// EncodeLineItems serializes the item snapshot into metadata entries.
func EncodeLineItems(items []models.LineItemSnapshot) (map[string]string, error) {
	if len(items) == 0 {
		return nil, apperrors.BadRequest("No items to check out")
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	// the JSON is pure ASCII (uuids, digits), so byte slicing is safe
	s := string(raw)
	out := make(map[string]string)
	n := 0
	for len(s) > 0 {
		end := metadataValueMaxLen
		if end > len(s) {
			end = len(s)
		}
		out[metadataItemsPrefix+strconv.Itoa(n)] = s[:end]
		s = s[end:]
		n++
	}
	if n > metadataMaxItemParts {
		return nil, apperrors.BadRequest("Too many items for one checkout")
	}
	out[metadataItemsCount] = strconv.Itoa(n)
	return out, nil
}

// DecodeLineItems reverses EncodeLineItems. It also reads the single "items"
// key used by older sessions. Any malformed or empty list yields
// ErrInvalidCheckoutItems.
func DecodeLineItems(metadata map[string]string) ([]models.LineItemSnapshot, error) {
	raw, err := joinItemParts(metadata)
	if err != nil {
		return nil, apperrors.ErrInvalidCheckoutItems.Wrap(err)
	}

	var items []models.LineItemSnapshot
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, apperrors.ErrInvalidCheckoutItems.Wrap(err)
	}
	if len(items) == 0 {
		return nil, apperrors.ErrInvalidCheckoutItems
	}
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, apperrors.ErrInvalidCheckoutItems.Wrap(fmt.Errorf("item %d: %w", i, err))
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return nil, apperrors.ErrInvalidCheckoutItems.Wrap(fmt.Errorf("item %d: negative price", i))
		}
	}
	return items, nil
}

func joinItemParts(metadata map[string]string) (string, error) {
	countStr, ok := metadata[metadataItemsCount]
	if !ok {
		legacy, ok := metadata[metadataLegacyItems]
		if !ok || strings.TrimSpace(legacy) == "" {
			return "", fmt.Errorf("no items in metadata")
		}
		return legacy, nil
	}

	n, err := strconv.Atoi(countStr)
	if err != nil || n <= 0 || n > metadataMaxItemParts {
		return "", fmt.Errorf("invalid %s %q", metadataItemsCount, countStr)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		part, ok := metadata[metadataItemsPrefix+strconv.Itoa(i)]
		if !ok {
			return "", fmt.Errorf("missing items part %d of %d", i, n)
		}
		b.WriteString(part)
	}
	return b.String(), nil
}
