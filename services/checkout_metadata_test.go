package services

import (
	"strings"
	"testing"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotLines(n int) []models.LineItemSnapshot {
	items := make([]models.LineItemSnapshot, n)
	for i := range items {
		price := decimal.NewFromInt(int64(1000 * (i + 1)))
		items[i] = models.LineItemSnapshot{ProductID: uuid.New(), Quantity: i%3 + 1, UnitPrice: &price}
	}
	return items
}

func TestEncodeLineItems_ChunksLongLists(t *testing.T) {
	items := snapshotLines(20)

	md, err := EncodeLineItems(items)
	require.NoError(t, err)

	assert.NotEqual(t, "1", md["items_n"])
	for k, v := range md {
		assert.LessOrEqual(t, len(v), 500, k)
	}

	decoded, err := DecodeLineItems(md)
	require.NoError(t, err)
	require.Len(t, decoded, len(items))
	for i := range items {
		assert.Equal(t, items[i].ProductID, decoded[i].ProductID)
		assert.Equal(t, items[i].Quantity, decoded[i].Quantity)
		assert.True(t, items[i].UnitPrice.Equal(*decoded[i].UnitPrice))
	}
}

func TestEncodeLineItems_RejectsEmptyAndHugeLists(t *testing.T) {
	_, err := EncodeLineItems(nil)
	assert.Error(t, err)

	_, err = EncodeLineItems(snapshotLines(400))
	assert.Error(t, err)
}

func TestDecodeLineItems_Invalid(t *testing.T) {
	id := uuid.NewString()
	cases := map[string]map[string]string{
		"no items":           {},
		"blank legacy":       {"items": "  "},
		"not json":           {"items": "{"},
		"empty list":         {"items": "[]"},
		"zero quantity":      {"items": `[{"p":"` + id + `","q":0}]`},
		"missing product":    {"items": `[{"q":1}]`},
		"negative price":     {"items": `[{"p":"` + id + `","q":1,"u":"-5"}]`},
		"bad count":          {"items_n": "x"},
		"missing part":       {"items_n": "2", "items_0": `[{"p":"` + id + `","q":1}]`},
		"count out of range": {"items_n": "0"},
	}
	for name, md := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeLineItems(md)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCheckoutItems)
		})
	}
}

func TestDecodeLineItems_LegacyLongKeys(t *testing.T) {
	id := uuid.New()
	items, err := DecodeLineItems(map[string]string{
		"items": `[{"product_id":"` + id.String() + `","quantity":2,"price":"15000.00"}]`,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ProductID)
	assert.True(t, items[0].PriceOr(decimal.Zero).Equal(decimal.NewFromInt(15000)))
}

func TestEncodeLineItems_IsCompact(t *testing.T) {
	md, err := EncodeLineItems(snapshotLines(1))
	require.NoError(t, err)
	assert.Equal(t, "1", md["items_n"])
	assert.True(t, strings.HasPrefix(md["items_0"], `[{"p":"`))
}
