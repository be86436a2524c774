package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimz119/project-saeum/internal/testutil"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, store *repository.Store, slug string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     slug,
		Slug:     slug,
		SKU:      "SKU-" + slug,
		Price:    decimal.NewFromInt(100),
		Stock:    stock,
		IsActive: true,
	}
	_, err := store.Products.UpsertProduct(context.Background(), p)
	require.NoError(t, err)
	return p
}

func TestSQLite_DecrementStockNeverGoesNegative(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()
	p := newProduct(t, store, "a", 3)

	require.NoError(t, store.Products.DecrementStock(ctx, p.ID, 2))
	assert.ErrorIs(t, store.Products.DecrementStock(ctx, p.ID, 2), repository.ErrInsufficientStock)

	got, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestSQLite_DuplicateTransactionIDIsUniqueViolation(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()

	first := &models.Payment{OrderID: uuid.New(), Method: "stripe", Status: models.PaymentStatusCompleted, TransactionID: "cs_1", Amount: decimal.NewFromInt(1), Currency: "krw"}
	require.NoError(t, store.Payments.Create(ctx, first))

	second := &models.Payment{OrderID: uuid.New(), Method: "stripe", Status: models.PaymentStatusCompleted, TransactionID: "cs_1", Amount: decimal.NewFromInt(1), Currency: "krw"}
	err := store.Payments.Create(ctx, second)
	assert.True(t, repository.IsUniqueViolation(err), "got %v", err)
}

func TestSQLite_TransactionRollsBack(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()
	p := newProduct(t, store, "b", 5)
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Products.DecrementStock(ctx, p.ID, 5); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestSQLite_FindByIDsSkipsSoftDeleted(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	ctx := context.Background()
	live := newProduct(t, store, "live", 1)
	gone := newProduct(t, store, "gone", 1)
	require.NoError(t, db.Delete(&models.Product{}, "id = ?", gone.ID).Error)

	products, err := store.Products.FindByIDs(ctx, []uuid.UUID{live.ID, gone.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, live.ID, products[0].ID)
}

func TestSQLite_UpsertProductIsIdempotent(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()

	tag := &models.Tag{Name: "Best", Slug: "best"}
	require.NoError(t, store.Products.UpsertTag(ctx, tag))

	p := &models.Product{Name: "CHIMI 01", Slug: "chimi-01", SKU: "CHIMI-01-BLK", Price: decimal.NewFromInt(185000), Stock: 10, IsActive: true, Tags: []models.Tag{*tag}}
	created, err := store.Products.UpsertProduct(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	again := &models.Product{Name: "CHIMI 01", Slug: "chimi-01", SKU: "CHIMI-01-BLK", Price: decimal.NewFromInt(1), Stock: 1, IsActive: true}
	created, err = store.Products.UpsertProduct(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
	assert.True(t, again.Price.Equal(decimal.NewFromInt(185000)))
}

func TestSQLite_CartSetItemUpserts(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()
	p := newProduct(t, store, "c", 10)

	cart, err := store.Carts.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	same, err := store.Carts.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, same.ID)

	require.NoError(t, store.Carts.SetItem(ctx, cart.ID, p.ID, 1))
	require.NoError(t, store.Carts.SetItem(ctx, cart.ID, p.ID, 4))

	loaded, err := store.Carts.FindByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 4, loaded.Items[0].Quantity)
	require.NotNil(t, loaded.Items[0].Product)
	assert.Equal(t, "c", loaded.Items[0].Product.Name)

	require.NoError(t, store.Carts.RemoveItem(ctx, cart.ID, p.ID))
	assert.True(t, repository.IsNotFound(store.Carts.RemoveItem(ctx, cart.ID, p.ID)))
}

func TestSQLite_OrdersPaginationAndRecent(t *testing.T) {
	store := repository.NewStore(testutil.NewDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o := &models.Order{
			OrderNumber: models.NewOrderNumber(time.Now()),
			UserID:      "user-1",
			Status:      models.OrderStatusConfirmed,
			TotalAmount: decimal.NewFromInt(100), ShippingFee: decimal.Zero, DiscountAmount: decimal.Zero, FinalAmount: decimal.NewFromInt(100),
			Currency: "krw",
			Items:    []models.OrderItem{{ProductID: uuid.New(), ProductName: "x", Quantity: 1, Price: decimal.NewFromInt(100)}},
		}
		require.NoError(t, store.Orders.Create(ctx, o))
	}

	orders, total, err := store.Orders.FindByUser(ctx, "user-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 1)

	_, total, err = store.Orders.FindByUser(ctx, "someone-else", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	recent, err := store.Orders.FindLatestByUserSince(ctx, "user-1", time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-1", recent.UserID)

	_, err = store.Orders.FindLatestByUserSince(ctx, "user-1", time.Now().Add(time.Minute))
	assert.True(t, repository.IsNotFound(err))
}
