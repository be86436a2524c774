package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dimz119/project-saeum/internal/testutil"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]*stripe.CheckoutSession
	intents   map[string]*stripe.PaymentIntent
	getCalls  int
	getErr    error
	created   []*stripe.CheckoutSessionParams
	createdPI []*stripe.PaymentIntentParams
	createErr error
	refunds   []fakeRefundCall
	refundErr error
}

type fakeRefundCall struct {
	paymentIntentID string
	amount          int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: map[string]*stripe.CheckoutSession{},
		intents:  map[string]*stripe.PaymentIntent{},
	}
}

func (g *fakeGateway) putIntent(pi *stripe.PaymentIntent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[pi.ID] = pi
}

func (g *fakeGateway) put(sess *stripe.CheckoutSession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sess.ID] = sess
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, params)
	return &stripe.CheckoutSession{ID: "cs_test_created", URL: "https://checkout.stripe.test/cs_test_created"}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	sess, ok := g.sessions[sessionID]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout session"}
	}
	return sess, nil
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.createdPI = append(g.createdPI, params)
	return &stripe.PaymentIntent{ID: "pi_test_created", ClientSecret: "pi_test_created_secret_abc"}, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	pi, ok := g.intents[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such payment_intent"}
	}
	return pi, nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, paymentIntentID string, amount int64, _ map[string]string) (*stripe.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, fakeRefundCall{paymentIntentID: paymentIntentID, amount: amount})
	return &stripe.Refund{ID: "re_test_1", Status: stripe.RefundStatusSucceeded}, nil
}

func (g *fakeGateway) ParseWebhook(*http.Request) (stripe.Event, error) {
	return stripe.Event{}, errors.New("not supported")
}

type fakeSNS struct {
	mu       sync.Mutex
	topics   []string
	messages [][]byte
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topicArn)
	f.messages = append(f.messages, append([]byte(nil), message...))
	return nil
}

type fakeLocker struct {
	acquired bool
	err      error
	released int
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	if l.err != nil || !l.acquired {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

func newTestStore(t *testing.T) (*repository.Store, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return repository.NewStore(db), db
}

func seedProduct(t *testing.T, store *repository.Store, slug string, price int64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Product " + slug,
		Slug:     slug,
		SKU:      "SKU-" + slug,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
	_, err := store.Products.UpsertProduct(context.Background(), p)
	require.NoError(t, err)
	return p
}

func line(p *models.Product, qty int, unit int64) models.LineItemSnapshot {
	price := decimal.NewFromInt(unit)
	return models.LineItemSnapshot{ProductID: p.ID, Quantity: qty, UnitPrice: &price}
}

func paidSession(t *testing.T, id string, items []models.LineItemSnapshot, extra map[string]string) *stripe.CheckoutSession {
	t.Helper()
	md, err := EncodeLineItems(items)
	require.NoError(t, err)
	md[MetadataUserID] = "user-1"
	for k, v := range extra {
		md[k] = v
	}
	return &stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Currency:      stripe.CurrencyKRW,
		Metadata:      md,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_" + id},
	}
}

// paidIntent is a succeeded payment intent as CreatePaymentIntent would have
// created it.
func paidIntent(t *testing.T, id string, items []models.LineItemSnapshot) *stripe.PaymentIntent {
	t.Helper()
	md, err := EncodeLineItems(items)
	require.NoError(t, err)
	md[MetadataUserID] = "user-1"
	md[MetadataFlow] = FlowPaymentIntent
	return &stripe.PaymentIntent{
		ID:       id,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Currency: stripe.CurrencyKRW,
		Metadata: md,
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func stockOf(t *testing.T, db *gorm.DB, p *models.Product) int {
	t.Helper()
	var fresh models.Product
	require.NoError(t, db.Unscoped().First(&fresh, "id = ?", p.ID).Error)
	return fresh.Stock
}
