package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dimz119/project-saeum/common/auth"
	"github.com/dimz119/project-saeum/controllers"
	"github.com/dimz119/project-saeum/internal/testutil"
	"github.com/dimz119/project-saeum/middleware"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/repository"
	"github.com/dimz119/project-saeum/routes"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	webhookSecret = "whsec_test_secret"
	jwtSecret     = "controller-test-secret"
)

// stubGateway verifies webhooks for real and fakes every network call.
type stubGateway struct {
	*services.StripeService

	mu        sync.Mutex
	sessions  map[string]*stripe.CheckoutSession
	intents   map[string]*stripe.PaymentIntent
	created   []*stripe.CheckoutSessionParams
	createdPI []*stripe.PaymentIntentParams
	refunds   int
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, params)
	return &stripe.CheckoutSession{ID: "cs_test_new", URL: "https://checkout.stripe.test/cs_test_new"}, nil
}

func (g *stubGateway) GetCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such checkout session"}
	}
	return sess, nil
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdPI = append(g.createdPI, params)
	return &stripe.PaymentIntent{ID: "pi_test_new", ClientSecret: "pi_test_new_secret_xyz"}, nil
}

func (g *stubGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi, ok := g.intents[id]
	if !ok {
		return nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such payment_intent"}
	}
	return pi, nil
}

func (g *stubGateway) CreateRefund(context.Context, string, int64, map[string]string) (*stripe.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	return &stripe.Refund{ID: "re_test_1"}, nil
}

// paidFromCreated turns the last created session into a paid one.
func (g *stubGateway) paidFromCreated(t *testing.T, id string) *stripe.CheckoutSession {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.created)
	sess := &stripe.CheckoutSession{
		ID:            id,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Currency:      stripe.CurrencyKRW,
		Metadata:      g.created[len(g.created)-1].Metadata,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_" + id},
	}
	g.sessions[id] = sess
	return sess
}

// succeedIntent records the last created payment intent as succeeded.
func (g *stubGateway) succeedIntent(t *testing.T, id string) *stripe.PaymentIntent {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.createdPI)
	params := g.createdPI[len(g.createdPI)-1]
	pi := &stripe.PaymentIntent{
		ID:       id,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Currency: stripe.Currency(*params.Currency),
		Amount:   *params.Amount,
		Metadata: params.Metadata,
	}
	g.intents[id] = pi
	return pi
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) PresignPut(_ context.Context, key, contentType string, _ time.Duration) (string, map[string]string, error) {
	return "https://s3.test/" + key, map[string]string{"Content-Type": contentType}, nil
}

func (m *memoryStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + key + "?signed", nil
}

func (m *memoryStorage) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return "https://s3.test/" + key, nil
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	store   *repository.Store
	gateway *stubGateway
	storage *memoryStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	gw := &stubGateway{
		StripeService: services.NewStripeService("sk_test_unused", webhookSecret),
		sessions:      map[string]*stripe.CheckoutSession{},
		intents:       map[string]*stripe.PaymentIntent{},
	}
	storage := &memoryStorage{objects: map[string][]byte{}}

	checkout := services.NewCheckoutService(store, gw, services.CheckoutConfig{
		Currency:    "krw",
		ShippingFee: decimal.NewFromInt(3000),
		FrontendURL: "http://localhost:3000",
	}, nil, log)
	reconciler := services.NewReconciler(store, gw, services.ReconcilerOptions{Currency: "krw"}, log)
	orders := services.NewOrderService(store, nil, "", log)

	router := routes.NewRouter(routes.Options{
		ServiceName:    "saeum-test",
		Auth:           middleware.AuthConfig{JWTSecret: []byte(jwtSecret), TrustGatewayHeaders: true},
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         log,
	}, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkout, reconciler, orders, "pk_test_123", "krw", log),
		Webhook:  controllers.NewWebhookController(gw, services.NewStripeEventHandler(reconciler, nil, log), log),
		Orders:   controllers.NewOrderController(orders),
		Cart:     controllers.NewCartController(services.NewCartService(store, log)),
		Refunds:  controllers.NewRefundController(services.NewRefundService(store, gw, nil, "", nil, log)),
		Uploads:  controllers.NewUploadController(services.NewUploadService(storage, 1<<20, 15*time.Minute, log)),
		Health:   controllers.NewHealthController(db, "saeum-test"),
	})

	return &testServer{router: router, db: db, store: store, gateway: gw, storage: storage}
}

func (s *testServer) seedProduct(t *testing.T, slug string, price int64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Product " + slug,
		Slug:     slug,
		SKU:      "SKU-" + slug,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
	_, err := s.store.Products.UpsertProduct(context.Background(), p)
	require.NoError(t, err)
	return p
}

type identity struct {
	userID string
	role   string
}

var (
	customer = &identity{userID: "user-1", role: "customer"}
	admin    = &identity{userID: "admin-1", role: "admin"}
)

func (s *testServer) do(t *testing.T, method, path string, who *identity, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		req.Header.Set("X-User-ID", who.userID)
		req.Header.Set("X-User-Role", who.role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCheckoutFlow_CartToOrder(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "chimi-01", 185000, 5)

	w := s.do(t, http.MethodPost, "/cart/items", customer, gin.H{"product_id": p.ID.String(), "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/payments/create-checkout-session", customer, gin.H{
		"shipping": gin.H{"shipping_name": "Kim Saeum", "shipping_zipcode": "04524"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "cs_test_new", created["session_id"])
	assert.Equal(t, "https://checkout.stripe.test/cs_test_new", created["checkout_url"])

	s.gateway.paidFromCreated(t, "cs_flow")

	w = s.do(t, http.MethodGet, "/payments/process-checkout-success?session_id=cs_flow", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := w.Body.String()
	summary := decode(t, w)
	assert.Equal(t, "confirmed", summary["status"])
	assert.Equal(t, "370000", summary["total_amount"])
	assert.Equal(t, "3000", summary["shipping_fee"])
	assert.Equal(t, "373000", summary["final_amount"])

	// the success page may be reloaded; the POST form is equivalent
	w = s.do(t, http.MethodPost, "/payments/process-checkout-success", nil, gin.H{"session_id": "cs_flow"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, first, w.Body.String())

	var orders int64
	require.NoError(t, s.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	w = s.do(t, http.MethodGet, "/payments/recent-order", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, summary["order_number"], decode(t, w)["order_number"])

	w = s.do(t, http.MethodGet, "/orders?page=1&limit=500", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decode(t, w)["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"])
	assert.EqualValues(t, 100, meta["limit"])

	w = s.do(t, http.MethodGet, "/orders/"+summary["order_id"].(string), &identity{userID: "user-2"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcessCheckoutSuccess_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/payments/process-checkout-success", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/payments/process-checkout-success?session_id=cs_missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Checkout session not found", decode(t, w)["error"])

	s.gateway.sessions["cs_open"] = &stripe.CheckoutSession{ID: "cs_open", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}
	w = s.do(t, http.MethodGet, "/payments/process-checkout-success?session_id=cs_open", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment has not been completed", decode(t, w)["error"])
}

func TestPaymentIntentFlow(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "gentle-03", 120000, 4)

	w := s.do(t, http.MethodPost, "/payments/create-payment-intent", nil, gin.H{
		"items": []gin.H{{"product_id": p.ID.String(), "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/payments/create-payment-intent", customer, gin.H{
		"items":    []gin.H{{"product_id": p.ID.String(), "quantity": 1}},
		"shipping": gin.H{"shipping_name": "Choi", "shipping_zipcode": "06236"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "pi_test_new_secret_xyz", created["client_secret"])
	assert.Equal(t, "123000", created["amount"])

	w = s.do(t, http.MethodPost, "/payments/confirm-payment", nil, gin.H{"payment_intent_id": "pi_test_new"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.gateway.succeedIntent(t, "pi_test_new")
	w = s.do(t, http.MethodPost, "/payments/confirm-payment", nil, gin.H{"payment_intent_id": "pi_test_new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := w.Body.String()
	summary := decode(t, w)
	assert.Equal(t, "confirmed", summary["status"])
	assert.Equal(t, "123000", summary["final_amount"])

	w = s.do(t, http.MethodPost, "/payments/confirm-payment", nil, gin.H{"payment_intent_id": "pi_test_new"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, first, w.Body.String())

	var payment models.Payment
	require.NoError(t, s.db.Where("transaction_id = ?", "pi_test_new").First(&payment).Error)
	var order models.Order
	require.NoError(t, s.db.First(&order, "id = ?", payment.OrderID).Error)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, "Choi", order.ShippingName)

	w = s.do(t, http.MethodPost, "/payments/confirm-payment", nil, gin.H{"payment_intent_id": "cs_not_an_intent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func signedWebhook(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret})
	req := httptest.NewRequest(http.MethodPost, "/payments/stripe-webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func completedEvent(t *testing.T, sess *stripe.CheckoutSession) []byte {
	t.Helper()
	obj, err := json.Marshal(sess)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test_1",
		"object":      "event",
		"type":        "checkout.session.completed",
		"api_version": stripe.APIVersion,
		"data":        map[string]json.RawMessage{"object": obj},
	})
	require.NoError(t, err)
	return payload
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "rayban-02", 90000, 3)

	w := s.do(t, http.MethodPost, "/payments/create-checkout-session", customer, gin.H{
		"items": []gin.H{{"product_id": p.ID.String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sess := s.gateway.paidFromCreated(t, "cs_hook")
	payload := completedEvent(t, sess)

	t.Run("bad signature", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, signedWebhook(t, payload, "whsec_wrong"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("completed session creates the order once", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, signedWebhook(t, payload, webhookSecret))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
		var payments int64
		require.NoError(t, s.db.Model(&models.Payment{}).Where("transaction_id = ?", "cs_hook").Count(&payments).Error)
		assert.Equal(t, int64(1), payments)
	})

	t.Run("bad metadata is acknowledged", func(t *testing.T) {
		broken := &stripe.CheckoutSession{
			ID:            "cs_broken",
			PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			Metadata:      map[string]string{"items_n": "1", "items_0": "not json"},
		}
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, signedWebhook(t, completedEvent(t, broken), webhookSecret))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "gucci-03", 420000, 2)

	w := s.do(t, http.MethodPost, "/payments/create-checkout-session", customer, gin.H{
		"items": []gin.H{{"product_id": p.ID.String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.gateway.paidFromCreated(t, "cs_admin")
	w = s.do(t, http.MethodGet, "/payments/process-checkout-success?session_id=cs_admin", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	orderID := decode(t, w)["order_id"].(string)

	w = s.do(t, http.MethodGet, "/admin/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/admin/orders?status=confirmed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)

	w = s.do(t, http.MethodPatch, "/admin/orders/"+orderID+"/status", admin, gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/admin/orders/"+orderID+"/status", admin, gin.H{"status": "preparing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "preparing", decode(t, w)["status"])

	w = s.do(t, http.MethodPatch, "/admin/orders/not-a-uuid/status", admin, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefundRoutes(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "tomford-04", 300000, 2)

	w := s.do(t, http.MethodPost, "/payments/create-checkout-session", customer, gin.H{
		"items": []gin.H{{"product_id": p.ID.String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.gateway.paidFromCreated(t, "cs_refund")
	w = s.do(t, http.MethodGet, "/payments/process-checkout-success?session_id=cs_refund", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	orderID := decode(t, w)["order_id"].(string)

	w = s.do(t, http.MethodPost, "/orders/"+orderID+"/refunds", customer, gin.H{"reason": "Wrong size", "amount": "999999"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/orders/"+orderID+"/refunds", customer, gin.H{"reason": "Wrong size"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	refund := decode(t, w)
	assert.Equal(t, "requested", refund["status"])

	w = s.do(t, http.MethodGet, "/admin/refunds?status=requested", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/admin/refunds/"+refund["id"].(string)+"/approve", admin, gin.H{"admin_memo": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode(t, w)["status"])
	assert.Equal(t, 1, s.gateway.refunds)

	w = s.do(t, http.MethodPost, "/admin/refunds/"+refund["id"].(string)+"/reject", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)
	p := s.seedProduct(t, "gentle-05", 250000, 3)

	w := s.do(t, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/cart/items", customer, gin.H{"product_id": p.ID.String(), "quantity": 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/cart/items", customer, gin.H{"product_id": "nope", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/cart/items", customer, gin.H{"product_id": p.ID.String(), "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/cart/items/"+p.ID.String(), customer, gin.H{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/cart/items/"+p.ID.String(), customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/cart", customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadRoutes(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("kind", "eye_exam"))
	part, err := form.CreateFormFile("file", "exam.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-User-ID", customer.userID)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode(t, w)["key"].(string)
	assert.Regexp(t, `^eye-exams/user-1/.+\.pdf$`, key)
	assert.Contains(t, s.storage.objects, key)

	w = s.do(t, http.MethodGet, "/uploads/url?key="+key, customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/uploads/url?key="+key, &identity{userID: "user-2"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/uploads/presign", customer, gin.H{"kind": "product_image", "filename": "a.png", "content_type": "image/png"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/uploads/presign", admin, gin.H{"kind": "product_image", "filename": "a.png", "content_type": "image/png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Regexp(t, `^products/.+\.png$`, decode(t, w)["key"])
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/payments/stripe-public-key", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pk_test_123","currency":"krw"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", decode(t, w)["database"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestBearerTokenAuth(t *testing.T) {
	s := newTestServer(t)
	token, err := auth.SignAccessToken(auth.Claims{UserID: "user-jwt", Role: "customer"}, []byte(jwtSecret), time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
