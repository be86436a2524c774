package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"
	"github.com/dimz119/project-saeum/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// zeroDecimalCurrencies are charged in whole units by Stripe.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// ToMinorUnits converts amount to the integer unit Stripe expects for currency.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

// ChargeableAmount rounds amount to the precision Stripe can charge in
// currency, so what is stored always equals what was charged.
func ChargeableAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	return FromMinorUnits(ToMinorUnits(amount, currency), currency)
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	d := decimal.NewFromInt(amount)
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return d
	}
	return d.Shift(-2)
}

type CheckoutConfig struct {
	Currency              string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FrontendURL           string
}

// ShippingFeeFor returns the fee charged for subtotal. A zero threshold
// disables free shipping.
func (c CheckoutConfig) ShippingFeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if c.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.ShippingFee
}

type CheckoutService struct {
	store   *repository.Store
	gateway PaymentGateway
	cfg     CheckoutConfig
	metrics *aws_pkg.MetricsClient
	logger  *zap.Logger
}

func NewCheckoutService(store *repository.Store, gateway PaymentGateway, cfg CheckoutConfig, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{store: store, gateway: gateway, cfg: cfg, metrics: metrics, logger: logger}
}

type pricedLine struct {
	product  *models.Product
	quantity int
	unit     decimal.Decimal
}

// checkoutQuote is a priced cart ready to be handed to Stripe. The metadata
// carries the item snapshot reconciliation later turns into an order.
type checkoutQuote struct {
	lines       []pricedLine
	subtotal    decimal.Decimal
	shippingFee decimal.Decimal
	currency    string
	metadata    map[string]string
}

func (q *checkoutQuote) total() decimal.Decimal {
	return q.subtotal.Add(q.shippingFee)
}

// quote prices the requested items (or the user's cart) from the catalog.
func (s *CheckoutService) quote(ctx context.Context, userID string, req *models.CreateCheckoutSessionRequest) (*checkoutQuote, error) {
	requested, err := s.requestedItems(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	lines, err := s.priceItems(ctx, requested)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(s.cfg.Currency)
	subtotal := decimal.Zero
	snapshot := make([]models.LineItemSnapshot, 0, len(lines))
	for _, l := range lines {
		subtotal = subtotal.Add(l.unit.Mul(decimal.NewFromInt(int64(l.quantity))))
		unit := l.unit
		snapshot = append(snapshot, models.LineItemSnapshot{ProductID: l.product.ID, Quantity: l.quantity, UnitPrice: &unit})
	}
	shippingFee := ChargeableAmount(s.cfg.ShippingFeeFor(subtotal), currency)

	metadata, err := EncodeLineItems(snapshot)
	if err != nil {
		return nil, err
	}
	metadata[MetadataUserID] = userID
	metadata[MetadataShippingFee] = shippingFee.String()
	sh := req.Shipping
	for key, value := range map[string]string{
		MetadataShippingName:  sh.Name,
		MetadataShippingPhone: sh.Phone,
		MetadataShippingEmail: sh.Email,
		MetadataAddress:       sh.Address,
		MetadataDetailAddress: sh.DetailAddress,
		MetadataZipcode:       sh.Zipcode,
		MetadataMemo:          sh.Memo,
	} {
		if value = strings.TrimSpace(value); value != "" {
			metadata[key] = value
		}
	}

	return &checkoutQuote{
		lines:       lines,
		subtotal:    subtotal,
		shippingFee: shippingFee,
		currency:    currency,
		metadata:    metadata,
	}, nil
}

// CreateSession prices the requested items (or the user's cart) from the
// catalog and opens a Stripe checkout session carrying a snapshot of them.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, req *models.CreateCheckoutSessionRequest) (*models.CheckoutSessionResponse, error) {
	q, err := s.quote(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(s.cfg.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.cfg.FrontendURL + "/cart"),
		ClientReferenceID:  stripe.String(userID),
	}
	if email := req.Shipping.Email; email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for _, l := range q.lines {
		params.LineItems = append(params.LineItems, priceDataLine(l.product.Name, l.unit, int64(l.quantity), q.currency))
	}
	if q.shippingFee.IsPositive() {
		params.LineItems = append(params.LineItems, priceDataLine("Shipping", q.shippingFee, 1, q.currency))
	}
	for k, v := range q.metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logger.Error("Failed to create Stripe checkout session", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Upstream("Failed to create checkout session", err)
	}

	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(q.lines)),
		zap.String("subtotal", q.subtotal.String()),
	)
	s.recordCreated("checkout_session", q.currency)

	return &models.CheckoutSessionResponse{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		Subtotal:    q.subtotal,
		ShippingFee: q.shippingFee,
		Total:       q.total(),
		Currency:    q.currency,
	}, nil
}

// CreatePaymentIntent prices the items like CreateSession but opens a bare
// payment intent for an embedded card form. The client confirms it with
// Stripe.js and then calls ConfirmPayment with its id.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, userID string, req *models.CreateCheckoutSessionRequest) (*models.PaymentIntentResponse, error) {
	q, err := s.quote(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(q.total(), q.currency)),
		Currency: stripe.String(q.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email := req.Shipping.Email; email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	for k, v := range q.metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(MetadataFlow, FlowPaymentIntent)

	intent, err := s.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		s.logger.Error("Failed to create Stripe payment intent", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Upstream("Failed to create payment intent", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(q.lines)),
		zap.String("total", q.total().String()),
	)
	s.recordCreated("payment_intent", q.currency)

	return &models.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Subtotal:        q.subtotal,
		ShippingFee:     q.shippingFee,
		Total:           q.total(),
		Currency:        q.currency,
	}, nil
}

func (s *CheckoutService) recordCreated(flow, currency string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		_ = s.metrics.RecordCount(context.Background(), aws_pkg.MetricCheckoutSessions, map[string]string{"Currency": currency, "Flow": flow})
	}()
}

type requestedItem struct {
	productID uuid.UUID
	quantity  int
}

// requestedItems merges duplicate products, falling back to the stored cart
// when the request names none.
func (s *CheckoutService) requestedItems(ctx context.Context, userID string, req *models.CreateCheckoutSessionRequest) ([]requestedItem, error) {
	var raw []requestedItem
	if len(req.Items) > 0 {
		for _, item := range req.Items {
			id, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, apperrors.BadRequest("Invalid product ID")
			}
			raw = append(raw, requestedItem{productID: id, quantity: item.Quantity})
		}
	} else {
		cart, err := s.store.Carts.FindByUser(ctx, userID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, apperrors.Internal("Failed to load cart", err)
		}
		if cart != nil {
			for _, item := range cart.Items {
				raw = append(raw, requestedItem{productID: item.ProductID, quantity: item.Quantity})
			}
		}
	}
	if len(raw) == 0 {
		return nil, apperrors.BadRequest("No items to check out")
	}

	merged := make([]requestedItem, 0, len(raw))
	index := make(map[uuid.UUID]int, len(raw))
	for _, item := range raw {
		if item.quantity < 1 {
			return nil, apperrors.BadRequest("Quantity must be at least 1")
		}
		if i, ok := index[item.productID]; ok {
			merged[i].quantity += item.quantity
			continue
		}
		index[item.productID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func (s *CheckoutService) priceItems(ctx context.Context, items []requestedItem) ([]pricedLine, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.productID)
	}
	products, err := s.store.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to load products", err)
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]pricedLine, 0, len(items))
	for _, item := range items {
		p, ok := byID[item.productID]
		if !ok {
			return nil, apperrors.ErrProductNotFound.Wrap(fmt.Errorf("product %s", item.productID))
		}
		if !p.IsActive {
			return nil, apperrors.BadRequest(fmt.Sprintf("%s is not available", p.Name))
		}
		if p.Stock < item.quantity {
			return nil, apperrors.ErrInsufficientStock.WithMessage(
				fmt.Sprintf("Insufficient stock for %s (available: %d)", p.Name, p.Stock), repository.ErrInsufficientStock)
		}
		unit := ChargeableAmount(p.CurrentPrice(), s.cfg.Currency)
		if !unit.Equal(p.CurrentPrice()) {
			s.logger.Warn("Catalog price rounded to chargeable amount",
				zap.String("product_id", p.ID.String()),
				zap.String("price", p.CurrentPrice().String()),
				zap.String("charged", unit.String()),
			)
		}
		lines = append(lines, pricedLine{product: p, quantity: item.quantity, unit: unit})
	}
	return lines, nil
}

func priceDataLine(name string, unit decimal.Decimal, qty int64, currency string) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(ToMinorUnits(unit, currency)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(qty),
	}
}

