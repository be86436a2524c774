package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"
	"github.com/dimz119/project-saeum/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// errAlreadyReconciled aborts the transaction when the session turns out to
// have been recorded by someone else.
var errAlreadyReconciled = errors.New("checkout session already reconciled")

const lockPollInterval = 200 * time.Millisecond

type ReconcilerOptions struct {
	Locker   SessionLocker
	Cache    SummaryCache
	Events   aws_pkg.SNSPublisher
	TopicARN string
	Currency string
	LockTTL  time.Duration
	LockWait time.Duration
	Metrics  *aws_pkg.MetricsClient
}

// Reconciler turns a paid Stripe checkout session into an order, its items
// and a payment, exactly once per session.
type Reconciler struct {
	store   *repository.Store
	gateway PaymentGateway
	opts    ReconcilerOptions
	logger  *zap.Logger
	now     func() time.Time
}

func NewReconciler(store *repository.Store, gateway PaymentGateway, opts ReconcilerOptions, logger *zap.Logger) *Reconciler {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 5 * time.Second
	}
	return &Reconciler{store: store, gateway: gateway, opts: opts, logger: logger, now: time.Now}
}

// Reconcile fetches the session from Stripe and records it. Calling it again
// for a recorded session returns the same summary without writing anything.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*models.OrderSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperrors.BadRequest("session_id is required")
	}

	summary, found, err := r.existingSummary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if found {
		return summary, nil
	}

	sess, err := r.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, apperrors.ErrSessionNotFound.Wrap(err)
		}
		r.logger.Error("Failed to retrieve checkout session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.Upstream("Failed to retrieve checkout session", err)
	}
	return r.ReconcileSession(ctx, sess)
}

// ReconcileSession records an already retrieved (or signature-verified)
// session.
func (r *Reconciler) ReconcileSession(ctx context.Context, sess *stripe.CheckoutSession) (*models.OrderSummary, error) {
	return r.reconcileSnapshot(ctx, ParseSession(sess, r.opts.Currency))
}

// ReconcilePaymentIntent fetches a payment intent created by
// CreatePaymentIntent and records it under its own id, with the same
// guarantees as a checkout session.
func (r *Reconciler) ReconcilePaymentIntent(ctx context.Context, paymentIntentID string) (*models.OrderSummary, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, apperrors.BadRequest("payment_intent_id is required")
	}

	summary, found, err := r.existingSummary(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if found {
		return summary, nil
	}

	pi, err := r.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, apperrors.ErrPaymentIntentNotFound.Wrap(err)
		}
		r.logger.Error("Failed to retrieve payment intent", zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return nil, apperrors.Upstream("Failed to retrieve payment intent", err)
	}
	return r.ReconcileIntent(ctx, pi)
}

// ReconcileIntent records an already retrieved (or signature-verified)
// payment intent. Intents the shop did not create for a direct payment, such
// as the one behind a checkout session, are refused.
func (r *Reconciler) ReconcileIntent(ctx context.Context, pi *stripe.PaymentIntent) (*models.OrderSummary, error) {
	if pi.Metadata[MetadataFlow] != FlowPaymentIntent {
		r.logger.Warn("Payment intent not created for direct payment", zap.String("payment_intent_id", pi.ID))
		return nil, apperrors.ErrInvalidCheckoutItems
	}
	return r.reconcileSnapshot(ctx, ParsePaymentIntent(pi, r.opts.Currency))
}

func (r *Reconciler) reconcileSnapshot(ctx context.Context, snap SessionSnapshot) (*models.OrderSummary, error) {
	start := r.now()
	if snap.ID == "" {
		return nil, apperrors.BadRequest("session_id is required")
	}
	log := r.logger.With(zap.String("session_id", snap.ID))

	summary, found, err := r.existingSummary(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return summary, nil
	}

	if !snap.Paid {
		log.Info("Checkout session not paid", zap.String("payment_status", snap.Status))
		return nil, apperrors.ErrPaymentNotCompleted
	}

	items, err := DecodeLineItems(snap.Metadata)
	if err != nil {
		log.Warn("Checkout session has unusable items", zap.Error(err))
		return nil, err
	}

	if r.opts.Locker != nil {
		release, acquired, err := r.opts.Locker.Acquire(ctx, snap.ID, r.opts.LockTTL)
		switch {
		case err != nil:
			// the database constraints still hold without the lock
			log.Warn("Session lock unavailable", zap.Error(err))
		case !acquired:
			log.Info("Checkout session locked by another worker, waiting")
			return r.waitForPayment(ctx, snap.ID)
		default:
			defer release()
		}
	}

	orderID, dropped, err := r.record(ctx, snap, items, log)
	if err != nil {
		if summary, found, lookupErr := r.existingSummary(ctx, snap.ID); lookupErr == nil && found {
			log.Info("Checkout session already reconciled", zap.NamedError("cause", err))
			r.recordDuplicate()
			return summary, nil
		}
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		log.Error("Failed to record order", zap.Error(err))
		return nil, apperrors.Internal("Failed to record order", err)
	}

	order, err := r.store.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load order", err)
	}
	summary = models.NewOrderSummary(order)
	if r.opts.Cache != nil {
		r.opts.Cache.Set(ctx, snap.ID, summary)
	}

	log.Info("Checkout session reconciled",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID),
		zap.String("final_amount", order.FinalAmount.String()),
		zap.Int("items", len(order.Items)),
		zap.Int("dropped_items", dropped),
	)
	r.publishConfirmed(ctx, order, snap.ID)
	r.recordMetrics(order, dropped, r.now().Sub(start))
	return summary, nil
}

// record writes order, items and payment and lowers stock in one transaction.
// It returns the new order id and how many lines were dropped because their
// product no longer exists.
func (r *Reconciler) record(ctx context.Context, snap SessionSnapshot, items []models.LineItemSnapshot, log *zap.Logger) (uuid.UUID, int, error) {
	var (
		orderID uuid.UUID
		dropped int
	)
	err := r.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Payments.FindByTransactionID(ctx, snap.ID); err == nil {
			return errAlreadyReconciled
		} else if !repository.IsNotFound(err) {
			return err
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := tx.Products.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*models.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			p, ok := byID[item.ProductID]
			if !ok {
				log.Warn("Skipping line for missing product", zap.String("product_id", item.ProductID.String()), zap.Int("quantity", item.Quantity))
				dropped++
				continue
			}
			unit := item.PriceOr(p.CurrentPrice())
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				Price:       unit,
			})
			total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if len(orderItems) == 0 {
			return apperrors.ErrNoPurchasableItems
		}

		now := r.now()
		discount := decimal.Zero
		order := &models.Order{
			OrderNumber:           models.NewOrderNumber(now),
			UserID:                snap.UserID,
			Status:                models.OrderStatusConfirmed,
			ShippingName:          snap.Shipping.Name,
			ShippingPhone:         snap.Shipping.Phone,
			ShippingEmail:         snap.Shipping.Email,
			ShippingAddress:       snap.Shipping.Address,
			ShippingDetailAddress: snap.Shipping.DetailAddress,
			ShippingZipcode:       snap.Shipping.Zipcode,
			Memo:                  snap.Shipping.Memo,
			TotalAmount:           total,
			ShippingFee:           snap.ShippingFee,
			DiscountAmount:        discount,
			FinalAmount:           total.Add(snap.ShippingFee).Sub(discount),
			Currency:              snap.Currency,
			Items:                 orderItems,
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		payment := &models.Payment{
			OrderID:       order.ID,
			UserID:        snap.UserID,
			Method:        models.PaymentMethodStripe,
			Status:        models.PaymentStatusCompleted,
			TransactionID: snap.ID,
			Amount:        order.FinalAmount,
			Currency:      snap.Currency,
			PaidAt:        &now,
		}
		if snap.PaymentIntentID != "" {
			payment.StripePaymentIntentID = &snap.PaymentIntentID
		}
		if len(snap.Raw) > 0 {
			raw := string(snap.Raw)
			payment.GatewayPayload = &raw
		}
		if err := tx.Payments.Create(ctx, payment); err != nil {
			if repository.IsUniqueViolation(err) {
				return errAlreadyReconciled
			}
			return fmt.Errorf("create payment: %w", err)
		}

		for _, item := range order.Items {
			if err := tx.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					log.Warn("Insufficient stock while reconciling", zap.String("product_id", item.ProductID.String()), zap.Int("quantity", item.Quantity))
					return apperrors.ErrInsufficientStock.WithMessage(
						fmt.Sprintf("Insufficient stock for %s", item.ProductName), err)
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		orderID = order.ID
		return nil
	})
	return orderID, dropped, err
}

// existingSummary returns the summary of the order already recorded for
// sessionID, if any.
func (r *Reconciler) existingSummary(ctx context.Context, sessionID string) (*models.OrderSummary, bool, error) {
	if r.opts.Cache != nil {
		if summary, ok := r.opts.Cache.Get(ctx, sessionID); ok {
			return summary, true, nil
		}
	}

	payment, err := r.store.Payments.FindByTransactionID(ctx, sessionID)
	if repository.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Internal("Failed to look up payment", err)
	}
	order, err := r.store.Orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, false, apperrors.Internal("Failed to load order", err)
	}

	summary := models.NewOrderSummary(order)
	if r.opts.Cache != nil {
		r.opts.Cache.Set(ctx, sessionID, summary)
	}
	return summary, true, nil
}

// waitForPayment polls for the payment another worker is recording.
func (r *Reconciler) waitForPayment(ctx context.Context, sessionID string) (*models.OrderSummary, error) {
	deadline := time.NewTimer(r.opts.LockWait)
	defer deadline.Stop()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, apperrors.ErrCheckoutInProgress
		case <-ticker.C:
			summary, found, err := r.existingSummary(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if found {
				r.recordDuplicate()
				return summary, nil
			}
		}
	}
}

func (r *Reconciler) publishConfirmed(ctx context.Context, order *models.Order, sessionID string) {
	if r.opts.Events == nil || r.opts.TopicARN == "" {
		return
	}
	event := models.OrderEvent{
		Type:          models.EventOrderConfirmed,
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        string(order.Status),
		TransactionID: sessionID,
		Amount:        order.FinalAmount.String(),
		Currency:      order.Currency,
		Timestamp:     r.now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := r.opts.Events.Publish(ctx, r.opts.TopicARN, body); err != nil {
		// best effort, the order is already committed
		r.logger.Warn("Failed to publish order event", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func (r *Reconciler) recordMetrics(order *models.Order, dropped int, elapsed time.Duration) {
	m := r.opts.Metrics
	if !m.IsEnabled() {
		return
	}
	amount, _ := order.FinalAmount.Float64()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dims := map[string]string{"Currency": order.Currency}
		_ = m.RecordCount(ctx, aws_pkg.MetricOrdersCreated, dims)
		_ = m.RecordCount(ctx, aws_pkg.MetricPaymentSucceeded, dims)
		_ = m.RecordValue(ctx, aws_pkg.MetricOrderAmount, amount, dims)
		_ = m.RecordLatency(ctx, aws_pkg.MetricReconcileLatency, elapsed, nil)
		if dropped > 0 {
			_ = m.RecordValue(ctx, aws_pkg.MetricCheckoutLinesDrop, float64(dropped), nil)
		}
	}()
}

func (r *Reconciler) recordDuplicate() {
	m := r.opts.Metrics
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, aws_pkg.MetricCheckoutDuplicates, nil)
	}()
}
