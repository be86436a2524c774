package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// StripeEventHandler dispatches Stripe events from the webhook and from the
// SQS queue fed by EventBridge. Both paths end in the same reconciliation.
type StripeEventHandler struct {
	reconciler *Reconciler
	metrics    *aws_pkg.MetricsClient
	logger     *zap.Logger
}

func NewStripeEventHandler(reconciler *Reconciler, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *StripeEventHandler {
	return &StripeEventHandler{reconciler: reconciler, metrics: metrics, logger: logger}
}

// HandleVerified processes an event whose signature has been checked, so the
// embedded session can be used as is.
func (h *StripeEventHandler) HandleVerified(ctx context.Context, event stripe.Event) error {
	return h.dispatch(ctx, event, true)
}

// HandleQueueMessage is an aws.MessageHandler. Queue payloads are unsigned,
// so only the session id is taken from them and the session is fetched from
// Stripe again.
func (h *StripeEventHandler) HandleQueueMessage(ctx context.Context, body string) error {
	var event stripe.Event
	if err := json.Unmarshal(aws_pkg.UnwrapMessage([]byte(body)), &event); err != nil || event.Type == "" {
		h.logger.Warn("Dropping malformed Stripe event message", zap.Error(err))
		return nil
	}
	go h.recordMessage(string(event.Type))

	return h.dispatch(ctx, event, false)
}

// dispatch returns an error only when a retry could succeed. Failures caused
// by the session itself are logged and swallowed. Unless verified, only the
// object id is trusted and the object is fetched from Stripe again.
func (h *StripeEventHandler) dispatch(ctx context.Context, event stripe.Event, verified bool) error {
	log := h.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sess, err := sessionFromEvent(event)
		if err != nil {
			log.Warn("Unreadable checkout session in event", zap.Error(err))
			return nil
		}
		if event.Type == stripe.EventTypeCheckoutSessionCompleted && sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			// delayed payment methods finish with async_payment_succeeded
			log.Info("Checkout completed without payment yet", zap.String("session_id", sess.ID))
			return nil
		}

		var summary *models.OrderSummary
		if verified {
			summary, err = h.reconciler.ReconcileSession(ctx, sess)
		} else {
			summary, err = h.reconciler.Reconcile(ctx, sess.ID)
		}
		if err != nil {
			return h.reconcileFailed(log.With(zap.String("session_id", sess.ID)), err)
		}
		log.Info("Checkout session processed", zap.String("session_id", sess.ID), zap.String("order_number", summary.OrderNumber))

	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if event.Data == nil || json.Unmarshal(event.Data.Raw, &pi) != nil || pi.ID == "" {
			log.Warn("Unreadable payment intent in event")
			return nil
		}
		if pi.Metadata[MetadataFlow] != FlowPaymentIntent {
			// checkout sessions are handled through their own events
			log.Debug("Ignoring payment intent outside direct payments", zap.String("payment_intent_id", pi.ID))
			return nil
		}

		var summary *models.OrderSummary
		var err error
		if verified {
			summary, err = h.reconciler.ReconcileIntent(ctx, &pi)
		} else {
			summary, err = h.reconciler.ReconcilePaymentIntent(ctx, pi.ID)
		}
		if err != nil {
			return h.reconcileFailed(log.With(zap.String("payment_intent_id", pi.ID)), err)
		}
		log.Info("Payment intent processed", zap.String("payment_intent_id", pi.ID), zap.String("order_number", summary.OrderNumber))

	case stripe.EventTypePaymentIntentPaymentFailed:
		log.Warn("Payment intent failed")
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		log.Warn("Checkout payment failed")
	case stripe.EventTypeCheckoutSessionExpired:
		log.Info("Checkout session expired")
	default:
		log.Debug("Ignoring Stripe event")
	}
	return nil
}

// reconcileFailed acknowledges client errors other than conflicts and hands
// everything else back for redelivery.
func (h *StripeEventHandler) reconcileFailed(log *zap.Logger, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code < http.StatusInternalServerError && appErr.Code != http.StatusConflict {
		log.Warn("Checkout rejected", zap.Error(err))
		return nil
	}
	log.Error("Checkout reconciliation failed", zap.Error(err))
	return err
}

func sessionFromEvent(event stripe.Event) (*stripe.CheckoutSession, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("event has no data")
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("session has no id")
	}
	return &sess, nil
}

func (h *StripeEventHandler) recordMessage(eventType string) {
	if !h.metrics.IsEnabled() {
		return
	}
	_ = h.metrics.RecordCount(context.Background(), aws_pkg.MetricSQSMessages, map[string]string{"EventType": eventType})
}
