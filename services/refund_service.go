package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"
	"github.com/dimz119/project-saeum/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RefundResponse struct {
	Refunds []models.Refund `json:"refunds"`
	Meta    MetaData        `json:"meta"`
}

type RefundService struct {
	store    *repository.Store
	gateway  PaymentGateway
	events   aws_pkg.SNSPublisher
	topicARN string
	metrics  *aws_pkg.MetricsClient
	logger   *zap.Logger
	now      func() time.Time
}

func NewRefundService(store *repository.Store, gateway PaymentGateway, events aws_pkg.SNSPublisher, topicARN string, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *RefundService {
	return &RefundService{
		store:    store,
		gateway:  gateway,
		events:   events,
		topicARN: topicARN,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestRefund files a refund request against the payment of one of the
// user's orders. Without an amount the whole remaining balance is requested.
func (s *RefundService) RequestRefund(ctx context.Context, userID string, orderID uuid.UUID, req *models.CreateRefundRequest) (*models.Refund, error) {
	var refund *models.Refund
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		order, err := tx.Orders.FindByIDForUser(ctx, orderID, userID)
		if repository.IsNotFound(err) {
			return apperrors.ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		// serializes concurrent requests against the same balance
		payment, err := tx.Payments.FindByOrderIDForUpdate(ctx, order.ID)
		if repository.IsNotFound(err) {
			return apperrors.ErrRefundNotAllowed
		}
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusCompleted {
			return apperrors.ErrRefundNotAllowed
		}

		existing, err := tx.Refunds.FindByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		remaining := payment.Amount.Sub(sumRefunds(existing, models.Refund.Outstanding))

		amount := remaining
		if req.Amount != nil {
			amount = *req.Amount
		}
		if !amount.IsPositive() || amount.GreaterThan(remaining) {
			return apperrors.ErrInvalidRefundAmount
		}

		refund = &models.Refund{
			PaymentID: payment.ID,
			OrderID:   order.ID,
			UserID:    userID,
			Amount:    amount,
			Reason:    req.Reason,
			Status:    models.RefundStatusRequested,
		}
		return tx.Refunds.Create(ctx, refund)
	})
	if err != nil {
		return nil, s.mapError("Failed to request refund", err)
	}

	s.logger.Info("Refund requested",
		zap.String("refund_id", refund.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("amount", refund.Amount.String()),
	)
	return refund, nil
}

func (s *RefundService) ListRefunds(ctx context.Context, status models.RefundStatus, page, limit int) (*RefundResponse, error) {
	refunds, total, err := s.store.Refunds.FindAll(ctx, status, page, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch refunds", err)
	}
	return &RefundResponse{Refunds: refunds, Meta: newMetaData(page, limit, total)}, nil
}

// Approve pays the refund out through Stripe. When completed refunds cover the
// whole payment, the payment is marked refunded and the order cancelled.
func (s *RefundService) Approve(ctx context.Context, refundID uuid.UUID, adminMemo string) (*models.Refund, error) {
	refund, err := s.pendingRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.Payments.FindByOrderID(ctx, refund.OrderID)
	if err != nil {
		return nil, s.mapError("Failed to fetch payment", err)
	}
	if payment.StripePaymentIntentID == nil || *payment.StripePaymentIntentID == "" {
		return nil, apperrors.ErrRefundNotAllowed
	}

	// claim the refund so a second reviewer cannot pay it out twice
	if err := s.store.Refunds.Transition(ctx, refundID, models.RefundStatusRequested, map[string]interface{}{
		"status":     models.RefundStatusProcessing,
		"admin_memo": adminMemo,
	}); err != nil {
		return nil, s.mapError("Failed to update refund", err)
	}

	stripeRefund, err := s.gateway.CreateRefund(ctx, *payment.StripePaymentIntentID,
		ToMinorUnits(refund.Amount, payment.Currency),
		map[string]string{"refund_id": refund.ID.String(), "order_id": refund.OrderID.String()})
	if err != nil {
		s.logger.Error("Stripe refund failed", zap.String("refund_id", refundID.String()), zap.Error(err))
		if rbErr := s.store.Refunds.Transition(ctx, refundID, models.RefundStatusProcessing, map[string]interface{}{
			"status": models.RefundStatusRequested,
		}); rbErr != nil {
			s.logger.Error("Failed to reopen refund", zap.String("refund_id", refundID.String()), zap.Error(rbErr))
		}
		return nil, apperrors.Upstream("Failed to refund payment", err)
	}

	now := s.now()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Refunds.Transition(ctx, refundID, models.RefundStatusProcessing, map[string]interface{}{
			"status":           models.RefundStatusCompleted,
			"stripe_refund_id": stripeRefund.ID,
			"processed_at":     now,
		}); err != nil {
			return err
		}

		refunds, err := tx.Refunds.FindByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		completed := sumRefunds(refunds, func(r models.Refund) bool { return r.Status == models.RefundStatusCompleted })
		if completed.LessThan(payment.Amount) {
			return nil
		}

		if err := tx.Payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusRefunded); err != nil {
			return err
		}
		order, err := tx.Orders.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status.CanTransitionTo(models.OrderStatusCancelled) {
			return tx.Orders.TransitionStatus(ctx, order.ID, order.Status, models.OrderStatusCancelled)
		}
		return nil
	})
	if err != nil {
		// money has moved; the row must be fixed by hand
		s.logger.Error("Refund paid out but not recorded",
			zap.String("refund_id", refundID.String()),
			zap.String("stripe_refund_id", stripeRefund.ID),
			zap.Error(err),
		)
		return nil, apperrors.Internal("Failed to record refund", err)
	}

	s.logger.Info("Refund completed",
		zap.String("refund_id", refundID.String()),
		zap.String("stripe_refund_id", stripeRefund.ID),
		zap.String("amount", refund.Amount.String()),
	)
	s.publishCompleted(ctx, refund, payment.Currency)
	if s.metrics.IsEnabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.metrics.RecordCount(ctx, aws_pkg.MetricRefundsCompleted, map[string]string{"Currency": payment.Currency})
		}()
	}

	return s.reload(ctx, refundID)
}

// Reject closes a pending refund request without paying anything.
func (s *RefundService) Reject(ctx context.Context, refundID uuid.UUID, adminMemo string) (*models.Refund, error) {
	if _, err := s.pendingRefund(ctx, refundID); err != nil {
		return nil, err
	}
	if err := s.store.Refunds.Transition(ctx, refundID, models.RefundStatusRequested, map[string]interface{}{
		"status":       models.RefundStatusRejected,
		"admin_memo":   adminMemo,
		"processed_at": s.now(),
	}); err != nil {
		return nil, s.mapError("Failed to update refund", err)
	}
	s.logger.Info("Refund rejected", zap.String("refund_id", refundID.String()))
	return s.reload(ctx, refundID)
}

func (s *RefundService) pendingRefund(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	refund, err := s.store.Refunds.FindByID(ctx, refundID)
	if repository.IsNotFound(err) {
		return nil, apperrors.ErrRefundNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch refund", err)
	}
	if refund.Status != models.RefundStatusRequested {
		return nil, apperrors.ErrRefundNotPending
	}
	return refund, nil
}

func (s *RefundService) reload(ctx context.Context, refundID uuid.UUID) (*models.Refund, error) {
	refund, err := s.store.Refunds.FindByID(ctx, refundID)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch refund", err)
	}
	return refund, nil
}

func (s *RefundService) mapError(message string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, repository.ErrStaleStatus) {
		return apperrors.ErrRefundNotPending.Wrap(err)
	}
	if repository.IsNotFound(err) {
		return apperrors.ErrRefundNotAllowed.Wrap(err)
	}
	s.logger.Error(message, zap.Error(err))
	return apperrors.Internal(message, err)
}

func (s *RefundService) publishCompleted(ctx context.Context, refund *models.Refund, currency string) {
	if s.events == nil || s.topicARN == "" {
		return
	}
	body, err := json.Marshal(models.RefundEvent{
		Type:      models.EventRefundCompleted,
		RefundID:  refund.ID.String(),
		OrderID:   refund.OrderID.String(),
		UserID:    refund.UserID,
		Amount:    refund.Amount.String(),
		Currency:  currency,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, s.topicARN, body); err != nil {
		s.logger.Warn("SNS publish failed", zap.String("refund_id", refund.ID.String()), zap.Error(err))
	}
}

func sumRefunds(refunds []models.Refund, include func(models.Refund) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		if include(r) {
			total = total.Add(r.Amount)
		}
	}
	return total
}
