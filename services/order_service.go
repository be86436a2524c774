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
	"go.uber.org/zap"
)

// recentOrderWindow is how far back RecentOrder looks. The success page uses it
// when the browser lost the session id.
const recentOrderWindow = 5 * time.Minute

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func newMetaData(page, limit int, total int64) MetaData {
	return MetaData{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: calculateTotalPages(total, limit),
		HasMore:    total > int64(page*limit),
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

type OrderService struct {
	store    *repository.Store
	events   aws_pkg.SNSPublisher
	topicARN string
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderService(store *repository.Store, events aws_pkg.SNSPublisher, topicARN string, logger *zap.Logger) *OrderService {
	return &OrderService{store: store, events: events, topicARN: topicARN, logger: logger, now: time.Now}
}

// GetUserOrders retrieves paginated orders for a specific user
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*OrderResponse, error) {
	orders, total, err := s.store.Orders.FindByUser(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	return &OrderResponse{Orders: orders, Meta: newMetaData(page, limit, total)}, nil
}

// GetAllOrders retrieves paginated orders for all users (admin only)
func (s *OrderService) GetAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) (*OrderResponse, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.BadRequest("Invalid status filter")
	}
	orders, total, err := s.store.Orders.FindAll(ctx, status, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch all orders", zap.Error(err))
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	return &OrderResponse{Orders: orders, Meta: newMetaData(page, limit, total)}, nil
}

// GetOrderByID retrieves a specific order for a user
func (s *OrderService) GetOrderByID(ctx context.Context, userID string, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders.FindByIDForUser(ctx, orderID, userID)
	if repository.IsNotFound(err) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error("Failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	return order, nil
}

// RecentOrder returns the user's newest order from the last few minutes.
func (s *OrderService) RecentOrder(ctx context.Context, userID string) (*models.OrderSummary, error) {
	order, err := s.store.Orders.FindLatestByUserSince(ctx, userID, s.now().Add(-recentOrderWindow))
	if repository.IsNotFound(err) {
		return nil, apperrors.NotFound("No recent order")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch recent order", err)
	}
	return models.NewOrderSummary(order), nil
}

// UpdateStatus moves an order along the allowed status transitions.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperrors.BadRequest("Invalid status")
	}
	order, err := s.store.Orders.FindByID(ctx, orderID)
	if repository.IsNotFound(err) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch order", err)
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.ErrInvalidStatusTransition.WithMessage(
			"Cannot change order status from "+string(order.Status)+" to "+string(next), nil)
	}
	if err := s.store.Orders.TransitionStatus(ctx, orderID, order.Status, next); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperrors.ErrInvalidStatusTransition.Wrap(err)
		}
		return nil, apperrors.Internal("Failed to update order", err)
	}

	previous := order.Status
	order.Status = next
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)
	s.publishStatus(ctx, order)
	return order, nil
}

func (s *OrderService) publishStatus(ctx context.Context, order *models.Order) {
	if s.events == nil || s.topicARN == "" {
		return
	}
	body, err := json.Marshal(models.OrderEvent{
		Type:        models.EventOrderStatus,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Timestamp:   s.now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, s.topicARN, body); err != nil {
		s.logger.Warn("SNS publish failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}
