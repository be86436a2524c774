package repository

import (
	"context"
	"time"

	"github.com/dimz119/project-saeum/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefundRepository defines data access for refund requests.
type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error)
	FindAll(ctx context.Context, status models.RefundStatus, page, limit int) ([]models.Refund, int64, error)
	Transition(ctx context.Context, id uuid.UUID, from models.RefundStatus, updates map[string]interface{}) error
}

type gormRefundRepo struct {
	db *gorm.DB
}

func NewGormRefundRepository(db *gorm.DB) RefundRepository {
	return &gormRefundRepo{db: db}
}

func (r *gormRefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *gormRefundRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *gormRefundRepo) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

func (r *gormRefundRepo) FindAll(ctx context.Context, status models.RefundStatus, page, limit int) ([]models.Refund, int64, error) {
	var refunds []models.Refund
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Refund{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&refunds).Error
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}

// Transition applies updates only while the refund is still in status from.
// It returns ErrStaleStatus if another reviewer got there first.
func (r *gormRefundRepo) Transition(ctx context.Context, id uuid.UUID, from models.RefundStatus, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}
