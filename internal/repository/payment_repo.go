package repository

import (
	"context"
	"errors"
	"time"

	"jewelry-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetByReference(ctx context.Context, referenceID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidAt *time.Time) error
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&p, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) GetByReference(ctx context.Context, referenceID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "reference_id = ?", referenceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidAt *time.Time) error {
	upd := map[string]any{"status": status}
	if paidAt != nil {
		upd["paid_at"] = paidAt
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(upd).Error
}
