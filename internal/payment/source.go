package payment

import (
	"context"
	"errors"
	"time"

	"jewelry-backend/internal/models"
	"jewelry-backend/internal/repository"

	"github.com/google/uuid"
)

var ErrPaymentNotFound = errors.New("payment not found")

// StatusSource answers "is this order paid yet?". Safe to call repeatedly;
// a check has no side effects.
type StatusSource interface {
	Check(ctx context.Context, orderID uuid.UUID) (models.PaymentStatus, error)
}

// RepoStatusSource reads the payment row recorded for the order. The mock
// gateway simulator flips that row; polling through this source observes
// the flip.
type RepoStatusSource struct {
	payments repository.PaymentRepo
}

func NewRepoStatusSource(payments repository.PaymentRepo) *RepoStatusSource {
	return &RepoStatusSource{payments: payments}
}

func (s *RepoStatusSource) Check(ctx context.Context, orderID uuid.UUID) (models.PaymentStatus, error) {
	pay, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if pay == nil {
		return "", ErrPaymentNotFound
	}
	return pay.Status, nil
}

// Simulator stands in for the external settlement side of the gateway:
// scanning the QR in real life is replaced by an explicit confirm/fail
// call against the payment reference.
type Simulator struct {
	payments repository.PaymentRepo
	now      func() time.Time
}

func NewSimulator(payments repository.PaymentRepo) *Simulator {
	return &Simulator{payments: payments, now: time.Now}
}

func (s *Simulator) Confirm(ctx context.Context, referenceID string) (*models.Payment, error) {
	return s.settle(ctx, referenceID, models.PaymentStatusPaid)
}

func (s *Simulator) Fail(ctx context.Context, referenceID string) (*models.Payment, error) {
	return s.settle(ctx, referenceID, models.PaymentStatusFailed)
}

func (s *Simulator) settle(ctx context.Context, referenceID string, status models.PaymentStatus) (*models.Payment, error) {
	pay, err := s.payments.GetByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if pay == nil {
		return nil, ErrPaymentNotFound
	}

	// settling twice with the same outcome is a no-op; a paid reference
	// never becomes failed
	if pay.Status == status {
		return pay, nil
	}
	if pay.Status == models.PaymentStatusPaid {
		return pay, nil
	}

	var paidAt *time.Time
	if status == models.PaymentStatusPaid {
		now := s.now()
		paidAt = &now
	}
	if err := s.payments.UpdateStatus(ctx, pay.ID, status, paidAt); err != nil {
		return nil, err
	}
	return s.payments.GetByReference(ctx, referenceID)
}
