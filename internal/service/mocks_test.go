package service_test

import (
	"context"
	"time"

	"jewelry-backend/internal/models"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockOrderRepo
type MockOrderRepo struct {
	Items    repository.OrderItemRepo
	Payments repository.PaymentRepo

	CreateFunc              func(ctx context.Context, o *models.Order) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForCustomerFunc  func(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, key uuid.UUID) (*models.Order, error)
	UpdateStatusFunc        func(ctx context.Context, id uuid.UUID, status models.OrderStatus, reason *string) error
	UpdatePaymentStatusFunc func(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	UpdateTotalFunc         func(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	ListFunc                func(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error)
	ExistsFunc              func(ctx context.Context, id uuid.UUID) (bool, error)
	WithTxFunc              func(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo, repository.PaymentRepo) error) error
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error) {
	if m.GetByIDForCustomerFunc != nil {
		return m.GetByIDForCustomerFunc(ctx, id, customerID)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*models.Order, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	return nil, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, reason *string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, reason)
	}
	return nil
}

func (m *MockOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	if m.UpdatePaymentStatusFunc != nil {
		return m.UpdatePaymentStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockOrderRepo) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	if m.UpdateTotalFunc != nil {
		return m.UpdateTotalFunc(ctx, id, total)
	}
	return nil
}

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *MockOrderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

func (m *MockOrderRepo) WithTx(ctx context.Context, fn func(repository.OrderRepo, repository.OrderItemRepo, repository.PaymentRepo) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(m, m.Items, m.Payments)
}

// MockOrderItemRepo
type MockOrderItemRepo struct {
	BulkCreateFunc   func(ctx context.Context, items []models.OrderItem) error
	GetByOrderIDFunc func(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	SumByOrderFunc   func(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}

func (m *MockOrderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if m.BulkCreateFunc != nil {
		return m.BulkCreateFunc(ctx, items)
	}
	return nil
}

func (m *MockOrderItemRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *MockOrderItemRepo) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	if m.SumByOrderFunc != nil {
		return m.SumByOrderFunc(ctx, orderID)
	}
	return decimal.Zero, nil
}

// MockPaymentRepo
type MockPaymentRepo struct {
	CreateFunc         func(ctx context.Context, p *models.Payment) error
	GetByOrderIDFunc   func(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetByReferenceFunc func(ctx context.Context, referenceID string) (*models.Payment, error)
	UpdateStatusFunc   func(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidAt *time.Time) error
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return nil
}

func (m *MockPaymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *MockPaymentRepo) GetByReference(ctx context.Context, referenceID string) (*models.Payment, error) {
	if m.GetByReferenceFunc != nil {
		return m.GetByReferenceFunc(ctx, referenceID)
	}
	return nil, nil
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paidAt *time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, paidAt)
	}
	return nil
}

// MockEventBus records published events.
type MockEventBus struct {
	Created   []service.OrderCreatedEvent
	Confirmed []service.PaymentConfirmedEvent
	Cancelled []service.OrderCancelledEvent
}

func (m *MockEventBus) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	m.Created = append(m.Created, e)
	return nil
}

func (m *MockEventBus) PublishPaymentConfirmed(_ context.Context, e service.PaymentConfirmedEvent) error {
	m.Confirmed = append(m.Confirmed, e)
	return nil
}

func (m *MockEventBus) PublishOrderCancelled(_ context.Context, e service.OrderCancelledEvent) error {
	m.Cancelled = append(m.Cancelled, e)
	return nil
}

func newTestRepo(orders *MockOrderRepo, items *MockOrderItemRepo, payments *MockPaymentRepo) *repository.Repository {
	orders.Items = items
	orders.Payments = payments
	return &repository.Repository{Orders: orders, OrderItems: items, Payments: payments}
}
