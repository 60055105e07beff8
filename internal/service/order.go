package service

import (
	"context"

	"jewelry-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderItem is one line of the basket snapshot: name and unit price
// are already denormalized, the order never re-reads the live product.
type CreateOrderItem struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  uint32
}

type ShippingDetails struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
}

type CreateOrderInput struct {
	Items         []CreateOrderItem
	Details       ShippingDetails
	PaymentMethod models.PaymentMethod
	CustomerID    *uuid.UUID
	// IdempotencyKey is generated by the client per checkout attempt.
	// Retrying a failed create with the same key never produces a second
	// order.
	IdempotencyKey uuid.UUID
}

type ListFilter struct {
	CustomerID    *uuid.UUID
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	Limit         int
	Offset        int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	// Transition moves fulfilment along the pending -> processing ->
	// shipped -> delivered chain. Orders awaiting async payment cannot
	// leave pending except to cancel.
	Transition(ctx context.Context, id uuid.UUID, newStatus models.OrderStatus) (*models.Order, error)
	// RecordPaymentResult applies an observed paid/failed outcome.
	// Recording paid on an already paid order is a no-op, not an error:
	// the reconciliation loop may observe paid on several polls.
	RecordPaymentResult(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, reason *string) (*models.Order, error)
}
