package service

import (
	"context"
	"time"

	"jewelry-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemEvent struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  uint32          `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderCreatedEvent struct {
	OrderID       uuid.UUID            `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	CustomerID    *uuid.UUID           `json:"customer_id,omitempty"`
	Items         []OrderItemEvent     `json:"items"`
	Total         decimal.Decimal      `json:"total"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time            `json:"created_at"`
}

type PaymentConfirmedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishPaymentConfirmed(ctx context.Context, e PaymentConfirmedEvent) error
	PublishOrderCancelled(ctx context.Context, e OrderCancelledEvent) error
}
