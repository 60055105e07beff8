package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"jewelry-backend/internal/models"
	"jewelry-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderService struct {
	repo   *repository.Repository
	events EventBus
	now    func() time.Time
}

func NewOrderService(repo *repository.Repository, events EventBus) OrderService {
	return &orderService{
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// statusGraph lists the allowed fulfilment transitions. Anything not listed
// fails with ErrInvalidTransition.
var statusGraph = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range statusGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

func initialPaymentStatus(method models.PaymentMethod) models.PaymentStatus {
	// COD never blocks fulfilment: money is collected at the door.
	if method == models.PaymentMethodCOD {
		return models.PaymentStatusOnDelivery
	}
	return models.PaymentStatusPending
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.IdempotencyKey != uuid.Nil {
		existing, err := s.repo.Orders.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, persistErr("idempotency lookup", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range in.Items {
		if it.Quantity == 0 {
			return nil, ErrQuantityInvalid
		}
		if it.UnitPrice.IsNegative() {
			return nil, ErrPriceInvalid
		}
	}

	switch in.PaymentMethod {
	case models.PaymentMethodVietQR, models.PaymentMethodMoMo, models.PaymentMethodCOD:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	if verr := validateDetails(in.Details); verr != nil {
		return nil, verr
	}

	var (
		order   *models.Order
		now     = s.now()
		itemsDB []models.OrderItem
		total   = OrderTotal(in.Items)
	)

	for _, it := range in.Items {
		itemsDB = append(itemsDB, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: RoundMoney(it.UnitPrice.Mul(decimalFromQty(it.Quantity))),
			CreatedAt: now,
		})
	}

	key := in.IdempotencyKey
	if key == uuid.Nil {
		key = uuid.New()
	}

	err := s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, ir repository.OrderItemRepo, _ repository.PaymentRepo) error {
		order = &models.Order{
			OrderNumber:    newOrderNumber(now),
			CustomerID:     in.CustomerID,
			Status:         models.OrderStatusPending,
			PaymentMethod:  in.PaymentMethod,
			PaymentStatus:  initialPaymentStatus(in.PaymentMethod),
			Total:          total,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
			Details: models.OrderDetails{
				Name:       in.Details.Name,
				Email:      in.Details.Email,
				Phone:      in.Details.Phone,
				Address:    in.Details.Address,
				City:       in.Details.City,
				PostalCode: in.Details.PostalCode,
			},
		}

		if err := or.Create(ctx, order); err != nil {
			return err
		}

		for i := range itemsDB {
			itemsDB[i].OrderID = order.ID
		}

		if err := ir.BulkCreate(ctx, itemsDB); err != nil {
			return err
		}

		ordWith, err := or.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		order = ordWith

		return nil
	})

	if err != nil {
		// a concurrent retry with the same key may have won the race
		if in.IdempotencyKey != uuid.Nil {
			if existing, lookupErr := s.repo.Orders.GetByIdempotencyKey(ctx, in.IdempotencyKey); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, persistErr("create order", err)
	}

	if s.events != nil {
		evItems := make([]OrderItemEvent, 0, len(itemsDB))
		for _, it := range itemsDB {
			evItems = append(evItems, OrderItemEvent{
				ProductID: it.ProductID,
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: it.LineTotal,
			})
		}
		_ = s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			Items:         evItems,
			Total:         order.Total,
			PaymentMethod: order.PaymentMethod,
			CreatedAt:     order.CreatedAt,
		})
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		CustomerID:    f.CustomerID,
		Status:        f.Status,
		PaymentStatus: f.PaymentStatus,
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, 0, persistErr("list orders", err)
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

func (s *orderService) Transition(ctx context.Context, id uuid.UUID, newStatus models.OrderStatus) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	// async methods gate fulfilment on confirmed payment; the gate is
	// checked first so an unpaid order reports the payment problem, not
	// the transition problem. Cancelling is always allowed.
	if ord.PaymentMethod.AsyncConfirmation() &&
		ord.Status == models.OrderStatusPending &&
		newStatus != models.OrderStatusCancelled &&
		ord.PaymentStatus != models.PaymentStatusPaid {
		return nil, ErrPaymentRequired
	}

	if !transitionAllowed(ord.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, newStatus)
	}

	if err := s.repo.Orders.UpdateStatus(ctx, id, newStatus, nil); err != nil {
		return nil, persistErr("update order status", err)
	}

	ord, err = s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	return ord, nil
}

func (s *orderService) RecordPaymentResult(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Order, error) {
	if status != models.PaymentStatusPaid && status != models.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: payment result must be paid or failed, got %s", ErrInvalidTransition, status)
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	// idempotent: observing the same result again changes nothing
	if ord.PaymentStatus == status {
		return ord, nil
	}

	// a paid order cannot un-pay itself through this interface
	if ord.PaymentStatus == models.PaymentStatusPaid && status == models.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: paid -> failed", ErrInvalidTransition)
	}
	// COD orders carry no async result to record
	if ord.PaymentStatus == models.PaymentStatusOnDelivery {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.PaymentStatus, status)
	}

	now := s.now()
	err = s.repo.Orders.WithTx(ctx, func(or repository.OrderRepo, _ repository.OrderItemRepo, pr repository.PaymentRepo) error {
		if err := or.UpdatePaymentStatus(ctx, id, status); err != nil {
			return err
		}
		pay, err := pr.GetByOrderID(ctx, id)
		if err != nil {
			return err
		}
		if pay != nil {
			var paidAt *time.Time
			if status == models.PaymentStatusPaid {
				paidAt = &now
			}
			if err := pr.UpdateStatus(ctx, pay.ID, status, paidAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistErr("record payment result", err)
	}

	ord, err = s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}

	if status == models.PaymentStatusPaid && s.events != nil {
		_ = s.events.PublishPaymentConfirmed(ctx, PaymentConfirmedEvent{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			Amount:      ord.Total,
			ConfirmedAt: now,
		})
	}

	return ord, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID, reason *string) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	if ord.Status == models.OrderStatusCancelled {
		return ord, ErrAlreadyCancelled
	}
	if !transitionAllowed(ord.Status, models.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, models.OrderStatusCancelled)
	}

	if err := s.repo.Orders.UpdateStatus(ctx, id, models.OrderStatusCancelled, reason); err != nil {
		return nil, persistErr("cancel order", err)
	}
	ord, err = s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, persistErr("get order", err)
	}

	if s.events != nil {
		_ = s.events.PublishOrderCancelled(ctx, OrderCancelledEvent{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			Reason:      s.sanitizeReason(reason),
			CancelledAt: s.now(),
		})
	}

	return ord, nil
}

func (s *orderService) sanitizeReason(reason *string) string {
	if reason == nil {
		return ""
	}
	r := *reason
	if len(r) > 500 {
		r = r[:500]
	}
	return r
}

func validateDetails(d ShippingDetails) *ValidationError {
	var fields []FieldError

	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			fields = append(fields, FieldError{Field: field, Message: "must not be empty"})
		}
	}
	require("name", d.Name)
	require("phone", d.Phone)
	require("address", d.Address)
	require("city", d.City)
	require("postal_code", d.PostalCode)

	if strings.TrimSpace(d.Email) == "" {
		fields = append(fields, FieldError{Field: "email", Message: "must not be empty"})
	} else if _, err := mail.ParseAddress(d.Email); err != nil {
		fields = append(fields, FieldError{Field: "email", Message: "must be a valid email address"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("JW-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func decimalFromQty(q uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(q))
}
