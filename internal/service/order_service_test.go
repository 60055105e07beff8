package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jewelry-backend/internal/models"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validDetails() service.ShippingDetails {
	return service.ShippingDetails{
		Name:       "Linh Tran",
		Email:      "linh@example.com",
		Phone:      "+84901234567",
		Address:    "12 Hang Bac",
		City:       "Hanoi",
		PostalCode: "100000",
	}
}

// storedOrder wires the order mocks to a single in-memory order so the
// create/reload cycle inside the service works.
func storedOrder(orders *MockOrderRepo) {
	var stored *models.Order
	orders.CreateFunc = func(_ context.Context, o *models.Order) error {
		o.ID = uuid.New()
		stored = o
		return nil
	}
	orders.GetByIDFunc = func(_ context.Context, id uuid.UUID) (*models.Order, error) {
		if stored != nil && stored.ID == id {
			return stored, nil
		}
		return nil, nil
	}
}

func TestCreateOrder_TotalFromSnapshotPrices(t *testing.T) {
	orders := &MockOrderRepo{}
	items := &MockOrderItemRepo{}
	payments := &MockPaymentRepo{}
	storedOrder(orders)

	var bulk []models.OrderItem
	items.BulkCreateFunc = func(_ context.Context, rows []models.OrderItem) error {
		bulk = rows
		return nil
	}

	events := &MockEventBus{}
	svc := service.NewOrderService(newTestRepo(orders, items, payments), events)

	ord, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Silver Ring", UnitPrice: dec("129.99"), Quantity: 2},
			{ProductID: uuid.New(), Name: "Gold Chain", UnitPrice: dec("240.02"), Quantity: 1},
		},
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethodVietQR,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if !ord.Total.Equal(dec("500.00")) {
		t.Errorf("total = %s, want 500.00", ord.Total)
	}
	if ord.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", ord.Status)
	}
	if ord.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", ord.PaymentStatus)
	}
	if ord.OrderNumber == "" {
		t.Error("order number not assigned")
	}

	if len(bulk) != 2 {
		t.Fatalf("persisted %d item rows, want 2", len(bulk))
	}
	if !bulk[0].LineTotal.Equal(dec("259.98")) {
		t.Errorf("line total = %s, want 259.98", bulk[0].LineTotal)
	}
	if bulk[0].Name != "Silver Ring" || !bulk[0].UnitPrice.Equal(dec("129.99")) {
		t.Errorf("item not denormalized: %+v", bulk[0])
	}

	if len(events.Created) != 1 {
		t.Fatalf("published %d created events, want 1", len(events.Created))
	}
	if !events.Created[0].Total.Equal(dec("500.00")) {
		t.Errorf("event total = %s, want 500.00", events.Created[0].Total)
	}
}

func TestCreateOrder_CODStartsOnDelivery(t *testing.T) {
	orders := &MockOrderRepo{}
	storedOrder(orders)
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	ord, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Pearl Earrings", UnitPrice: dec("75.50"), Quantity: 1},
		},
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if ord.PaymentStatus != models.PaymentStatusOnDelivery {
		t.Errorf("payment status = %s, want on_delivery", ord.PaymentStatus)
	}
	if ord.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", ord.Status)
	}
}

func TestCreateOrder_EmptyBasket(t *testing.T) {
	created := false
	orders := &MockOrderRepo{
		CreateFunc: func(_ context.Context, _ *models.Order) error {
			created = true
			return nil
		},
	}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	_, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethodCOD,
	})
	if !errors.Is(err, service.ErrEmptyOrder) {
		t.Fatalf("err = %v, want ErrEmptyOrder", err)
	}
	if created {
		t.Error("order was persisted despite empty basket")
	}
}

func TestCreateOrder_RejectsBadItems(t *testing.T) {
	svc := service.NewOrderService(newTestRepo(&MockOrderRepo{}, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	_, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Ring", UnitPrice: dec("10.00"), Quantity: 0},
		},
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethodCOD,
	})
	if !errors.Is(err, service.ErrQuantityInvalid) {
		t.Errorf("zero quantity: err = %v, want ErrQuantityInvalid", err)
	}

	_, err = svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Ring", UnitPrice: dec("-1.00"), Quantity: 1},
		},
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethodCOD,
	})
	if !errors.Is(err, service.ErrPriceInvalid) {
		t.Errorf("negative price: err = %v, want ErrPriceInvalid", err)
	}

	_, err = svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Ring", UnitPrice: dec("10.00"), Quantity: 1},
		},
		Details:       validDetails(),
		PaymentMethod: models.PaymentMethod("PAYMENT_METHOD_CHEQUE"),
	})
	if !errors.Is(err, service.ErrInvalidPaymentMethod) {
		t.Errorf("unknown method: err = %v, want ErrInvalidPaymentMethod", err)
	}
}

func TestCreateOrder_DetailsValidation(t *testing.T) {
	svc := service.NewOrderService(newTestRepo(&MockOrderRepo{}, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	d := validDetails()
	d.Email = "not-an-email"
	d.City = ""

	_, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Ring", UnitPrice: dec("10.00"), Quantity: 1},
		},
		Details:       d,
		PaymentMethod: models.PaymentMethodCOD,
	})

	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}

	got := map[string]bool{}
	for _, f := range verr.Fields {
		got[f.Field] = true
	}
	if !got["email"] || !got["city"] {
		t.Errorf("fields = %v, want email and city flagged", verr.Fields)
	}
}

func TestCreateOrder_IdempotencyKeyReturnsExisting(t *testing.T) {
	key := uuid.New()
	existing := &models.Order{ID: uuid.New(), OrderNumber: "JW-20260831-ABCDEF01", IdempotencyKey: key}

	created := false
	orders := &MockOrderRepo{
		GetByIdempotencyKeyFunc: func(_ context.Context, k uuid.UUID) (*models.Order, error) {
			if k == key {
				return existing, nil
			}
			return nil, nil
		},
		CreateFunc: func(_ context.Context, _ *models.Order) error {
			created = true
			return nil
		},
	}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	ord, err := svc.CreateOrder(context.Background(), service.CreateOrderInput{
		Items: []service.CreateOrderItem{
			{ProductID: uuid.New(), Name: "Ring", UnitPrice: dec("10.00"), Quantity: 1},
		},
		Details:        validDetails(),
		PaymentMethod:  models.PaymentMethodCOD,
		IdempotencyKey: key,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if ord.ID != existing.ID {
		t.Errorf("returned order %s, want existing %s", ord.ID, existing.ID)
	}
	if created {
		t.Error("duplicate order was persisted for a known idempotency key")
	}
}

func fixedOrder(o *models.Order) *MockOrderRepo {
	return &MockOrderRepo{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*models.Order, error) {
			if id == o.ID {
				return o, nil
			}
			return nil, nil
		},
	}
}

func TestTransition_UnpaidAsyncOrderIsGated(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodVietQR,
		PaymentStatus: models.PaymentStatusPending,
	}
	svc := service.NewOrderService(newTestRepo(fixedOrder(ord), &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	for _, target := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusDelivered,
	} {
		_, err := svc.Transition(context.Background(), ord.ID, target)
		if !errors.Is(err, service.ErrPaymentRequired) {
			t.Errorf("Transition(%s): err = %v, want ErrPaymentRequired", target, err)
		}
	}
}

func TestTransition_CancelBypassesPaymentGate(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodVietQR,
		PaymentStatus: models.PaymentStatusPending,
	}
	orders := fixedOrder(ord)
	orders.UpdateStatusFunc = func(_ context.Context, _ uuid.UUID, status models.OrderStatus, _ *string) error {
		ord.Status = status
		return nil
	}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	got, err := svc.Transition(context.Background(), ord.ID, models.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("Transition(cancelled): %v", err)
	}
	if got.Status != models.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestTransition_FollowsStatusGraph(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodVietQR,
		PaymentStatus: models.PaymentStatusPaid,
	}
	orders := fixedOrder(ord)
	orders.UpdateStatusFunc = func(_ context.Context, _ uuid.UUID, status models.OrderStatus, _ *string) error {
		ord.Status = status
		return nil
	}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)
	ctx := context.Background()

	// skipping straight to delivered is not a legal edge
	if _, err := svc.Transition(ctx, ord.ID, models.OrderStatusDelivered); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("pending -> delivered: err = %v, want ErrInvalidTransition", err)
	}

	for _, step := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		got, err := svc.Transition(ctx, ord.ID, step)
		if err != nil {
			t.Fatalf("Transition(%s): %v", step, err)
		}
		if got.Status != step {
			t.Fatalf("status = %s, want %s", got.Status, step)
		}
	}

	// delivered is terminal
	if _, err := svc.Transition(ctx, ord.ID, models.OrderStatusCancelled); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("delivered -> cancelled: err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransition_OrderNotFound(t *testing.T) {
	svc := service.NewOrderService(newTestRepo(&MockOrderRepo{}, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)
	if _, err := svc.Transition(context.Background(), uuid.New(), models.OrderStatusProcessing); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestRecordPaymentResult_PaidIsIdempotent(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "JW-20260831-AAAA0001",
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodVietQR,
		PaymentStatus: models.PaymentStatusPending,
		Total:         dec("500.00"),
	}
	orders := fixedOrder(ord)

	updates := 0
	orders.UpdatePaymentStatusFunc = func(_ context.Context, _ uuid.UUID, status models.PaymentStatus) error {
		updates++
		ord.PaymentStatus = status
		return nil
	}

	pay := &models.Payment{ID: uuid.New(), OrderID: ord.ID, Status: models.PaymentStatusPending}
	payments := &MockPaymentRepo{
		GetByOrderIDFunc: func(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
			if orderID == ord.ID {
				return pay, nil
			}
			return nil, nil
		},
		UpdateStatusFunc: func(_ context.Context, _ uuid.UUID, status models.PaymentStatus, paidAt *time.Time) error {
			pay.Status = status
			pay.PaidAt = paidAt
			return nil
		},
	}

	events := &MockEventBus{}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, payments), events)
	ctx := context.Background()

	got, err := svc.RecordPaymentResult(ctx, ord.ID, models.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("first RecordPaymentResult: %v", err)
	}
	if got.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", got.PaymentStatus)
	}
	if pay.PaidAt == nil {
		t.Error("payment row PaidAt not set")
	}

	// the reconciler may observe paid on several polls
	if _, err := svc.RecordPaymentResult(ctx, ord.ID, models.PaymentStatusPaid); err != nil {
		t.Fatalf("second RecordPaymentResult: %v", err)
	}

	if updates != 1 {
		t.Errorf("order payment status written %d times, want 1", updates)
	}
	if len(events.Confirmed) != 1 {
		t.Errorf("published %d confirmed events, want 1", len(events.Confirmed))
	}
}

func TestRecordPaymentResult_PaidNeverBecomesFailed(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodVietQR,
		PaymentStatus: models.PaymentStatusPaid,
	}
	svc := service.NewOrderService(newTestRepo(fixedOrder(ord), &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	if _, err := svc.RecordPaymentResult(context.Background(), ord.ID, models.PaymentStatusFailed); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecordPaymentResult_RejectsCODAndNonResults(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusOnDelivery,
	}
	svc := service.NewOrderService(newTestRepo(fixedOrder(ord), &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)
	ctx := context.Background()

	if _, err := svc.RecordPaymentResult(ctx, ord.ID, models.PaymentStatusPaid); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("COD order: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.RecordPaymentResult(ctx, ord.ID, models.PaymentStatusPending); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("pending result: err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelOrder(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "JW-20260831-AAAA0002",
		Status:        models.OrderStatusProcessing,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusOnDelivery,
	}
	orders := fixedOrder(ord)

	var gotReason *string
	orders.UpdateStatusFunc = func(_ context.Context, _ uuid.UUID, status models.OrderStatus, reason *string) error {
		ord.Status = status
		ord.CancelReason = reason
		gotReason = reason
		return nil
	}

	events := &MockEventBus{}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), events)
	ctx := context.Background()

	reason := "changed my mind"
	got, err := svc.CancelOrder(ctx, ord.ID, &reason)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got.Status != models.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if gotReason == nil || *gotReason != reason {
		t.Errorf("reason = %v, want %q", gotReason, reason)
	}
	if len(events.Cancelled) != 1 {
		t.Errorf("published %d cancelled events, want 1", len(events.Cancelled))
	}

	// cancelling again reports the fact without failing hard
	got, err = svc.CancelOrder(ctx, ord.ID, nil)
	if !errors.Is(err, service.ErrAlreadyCancelled) {
		t.Fatalf("second cancel: err = %v, want ErrAlreadyCancelled", err)
	}
	if got == nil || got.Status != models.OrderStatusCancelled {
		t.Error("second cancel should still return the cancelled order")
	}
	if len(events.Cancelled) != 1 {
		t.Errorf("second cancel published an event, total %d", len(events.Cancelled))
	}
}

func TestCancelOrder_DeliveredCannotBeCancelled(t *testing.T) {
	ord := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusDelivered,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusOnDelivery,
	}
	svc := service.NewOrderService(newTestRepo(fixedOrder(ord), &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	if _, err := svc.CancelOrder(context.Background(), ord.ID, nil); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestListOrders_AppliesDefaults(t *testing.T) {
	var gotLimit, gotOffset int
	orders := &MockOrderRepo{
		ListFunc: func(_ context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
			gotLimit, gotOffset = f.Limit, f.Offset
			return []*models.Order{{ID: uuid.New()}}, 1, nil
		},
	}
	svc := service.NewOrderService(newTestRepo(orders, &MockOrderItemRepo{}, &MockPaymentRepo{}), nil)

	list, total, err := svc.ListOrders(context.Background(), service.ListFilter{Limit: 0, Offset: -3})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("got %d orders (total %d), want 1", len(list), total)
	}
	if gotLimit != 20 || gotOffset != 0 {
		t.Errorf("limit/offset = %d/%d, want 20/0", gotLimit, gotOffset)
	}
}
