package checkout

import (
	"context"
	"errors"
	"sync"

	"jewelry-backend/internal/basket"
	"jewelry-backend/internal/models"
	"jewelry-backend/internal/payment"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service drives a checkout submission end to end: snapshot the basket,
// create the order, and either clear the basket right away (COD) or hand
// the order to the payment reconciler (VietQR/MoMo).
type Service struct {
	orders     service.OrderService
	basket     *basket.Service
	qr         payment.QRGenerator
	payments   repository.PaymentRepo
	reconciler *payment.Reconciler
	log        *zap.Logger

	mu          sync.Mutex
	onConfirmed []func(orderID uuid.UUID)
}

func NewService(
	orders service.OrderService,
	basketSvc *basket.Service,
	qr payment.QRGenerator,
	payments repository.PaymentRepo,
	reconciler *payment.Reconciler,
	log *zap.Logger,
) *Service {
	return &Service{
		orders:     orders,
		basket:     basketSvc,
		qr:         qr,
		payments:   payments,
		reconciler: reconciler,
		log:        log,
	}
}

type SubmitInput struct {
	SessionID      string
	Details        service.ShippingDetails
	PaymentMethod  models.PaymentMethod
	CustomerID     *uuid.UUID
	IdempotencyKey uuid.UUID
}

type SubmitResult struct {
	Order *models.Order
	// QR is nil for COD; for async methods the client renders it and
	// polls until the reconciler resolves.
	QR *payment.QRCode
}

// OnPaymentConfirmed registers a callback fired exactly once per order
// when its async payment is confirmed.
func (s *Service) OnPaymentConfirmed(fn func(orderID uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConfirmed = append(s.onConfirmed, fn)
}

func (s *Service) notifyConfirmed(orderID uuid.UUID) {
	s.mu.Lock()
	callbacks := make([]func(uuid.UUID), len(s.onConfirmed))
	copy(callbacks, s.onConfirmed)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(orderID)
	}
}

// Submit converts the live basket into an order. A failed creation leaves
// the basket exactly as the user left it; clearing happens immediately for
// COD and only on confirmed payment for async methods.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	snap, err := s.basket.TakeSnapshot(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	items := make([]service.CreateOrderItem, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, service.CreateOrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	order, err := s.orders.CreateOrder(ctx, service.CreateOrderInput{
		Items:          items,
		Details:        in.Details,
		PaymentMethod:  in.PaymentMethod,
		CustomerID:     in.CustomerID,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	if !in.PaymentMethod.AsyncConfirmation() {
		// COD: the order proceeds without payment confirmation, clear now
		if err := s.basket.ClearSnapshot(ctx, in.SessionID, snap); err != nil {
			s.log.Error("basket clear after COD order failed",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
		return &SubmitResult{Order: order}, nil
	}

	qr, err := s.ensurePayment(ctx, order)
	if err != nil {
		// the order exists but has no QR; the basket stays untouched so
		// the user can resubmit with the same idempotency key
		return nil, err
	}

	// the watch must outlive this request: it runs on the reconciler's
	// own context, not on ctx
	sessionID := in.SessionID
	err = s.reconciler.Watch(order.ID, qr.ExpiresAt, payment.Hooks{
		ClearBasket: func(cctx context.Context) error {
			return s.basket.ClearSnapshot(cctx, sessionID, snap)
		},
		OnConfirmed: s.notifyConfirmed,
	})
	if err != nil && !errors.Is(err, payment.ErrAlreadyWatching) {
		return nil, err
	}

	return &SubmitResult{Order: order, QR: qr}, nil
}

// ensurePayment returns the QR already issued for the order, or generates
// and persists a fresh one. Resubmitting a checkout therefore reuses the
// original charge reference instead of minting a second one.
func (s *Service) ensurePayment(ctx context.Context, order *models.Order) (*payment.QRCode, error) {
	existing, err := s.payments.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &payment.QRCode{
			ReferenceID: existing.ReferenceID,
			QRImageURL:  existing.QRImageURL,
			ExpiresAt:   existing.ExpiresAt,
		}, nil
	}

	qr, err := s.qr.Generate(ctx, order.ID, order.Total, order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if err := s.payments.Create(ctx, &models.Payment{
		OrderID:     order.ID,
		Method:      order.PaymentMethod,
		Status:      models.PaymentStatusPending,
		Amount:      order.Total,
		ReferenceID: qr.ReferenceID,
		QRImageURL:  qr.QRImageURL,
		ExpiresAt:   qr.ExpiresAt,
	}); err != nil {
		return nil, err
	}

	return &qr, nil
}

// CancelPaymentWait stops polling for the order. The order itself keeps
// whatever state the server recorded.
func (s *Service) CancelPaymentWait(orderID uuid.UUID) bool {
	return s.reconciler.Cancel(orderID)
}

// CheckPaymentNow triggers one immediate poll for the order.
func (s *Service) CheckPaymentNow(ctx context.Context, orderID uuid.UUID) (payment.WatchState, error) {
	return s.reconciler.CheckNow(ctx, orderID)
}

// PaymentWaitState reports the reconciler state for the order, if watched.
func (s *Service) PaymentWaitState(orderID uuid.UUID) (payment.WatchState, bool) {
	return s.reconciler.State(orderID)
}
