package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"jewelry-backend/internal/models"
	"jewelry-backend/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WatchState is the client-side wait state for one order's payment.
type WatchState string

const (
	// StateAwaiting: between ticks, no poll in flight.
	StateAwaiting WatchState = "awaiting"
	// StatePolling: a check request is in flight; further ticks are
	// skipped until it resolves.
	StatePolling WatchState = "polling"
	// StateConfirmed: terminal; payment observed paid, side effects fired.
	StateConfirmed WatchState = "confirmed"
	// StateExpired: terminal; QR validity window elapsed.
	StateExpired WatchState = "expired"
	// StateFailed: terminal; gateway reported the charge failed.
	StateFailed WatchState = "failed"
	// StateCancelled: terminal; user abandoned the wait.
	StateCancelled WatchState = "cancelled"
)

func (s WatchState) Terminal() bool {
	switch s {
	case StateConfirmed, StateExpired, StateFailed, StateCancelled:
		return true
	}
	return false
}

const (
	DefaultPollInterval = 5 * time.Second
	// after this many consecutive poll errors the watcher logs a degraded
	// warning; it keeps ticking either way (transient failures read as
	// "still pending")
	DefaultFailureThreshold = 5
	// a finished watch stays readable for this long so the status endpoint
	// can still report the terminal state, then the entry is pruned
	DefaultWatchRetention = time.Minute
)

var ErrAlreadyWatching = errors.New("order already has a payment watch")

// Hooks are the side effects bound to one watched order. OnConfirmed and
// ClearBasket run exactly once, on the poll that performs the transition
// into StateConfirmed.
type Hooks struct {
	ClearBasket func(ctx context.Context) error
	OnConfirmed func(orderID uuid.UUID)
	OnExpired   func(orderID uuid.UUID)
	OnFailed    func(orderID uuid.UUID)
}

type watch struct {
	orderID   uuid.UUID
	expiresAt time.Time
	hooks     Hooks
	cancel    context.CancelFunc

	mu       sync.Mutex
	state    WatchState
	failures int
}

// Reconciler bridges asynchronous external payment confirmation back into
// recorded order state. One watcher goroutine per order, strictly
// sequential polls, exactly-once confirmation side effects.
type Reconciler struct {
	source           StatusSource
	orders           service.OrderService
	interval         time.Duration
	retention        time.Duration
	failureThreshold int
	log              *zap.Logger
	now              func() time.Time

	// watcher goroutines live as long as the reconciler, not as long as
	// the request that started them
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	watches map[uuid.UUID]*watch
}

func NewReconciler(source StatusSource, orders service.OrderService, interval, retention time.Duration, log *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if retention <= 0 {
		retention = DefaultWatchRetention
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Reconciler{
		source:           source,
		orders:           orders,
		interval:         interval,
		retention:        retention,
		failureThreshold: DefaultFailureThreshold,
		log:              log,
		now:              time.Now,
		baseCtx:          baseCtx,
		baseCancel:       baseCancel,
		watches:          make(map[uuid.UUID]*watch),
	}
}

// Watch starts the polling loop for an order awaiting async confirmation.
// The watcher runs on the reconciler's own context, so it keeps polling
// after the checkout request that started it has completed.
func (r *Reconciler) Watch(orderID uuid.UUID, expiresAt time.Time, hooks Hooks) error {
	r.mu.Lock()
	if w, ok := r.watches[orderID]; ok && !w.stateSnapshot().Terminal() {
		r.mu.Unlock()
		return ErrAlreadyWatching
	}

	wctx, cancel := context.WithCancel(r.baseCtx)
	w := &watch{
		orderID:   orderID,
		expiresAt: expiresAt,
		hooks:     hooks,
		cancel:    cancel,
		state:     StateAwaiting,
	}
	r.watches[orderID] = w
	r.mu.Unlock()

	go r.run(wctx, w)
	return nil
}

// State reports the current wait state for an order.
func (r *Reconciler) State(orderID uuid.UUID) (WatchState, bool) {
	r.mu.Lock()
	w, ok := r.watches[orderID]
	r.mu.Unlock()
	if !ok {
		return "", false
	}
	return w.stateSnapshot(), true
}

// CheckNow performs one immediate poll (the "check now" button). It is
// skipped if a scheduled poll is already in flight, preserving the
// single-flight guarantee.
func (r *Reconciler) CheckNow(ctx context.Context, orderID uuid.UUID) (WatchState, error) {
	r.mu.Lock()
	w, ok := r.watches[orderID]
	r.mu.Unlock()
	if !ok {
		return "", ErrPaymentNotFound
	}
	r.tick(ctx, w)
	return w.stateSnapshot(), nil
}

// Cancel stops the polling loop for an order. A poll already in flight is
// not retracted; a paid response landing after this call is logged and
// otherwise ignored.
func (r *Reconciler) Cancel(orderID uuid.UUID) bool {
	r.mu.Lock()
	w, ok := r.watches[orderID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	w.mu.Lock()
	if w.state.Terminal() {
		w.mu.Unlock()
		return false
	}
	w.state = StateCancelled
	w.mu.Unlock()

	w.cancel()
	r.log.Info("payment wait cancelled", zap.String("order_id", orderID.String()))
	return true
}

// Shutdown stops every active watcher.
func (r *Reconciler) Shutdown() {
	r.baseCancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.watches {
		w.cancel()
	}
}

func (r *Reconciler) run(ctx context.Context, w *watch) {
	defer w.cancel()
	defer r.scheduleRemoval(w)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx, w)
			if w.stateSnapshot().Terminal() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tick runs a single poll cycle: expiry check, single-flight guard, poll,
// state transition. Safe to call concurrently with the scheduled loop.
func (r *Reconciler) tick(ctx context.Context, w *watch) {
	w.mu.Lock()
	if w.state.Terminal() {
		w.mu.Unlock()
		return
	}
	if w.state == StatePolling {
		// previous poll has not resolved; skip this tick
		w.mu.Unlock()
		return
	}
	if !r.now().Before(w.expiresAt) {
		w.state = StateExpired
		w.mu.Unlock()
		// no server-side write: an unpaid order past expiry is reaped by
		// a separate cleanup process
		r.log.Info("payment QR expired", zap.String("order_id", w.orderID.String()))
		if w.hooks.OnExpired != nil {
			w.hooks.OnExpired(w.orderID)
		}
		return
	}
	w.state = StatePolling
	w.mu.Unlock()

	status, err := r.source.Check(ctx, w.orderID)

	w.mu.Lock()
	if w.state == StateCancelled {
		w.mu.Unlock()
		if err == nil && status == models.PaymentStatusPaid {
			// informational only: the wait was abandoned locally, the
			// server-side record stays authoritative
			r.log.Info("paid response received after local cancel",
				zap.String("order_id", w.orderID.String()))
		}
		return
	}

	if err != nil {
		w.failures++
		w.state = StateAwaiting
		degraded := w.failures >= r.failureThreshold
		failures := w.failures
		w.mu.Unlock()
		if degraded {
			r.log.Warn("payment polling degraded",
				zap.String("order_id", w.orderID.String()),
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
		} else {
			r.log.Debug("payment poll failed, treating as pending",
				zap.String("order_id", w.orderID.String()), zap.Error(err))
		}
		return
	}
	w.failures = 0

	switch status {
	case models.PaymentStatusPaid:
		// this poll performs the transition, so it alone runs the side
		// effects; later observations of paid find a terminal state
		w.state = StateConfirmed
		w.mu.Unlock()
		r.confirm(ctx, w)
	case models.PaymentStatusFailed:
		w.state = StateFailed
		w.mu.Unlock()
		r.log.Info("payment reported failed", zap.String("order_id", w.orderID.String()))
		r.recordResult(ctx, w.orderID, models.PaymentStatusFailed)
		if w.hooks.OnFailed != nil {
			w.hooks.OnFailed(w.orderID)
		}
	default:
		w.state = StateAwaiting
		w.mu.Unlock()
	}
}

// scheduleRemoval prunes the finished watch once its retention window
// elapses. The pointer comparison keeps a newer watch for the same order
// from being swept by the old entry's timer.
func (r *Reconciler) scheduleRemoval(w *watch) {
	time.AfterFunc(r.retention, func() {
		r.mu.Lock()
		if cur, ok := r.watches[w.orderID]; ok && cur == w {
			delete(r.watches, w.orderID)
		}
		r.mu.Unlock()
	})
}

func (r *Reconciler) confirm(ctx context.Context, w *watch) {
	r.recordResult(ctx, w.orderID, models.PaymentStatusPaid)

	if w.hooks.ClearBasket != nil {
		if err := w.hooks.ClearBasket(ctx); err != nil {
			r.log.Error("basket clear after confirmation failed",
				zap.String("order_id", w.orderID.String()), zap.Error(err))
		}
	}
	if w.hooks.OnConfirmed != nil {
		w.hooks.OnConfirmed(w.orderID)
	}

	r.log.Info("payment confirmed", zap.String("order_id", w.orderID.String()))
}

func (r *Reconciler) recordResult(ctx context.Context, orderID uuid.UUID, status models.PaymentStatus) {
	// RecordPaymentResult is idempotent, so racing the simulator or a
	// concurrent admin update is harmless
	if _, err := r.orders.RecordPaymentResult(ctx, orderID, status); err != nil {
		r.log.Error("failed to record payment result",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (w *watch) stateSnapshot() WatchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
