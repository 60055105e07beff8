package basket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrQuantityInvalid = errors.New("quantity must be > 0")

// Item is one line of the live, editable basket.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  uint32          `json:"quantity"`
}

// Snapshot is the immutable copy of the basket taken at checkout
// submission. Later edits to the live basket do not touch it.
type Snapshot struct {
	Items      []Item          `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Store persists the live basket per session.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Item, error)
	Put(ctx context.Context, sessionID string, items []Item) error
	Delete(ctx context.Context, sessionID string) error
}

// Watcher is implemented by stores that can signal basket changes made
// elsewhere, e.g. in another browser tab of the same session.
type Watcher interface {
	Subscribe(ctx context.Context, sessionID string) <-chan struct{}
}

// Service owns the live basket. It is injected explicitly through the
// checkout call chain; there is no ambient global basket state.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) Items(ctx context.Context, sessionID string) ([]Item, error) {
	return s.store.Get(ctx, sessionID)
}

// Watch reports basket change signals for the session, when the backing
// store supports them.
func (s *Service) Watch(ctx context.Context, sessionID string) (<-chan struct{}, bool) {
	w, ok := s.store.(Watcher)
	if !ok {
		return nil, false
	}
	return w.Subscribe(ctx, sessionID), true
}

// AddItem merges the quantity into an existing line for the same product,
// or appends a new line.
func (s *Service) AddItem(ctx context.Context, sessionID string, item Item) error {
	if item.Quantity == 0 {
		return ErrQuantityInvalid
	}

	items, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}

	return s.store.Put(ctx, sessionID, items)
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) error {
	items, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return s.store.Put(ctx, sessionID, kept)
}

// TakeSnapshot copies the current basket without mutating it.
func (s *Service) TakeSnapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	items, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	copied := make([]Item, len(items))
	copy(copied, items)

	total := decimal.Zero
	for _, it := range copied {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return Snapshot{
		Items:      copied,
		Total:      total.Round(2),
		CapturedAt: s.now(),
	}, nil
}

// ClearSnapshot removes exactly the snapshotted quantities from the live
// basket. Items (or extra quantity) added after the snapshot was taken
// survive. Clearing an already empty basket is a no-op.
func (s *Service) ClearSnapshot(ctx context.Context, sessionID string, snap Snapshot) error {
	items, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	taken := make(map[uuid.UUID]uint32, len(snap.Items))
	for _, it := range snap.Items {
		taken[it.ProductID] += it.Quantity
	}

	kept := items[:0]
	for _, it := range items {
		q := taken[it.ProductID]
		switch {
		case q == 0:
			kept = append(kept, it)
		case it.Quantity > q:
			it.Quantity -= q
			kept = append(kept, it)
		}
	}

	if len(kept) == 0 {
		return s.store.Delete(ctx, sessionID)
	}
	return s.store.Put(ctx, sessionID, kept)
}
