package basket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const basketTTL = 7 * 24 * time.Hour

// RedisStore keeps the live basket in Redis keyed by session. Every write
// publishes a change notification on a per-session channel so other tabs
// of the same session can refresh (cross-tab sync).
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(addr, password string, db int, log *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))

	return &RedisStore{client: rdb, log: log}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func basketKey(sessionID string) string  { return "basket:" + sessionID }
func basketChan(sessionID string) string { return "basket:changed:" + sessionID }

func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]Item, error) {
	raw, err := s.client.Get(ctx, basketKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("corrupt basket payload: %w", err)
	}
	return items, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, items []Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, basketKey(sessionID), raw, basketTTL).Err(); err != nil {
		return err
	}
	s.notify(ctx, sessionID)
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, basketKey(sessionID)).Err(); err != nil {
		return err
	}
	s.notify(ctx, sessionID)
	return nil
}

func (s *RedisStore) notify(ctx context.Context, sessionID string) {
	if err := s.client.Publish(ctx, basketChan(sessionID), "changed").Err(); err != nil {
		s.log.Warn("basket change notification failed", zap.String("session", sessionID), zap.Error(err))
	}
}

// Subscribe delivers a signal each time the session's basket changes in
// another tab. The channel closes when ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context, sessionID string) <-chan struct{} {
	sub := s.client.Subscribe(ctx, basketChan(sessionID))
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
