package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// storageKey is the shared cache key the fallback transport writes
	// events through, one at a time.
	storageKey = ChannelName + ":event"

	defaultPollInterval = 50 * time.Millisecond
	defaultRemoveDelay  = 100 * time.Millisecond

	// keyTTL bounds the key's lifetime even if the delayed removal never
	// runs (process exit between write and delete).
	keyTTL = 5 * time.Second
)

// envelope wraps a payload with a unique id so pollers can tell a fresh
// write from the one they already delivered, even when two consecutive
// events are byte-identical.
type envelope struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// RedisTransport is the shared-storage fallback transport: events are
// written to a single short-lived Redis key and picked up by polling, the
// way the storage-event fallback works where no broadcast primitive is
// available. The writer removes the key shortly after writing so repeated
// identical events are never suppressed by no-change detection.
type RedisTransport struct {
	client       *redis.Client
	logger       *slog.Logger
	pollInterval time.Duration
	removeDelay  time.Duration
}

// RedisTransportConfig holds tuning knobs for the fallback transport.
// Zero values select the defaults.
type RedisTransportConfig struct {
	PollInterval time.Duration
	RemoveDelay  time.Duration
}

// NewRedisTransport creates a polling transport over the given client.
func NewRedisTransport(client *redis.Client, logger *slog.Logger, cfg RedisTransportConfig) *RedisTransport {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RemoveDelay <= 0 {
		cfg.RemoveDelay = defaultRemoveDelay
	}
	return &RedisTransport{
		client:       client,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		removeDelay:  cfg.RemoveDelay,
	}
}

func (t *RedisTransport) Publish(ctx context.Context, payload []byte) error {
	env := envelope{
		ID:   uuid.NewString(),
		Data: json.RawMessage(payload),
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal sync envelope: %w", err)
	}

	if err := t.client.Set(ctx, storageKey, raw, keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to write sync key: %w", err)
	}

	// Remove the key shortly after writing; pollers have at least one
	// full poll interval to observe it.
	time.AfterFunc(t.removeDelay, func() {
		if err := t.client.Del(context.Background(), storageKey).Err(); err != nil {
			t.logger.Debug("Failed to remove sync key", "error", err)
		}
	})

	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)

	go func() {
		defer close(out)

		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()

		var lastID string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			raw, err := t.client.Get(ctx, storageKey).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.logger.Debug("Sync key poll failed", "error", err)
				continue
			}

			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.logger.Warn("Dropping malformed sync envelope", "error", err)
				continue
			}
			if env.ID == lastID {
				continue
			}
			lastID = env.ID

			select {
			case out <- []byte(env.Data):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (t *RedisTransport) Close() error {
	return nil
}
