package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle milestone broadcast between tabs.
type EventType string

const (
	EventAssessmentStarted   EventType = "ASSESSMENT_STARTED"
	EventProgressSaved       EventType = "PROGRESS_SAVED"
	EventAssessmentCompleted EventType = "ASSESSMENT_COMPLETED"
)

// ChannelName is the fixed channel all tabs of one deployment share.
const ChannelName = "echostor-assessment-sync"

// Event is one message on the sync channel. OriginTabID identifies the
// publishing tab; subscribers use it to drop their own events.
type Event struct {
	Type         EventType      `json:"type"`
	AssessmentID string         `json:"assessment_id"`
	Timestamp    time.Time      `json:"timestamp"`
	OriginTabID  string         `json:"origin_tab_id,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// Handler receives events from other tabs. Delivery is at-least-once and
// unordered; handlers must tolerate duplicates and stale events.
type Handler func(Event)

// Transport carries raw event payloads between tabs. Transports deliver
// every published payload to every subscriber, the publisher included;
// origin filtering is the bus's job, never the transport's.
type Transport interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
	Close() error
}

// NewTabID generates the per-tab identifier used to suppress
// self-notification. Generated once at tab startup.
func NewTabID() string {
	return "tab-" + uuid.NewString()
}

type subscription struct {
	tabID   string
	handler Handler
}

// Bus is the cross-tab synchronization bus: a thin dispatch layer over a
// Transport that tags outgoing events with their origin tab and filters
// incoming events per subscription. It is constructed and owned by the
// composition root; Start and Close bound its lifecycle.
type Bus struct {
	transport Transport
	logger    *slog.Logger

	mu     sync.Mutex
	subs   map[uint64]subscription
	nextID uint64

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewBus creates a bus over the given transport.
func NewBus(transport Transport, logger *slog.Logger) *Bus {
	return &Bus{
		transport: transport,
		logger:    logger,
		subs:      make(map[uint64]subscription),
	}
}

// Start begins receiving from the transport and dispatching to
// subscribers. It must be called exactly once before Publish or Subscribe
// are useful; Close undoes it.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("sync bus already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	payloads, err := b.transport.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to sync transport: %w", err)
	}

	b.cancel = cancel
	b.done = make(chan struct{})
	b.started = true

	go b.dispatchLoop(payloads)

	return nil
}

// Publish broadcasts an event on the shared channel. A zero timestamp is
// filled in at publish time.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}

	if err := b.transport.Publish(ctx, payload); err != nil {
		b.logger.Error("Failed to publish sync event",
			"event_type", event.Type,
			"assessment_id", event.AssessmentID,
			"error", err)
		return fmt.Errorf("failed to publish sync event: %w", err)
	}

	b.logger.Debug("Published sync event",
		"event_type", event.Type,
		"assessment_id", event.AssessmentID,
		"origin_tab_id", event.OriginTabID)

	return nil
}

// Subscribe registers a handler for events published by other tabs.
// Events whose OriginTabID equals tabID are filtered out here, so a tab
// never observes its own broadcasts. The returned function removes the
// subscription.
func (b *Bus) Subscribe(tabID string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{tabID: tabID, handler: handler}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Close stops dispatching and closes the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return b.transport.Close()
	}
	b.started = false
	cancel := b.cancel
	done := b.done
	b.mu.Unlock()

	cancel()
	<-done

	return b.transport.Close()
}

func (b *Bus) dispatchLoop(payloads <-chan []byte) {
	defer close(b.done)

	for payload := range payloads {
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			b.logger.Warn("Dropping malformed sync event", "error", err)
			continue
		}
		b.dispatch(event)
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.Lock()
	subs := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if event.OriginTabID != "" && event.OriginTabID == sub.tabID {
			continue
		}
		b.invoke(sub.handler, event)
	}
}

func (b *Bus) invoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in sync event handler",
				"event_type", event.Type,
				"panic_value", r)
		}
	}()
	handler(event)
}
