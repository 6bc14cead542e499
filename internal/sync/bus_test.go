package sync

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func startBus(t *testing.T, transport Transport) *Bus {
	t.Helper()

	bus := NewBus(transport, testLogger())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		_ = bus.Close()
	})
	return bus
}

func TestBus_OriginFiltering(t *testing.T) {
	bus := startBus(t, NewGoChannelTransport(testLogger()))

	tabX := NewTabID()
	tabY := NewTabID()
	require.NotEqual(t, tabX, tabY)

	var deliveredToX, deliveredToY atomic.Int32
	bus.Subscribe(tabX, func(Event) { deliveredToX.Add(1) })
	bus.Subscribe(tabY, func(Event) { deliveredToY.Add(1) })

	err := bus.Publish(context.Background(), Event{
		Type:         EventProgressSaved,
		AssessmentID: "assessment-1",
		OriginTabID:  tabX,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return deliveredToY.Load() == 1
	}, time.Second, 5*time.Millisecond, "sibling tab should receive the event")

	// The originating tab must never see its own event.
	assert.Equal(t, int32(0), deliveredToX.Load())
}

func TestBus_FillsTimestamp(t *testing.T) {
	bus := startBus(t, NewGoChannelTransport(testLogger()))

	received := make(chan Event, 1)
	bus.Subscribe(NewTabID(), func(ev Event) { received <- ev })

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:         EventAssessmentStarted,
		AssessmentID: "assessment-1",
		OriginTabID:  NewTabID(),
	}))

	select {
	case ev := <-received:
		assert.False(t, ev.Timestamp.IsZero())
		assert.Equal(t, EventAssessmentStarted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := startBus(t, NewGoChannelTransport(testLogger()))

	var delivered atomic.Int32
	tabID := NewTabID()
	unsubscribe := bus.Subscribe(tabID, func(Event) { delivered.Add(1) })
	unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:         EventProgressSaved,
		AssessmentID: "assessment-1",
		OriginTabID:  "some-other-tab",
	}))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), delivered.Load())
}

func TestBus_PanickingHandlerDoesNotStopDispatch(t *testing.T) {
	bus := startBus(t, NewGoChannelTransport(testLogger()))

	var delivered atomic.Int32
	bus.Subscribe(NewTabID(), func(Event) { panic("handler failure") })
	bus.Subscribe(NewTabID(), func(Event) { delivered.Add(1) })

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:         EventAssessmentCompleted,
		AssessmentID: "assessment-1",
		OriginTabID:  "origin",
	}))

	require.Eventually(t, func() bool {
		return delivered.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRedisTransport_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	transport := NewRedisTransport(client, testLogger(), RedisTransportConfig{
		PollInterval: 5 * time.Millisecond,
		RemoveDelay:  25 * time.Millisecond,
	})
	bus := startBus(t, transport)

	originTab := NewTabID()
	received := make(chan Event, 4)
	bus.Subscribe(NewTabID(), func(ev Event) { received <- ev })

	require.NoError(t, bus.Publish(context.Background(), Event{
		Type:         EventProgressSaved,
		AssessmentID: "assessment-42",
		OriginTabID:  originTab,
	}))

	select {
	case ev := <-received:
		assert.Equal(t, EventProgressSaved, ev.Type)
		assert.Equal(t, "assessment-42", ev.AssessmentID)
		assert.Equal(t, originTab, ev.OriginTabID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered through Redis transport")
	}
}

func TestRedisTransport_RepeatedIdenticalEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	transport := NewRedisTransport(client, testLogger(), RedisTransportConfig{
		PollInterval: 5 * time.Millisecond,
		RemoveDelay:  25 * time.Millisecond,
	})
	bus := startBus(t, transport)

	var delivered atomic.Int32
	bus.Subscribe(NewTabID(), func(Event) { delivered.Add(1) })

	event := Event{
		Type:         EventProgressSaved,
		AssessmentID: "assessment-42",
		OriginTabID:  "writer-tab",
		Timestamp:    time.Unix(1700000000, 0),
	}

	// Two identical events must both arrive: the writer removes the key
	// between writes, and the envelope id distinguishes the second write.
	require.NoError(t, bus.Publish(context.Background(), event))
	require.Eventually(t, func() bool {
		return delivered.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), event))
	require.Eventually(t, func() bool {
		return delivered.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
}
