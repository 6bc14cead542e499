package session

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
)

type fakeSaver struct {
	mu         gosync.Mutex
	snapshots  [][]models.ResponseUpsert
	percentage float64
	err        error
}

func (f *fakeSaver) SaveProgress(_ context.Context, _ string, responses []models.ResponseUpsert) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	f.snapshots = append(f.snapshots, responses)
	return f.percentage, nil
}

func (f *fakeSaver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func testLogger() *slog.Logger {
	return utils.ToSlogLogger(utils.NewDevelopmentLogger())
}

func testAutosave(t *testing.T, saver *fakeSaver, bus *sync.Bus, interval time.Duration) *AutosaveScheduler {
	t.Helper()

	store := NewResponseStore()
	store.SetAnswer("section_1_q1", models.SingleAnswer("yes"))
	sections := testSections(1)

	return NewAutosaveScheduler(AutosaveConfig{
		Saver:        saver,
		Bus:          bus,
		TabID:        sync.NewTabID(),
		AssessmentID: "assessment-1",
		Interval:     interval,
		Snapshot:     func() []models.ResponseUpsert { return store.Snapshot(sections) },
		Logger:       testLogger(),
	})
}

func TestAutosaveScheduler_SaveNow(t *testing.T) {
	saver := &fakeSaver{percentage: 33.3}
	autosave := testAutosave(t, saver, nil, time.Hour)

	require.NoError(t, autosave.SaveNow(context.Background()))

	assert.Equal(t, 1, saver.calls())
	assert.Equal(t, 33.3, autosave.ServerPercentage())
	assert.False(t, autosave.LastSavedAt().IsZero())
	assert.Len(t, saver.snapshots[0], 1, "save dispatches the full snapshot")
}

func TestAutosaveScheduler_FailureIsRecoverable(t *testing.T) {
	saver := &fakeSaver{err: errors.New("connection refused")}
	autosave := testAutosave(t, saver, nil, time.Hour)

	err := autosave.SaveNow(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.True(t, IsRecoverable(err))
	assert.True(t, autosave.LastSavedAt().IsZero(), "a failed save must not advance the save marker")

	// The next trigger retries with the latest data.
	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	require.NoError(t, autosave.SaveNow(context.Background()))
	assert.Equal(t, 1, saver.calls())
}

func TestAutosaveScheduler_RecurringTimer(t *testing.T) {
	saver := &fakeSaver{}
	autosave := testAutosave(t, saver, nil, 10*time.Millisecond)

	autosave.Start(context.Background())
	defer autosave.Stop()

	assert.Eventually(t, func() bool { return saver.calls() >= 2 },
		time.Second, 5*time.Millisecond, "timer should keep firing")
}

func TestAutosaveScheduler_BroadcastsOnSuccess(t *testing.T) {
	bus := sync.NewBus(sync.NewGoChannelTransport(testLogger()), testLogger())
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Close()

	events := make(chan sync.Event, 1)
	unsubscribe := bus.Subscribe("other-tab", func(event sync.Event) {
		events <- event
	})
	defer unsubscribe()

	saver := &fakeSaver{percentage: 50}
	autosave := testAutosave(t, saver, bus, time.Hour)

	require.NoError(t, autosave.SaveNow(context.Background()))

	select {
	case event := <-events:
		assert.Equal(t, sync.EventProgressSaved, event.Type)
		assert.Equal(t, "assessment-1", event.AssessmentID)
		assert.Equal(t, 50.0, event.Payload["progress_percentage"])
	case <-time.After(time.Second):
		t.Fatal("expected a PROGRESS_SAVED broadcast")
	}
}
