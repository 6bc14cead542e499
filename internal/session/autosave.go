package session

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/models"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
)

// DefaultAutosaveInterval is the recurring save period while an
// assessment is loaded.
const DefaultAutosaveInterval = 10 * time.Minute

// ProgressSaver is the persistence collaborator for snapshot saves. It
// returns the server-computed progress percentage, authoritative once the
// save completes.
type ProgressSaver interface {
	SaveProgress(ctx context.Context, assessmentID string, responses []models.ResponseUpsert) (float64, error)
}

// AutosaveScheduler pushes full response snapshots to the persistence
// collaborator on a recurring timer, before section transitions, on
// explicit request, and once before an inactivity exit. It dispatches
// snapshots, not deltas; overlapping saves are allowed because the server
// applies the most recently arrived full snapshot.
type AutosaveScheduler struct {
	saver        ProgressSaver
	bus          *sync.Bus
	tabID        string
	assessmentID string
	interval     time.Duration
	snapshot     func() []models.ResponseUpsert
	logger       *slog.Logger

	mu               gosync.Mutex
	lastSavedAt      time.Time
	serverPercentage float64

	stop    chan struct{}
	done    chan struct{}
	started bool
}

// AutosaveConfig wires an AutosaveScheduler. Bus is optional; when set,
// each successful save broadcasts ProgressSaved tagged with TabID.
type AutosaveConfig struct {
	Saver        ProgressSaver
	Bus          *sync.Bus
	TabID        string
	AssessmentID string
	Interval     time.Duration
	Snapshot     func() []models.ResponseUpsert
	Logger       *slog.Logger
}

// NewAutosaveScheduler creates a scheduler. A non-positive interval
// selects the default.
func NewAutosaveScheduler(cfg AutosaveConfig) *AutosaveScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAutosaveInterval
	}
	return &AutosaveScheduler{
		saver:        cfg.Saver,
		bus:          cfg.Bus,
		tabID:        cfg.TabID,
		assessmentID: cfg.AssessmentID,
		interval:     cfg.Interval,
		snapshot:     cfg.Snapshot,
		logger:       cfg.Logger,
	}
}

// Start arms the recurring timer. Timer-triggered save failures are
// recoverable: they are logged and the next trigger retries with the
// latest data.
func (a *AutosaveScheduler) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return
	}
	a.started = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})

	go a.run(ctx)
}

// Stop cancels the recurring timer. An in-flight save is not cancelled;
// once dispatched it is allowed to finish.
func (a *AutosaveScheduler) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	stop := a.stop
	done := a.done
	a.mu.Unlock()

	close(stop)
	<-done
}

// SaveNow snapshots the current store content and dispatches it. On
// success the local last-saved timestamp and the server's percentage are
// recorded and ProgressSaved is broadcast; on failure local state is left
// untouched so the next trigger retries.
func (a *AutosaveScheduler) SaveNow(ctx context.Context) error {
	snapshot := a.snapshot()

	percentage, err := a.saver.SaveProgress(ctx, a.assessmentID, snapshot)
	if err != nil {
		a.logger.Warn("Progress save failed",
			"assessment_id", a.assessmentID,
			"responses", len(snapshot),
			"error", err)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	now := time.Now()
	a.mu.Lock()
	a.lastSavedAt = now
	a.serverPercentage = percentage
	a.mu.Unlock()

	a.logger.Info("Progress saved",
		"assessment_id", a.assessmentID,
		"responses", len(snapshot),
		"progress_percentage", percentage)

	if a.bus != nil {
		event := sync.Event{
			Type:         sync.EventProgressSaved,
			AssessmentID: a.assessmentID,
			OriginTabID:  a.tabID,
			Payload:      map[string]any{"progress_percentage": percentage},
		}
		if err := a.bus.Publish(ctx, event); err != nil {
			a.logger.Warn("Failed to broadcast save", "error", err)
		}
	}

	return nil
}

// LastSavedAt returns the time of the last successful save, zero if none.
func (a *AutosaveScheduler) LastSavedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSavedAt
}

// ServerPercentage returns the progress percentage reported by the server
// on the last successful save.
func (a *AutosaveScheduler) ServerPercentage() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serverPercentage
}

func (a *AutosaveScheduler) run(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failure here costs at most one cycle; the next tick retries.
			_ = a.SaveNow(ctx)
		}
	}
}
