package session

import (
	gosync "sync"
	"time"
)

// Defaults for the inactivity watcher. The warning fires one minute
// before the exit deadline.
const (
	DefaultInactivityTimeout = 10 * time.Minute
	DefaultWarningLead       = 1 * time.Minute
)

// InactivityWatcher tracks user activity and runs two callbacks: a
// warning shortly before the deadline and a forced exit at the deadline.
// Any recorded activity resets both timers, including activity after the
// warning has already fired.
type InactivityWatcher struct {
	timeout time.Duration
	lead    time.Duration
	onWarn  func()
	onExit  func()

	mu        gosync.Mutex
	warnTimer *time.Timer
	exitTimer *time.Timer
	armed     bool
	closed    bool
}

// NewInactivityWatcher creates a watcher. Non-positive timeout or lead
// select the defaults; a lead greater than or equal to the timeout
// disables the warning.
func NewInactivityWatcher(timeout, lead time.Duration, onWarn, onExit func()) *InactivityWatcher {
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	if lead <= 0 {
		lead = DefaultWarningLead
	}
	return &InactivityWatcher{
		timeout: timeout,
		lead:    lead,
		onWarn:  onWarn,
		onExit:  onExit,
	}
}

// Arm starts both timers. Arming an already armed or closed watcher is a
// no-op.
func (w *InactivityWatcher) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.armed || w.closed {
		return
	}
	w.armed = true
	w.startLocked()
}

// Activity records user activity, resetting both timers. Activity on an
// unarmed or closed watcher is ignored.
func (w *InactivityWatcher) Activity() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.armed || w.closed {
		return
	}
	w.stopLocked()
	w.startLocked()
}

// Close stops both timers permanently.
func (w *InactivityWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.stopLocked()
}

func (w *InactivityWatcher) startLocked() {
	if w.lead < w.timeout && w.onWarn != nil {
		w.warnTimer = time.AfterFunc(w.timeout-w.lead, w.onWarn)
	}
	w.exitTimer = time.AfterFunc(w.timeout, func() {
		// The deadline consumes the watcher; a fired exit is final.
		w.Close()
		if w.onExit != nil {
			w.onExit()
		}
	})
}

func (w *InactivityWatcher) stopLocked() {
	if w.warnTimer != nil {
		w.warnTimer.Stop()
		w.warnTimer = nil
	}
	if w.exitTimer != nil {
		w.exitTimer.Stop()
		w.exitTimer = nil
	}
}
