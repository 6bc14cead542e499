package session

import (
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type callCounter struct {
	mu    gosync.Mutex
	count int
}

func (c *callCounter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *callCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func TestInactivityWatcher_WarnsThenExits(t *testing.T) {
	var warns, exits callCounter
	watcher := NewInactivityWatcher(100*time.Millisecond, 50*time.Millisecond, warns.inc, exits.inc)
	defer watcher.Close()

	watcher.Arm()

	assert.Eventually(t, func() bool { return warns.get() == 1 },
		time.Second, 5*time.Millisecond, "warning should fire at the lead mark")
	assert.Eventually(t, func() bool { return exits.get() == 1 },
		time.Second, 5*time.Millisecond, "exit should fire at the deadline")

	// A fired exit is final; no further callbacks.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, warns.get())
	assert.Equal(t, 1, exits.get())
}

func TestInactivityWatcher_ActivityResetsBothTimers(t *testing.T) {
	var warns, exits callCounter
	watcher := NewInactivityWatcher(80*time.Millisecond, 40*time.Millisecond, warns.inc, exits.inc)
	defer watcher.Close()

	watcher.Arm()

	// Keep touching the watcher more often than the warning lead.
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		watcher.Activity()
	}

	assert.Equal(t, 0, warns.get(), "activity must postpone the warning")
	assert.Equal(t, 0, exits.get())

	assert.Eventually(t, func() bool { return exits.get() == 1 },
		time.Second, 5*time.Millisecond, "exit fires once activity stops")
}

func TestInactivityWatcher_ActivityAfterWarningResets(t *testing.T) {
	var warns, exits callCounter
	watcher := NewInactivityWatcher(100*time.Millisecond, 60*time.Millisecond, warns.inc, exits.inc)
	defer watcher.Close()

	watcher.Arm()

	assert.Eventually(t, func() bool { return warns.get() == 1 },
		time.Second, 5*time.Millisecond)

	watcher.Activity()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, exits.get(), "activity after the warning restarts the full window")

	assert.Eventually(t, func() bool { return warns.get() == 2 },
		time.Second, 5*time.Millisecond, "the warning re-arms with the window")
}

func TestInactivityWatcher_CloseStopsTimers(t *testing.T) {
	var warns, exits callCounter
	watcher := NewInactivityWatcher(50*time.Millisecond, 25*time.Millisecond, warns.inc, exits.inc)

	watcher.Arm()
	watcher.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, warns.get())
	assert.Equal(t, 0, exits.get())

	t.Run("activity after close is ignored", func(t *testing.T) {
		watcher.Activity()
		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, 0, exits.get())
	})
}
