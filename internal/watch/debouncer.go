package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer folds bursts of filesystem events into one conversion run.
// Editors and chart tooling commonly touch several files in quick
// succession; only the event that ends a burst should trigger a rerun.
type Debouncer struct {
	interval time.Duration
	fire     func(path string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	stopped bool
}

// NewDebouncer returns a debouncer that calls fire with the most recent
// event path once interval elapses without further events.
func NewDebouncer(interval time.Duration, fire func(path string)) *Debouncer {
	return &Debouncer{interval: interval, fire: fire}
}

// Trigger notes an event for path and restarts the quiet-period timer.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = path

	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.expire)
		return
	}

	d.timer.Reset(d.interval)
}

// expire runs on the timer goroutine when a quiet period completes.
func (d *Debouncer) expire() {
	d.mu.Lock()
	path := d.pending
	stopped := d.stopped
	d.mu.Unlock()

	if stopped {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("debounced run panicked", slog.Any("error", r))
		}
	}()

	d.fire(path)
}

// Stop discards any pending run and ignores further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
