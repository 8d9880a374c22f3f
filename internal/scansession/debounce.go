package scansession

import (
	"sync"
	"time"
)

// Debouncer delays fn until no new call arrived for interval, then invokes it once with
// the latest payload. A zero interval calls fn synchronously.
type Debouncer struct {
	interval time.Duration
	fn       func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	gen     uint64
	stopped bool
}

// NewDebouncer wraps fn.
func NewDebouncer(interval time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Call records payload and (re)arms the timer.
func (d *Debouncer) Call(payload string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.interval <= 0 {
		d.mu.Unlock()
		d.fn(payload)
		return
	}
	d.pending = payload
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
	d.mu.Unlock()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	payload := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(payload)
}

// Stop drops any pending call; later calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
