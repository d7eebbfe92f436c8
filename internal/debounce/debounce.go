// Package debounce runs keyed callbacks after a quiet window.
//
// Each key owns one timer. Triggering a key again inside the window stops
// the pending timer and replaces its callback, so only the latest callback
// runs once the window elapses. Runs of one key never overlap, and a
// callback superseded by a newer run of its key is skipped. The Debouncer
// owns every timer it starts: Stop cancels them all and waits for callbacks
// already running, which keeps work from outliving the owner.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of work per key.
type Debouncer struct {
	delay time.Duration

	mu       sync.Mutex
	idle     *sync.Cond
	pending  map[string]*task
	runLocks map[string]*sync.Mutex
	lastRun  map[string]uint64
	inflight int
	gen      uint64
	stopped  bool
}

// task is a scheduled callback. gen orders it against every other
// callback triggered on the same Debouncer.
type task struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// New creates a Debouncer with the given quiet window.
// A non-positive delay runs callbacks on the next timer tick.
func New(delay time.Duration) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	d := &Debouncer{
		delay:    delay,
		pending:  make(map[string]*task),
		runLocks: make(map[string]*sync.Mutex),
		lastRun:  make(map[string]uint64),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Delay returns the quiet window.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn under key, superseding any callback pending for the
// same key. It returns false once the Debouncer has been stopped.
func (d *Debouncer) Trigger(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	d.gen++
	t := &task{fn: fn, gen: d.gen}
	t.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, t.gen)
	})
	d.pending[key] = t
	return true
}

// fire runs the callback for key if it is still the current one.
func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	t, ok := d.pending[key]
	if !ok || t.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.inflight++
	d.mu.Unlock()

	d.run(key, t)
}

// run executes t under the key's run lock and marks it done. Callers have
// already counted t in inflight.
func (d *Debouncer) run(key string, t *task) {
	d.mu.Lock()
	lock, ok := d.runLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.runLocks[key] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	d.mu.Lock()
	stale := t.gen < d.lastRun[key]
	if !stale {
		d.lastRun[key] = t.gen
	}
	d.mu.Unlock()

	if !stale {
		t.fn()
	}
	lock.Unlock()

	d.mu.Lock()
	d.inflight--
	if d.inflight == 0 {
		d.idle.Broadcast()
	}
	d.mu.Unlock()
}

// Cancel drops the pending callback for key without running it.
// It reports whether anything was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs every pending callback now, in no particular order, and
// clears the schedule. Callbacks run on the caller's goroutine. Flush
// returns once callbacks started by expired timers have finished too.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	tasks := make([]*task, 0, len(d.pending))
	for key, t := range d.pending {
		t.timer.Stop()
		keys = append(keys, key)
		tasks = append(tasks, t)
		delete(d.pending, key)
	}
	d.inflight += len(tasks)
	d.mu.Unlock()

	for i, t := range tasks {
		d.run(keys[i], t)
	}
	d.wait()
}

// Pending returns the number of scheduled callbacks.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending callback, rejects further triggers and waits
// for running callbacks to return.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	for key, t := range d.pending {
		t.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
	d.mu.Unlock()

	d.wait()
}

func (d *Debouncer) wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.inflight > 0 {
		d.idle.Wait()
	}
}
