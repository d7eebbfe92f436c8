package history

// MaxHistorySize is the default bound on retained history entries.
const MaxHistorySize = 50

// Manager keeps a bounded, linear sequence of snapshots of a value and a
// cursor into it. Undo and Redo move the cursor; Set records a new snapshot
// and discards anything after the cursor.
//
// Manager is not safe for concurrent use. Owners that share it across
// goroutines must serialise access themselves.
type Manager[T any] struct {
	entries []T
	index   int
	maxSize int
}

// Option configures a Manager at construction.
type Option func(*options)

type options struct {
	maxSize int
}

// WithMaxSize overrides the number of retained entries.
// Values <= 0 fall back to MaxHistorySize.
func WithMaxSize(n int) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// New creates a Manager seeded with initial as its only entry.
func New[T any](initial T, opts ...Option) *Manager[T] {
	o := options{maxSize: MaxHistorySize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSize <= 0 {
		o.maxSize = MaxHistorySize
	}

	entries := make([]T, 1, o.maxSize)
	entries[0] = initial

	return &Manager[T]{
		entries: entries,
		maxSize: o.maxSize,
	}
}

// SetOption modifies a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	skipHistory bool
}

// SkipHistory makes Set overwrite the current entry in place instead of
// recording a new undoable step.
func SkipHistory() SetOption {
	return func(o *setOptions) {
		o.skipHistory = true
	}
}

// State returns the current entry.
func (m *Manager[T]) State() T {
	return m.entries[m.index]
}

// Set records v as the new current state.
//
// Without SkipHistory, entries after the cursor are dropped, v is appended,
// and the oldest entries are evicted once the bound is exceeded.
func (m *Manager[T]) Set(v T, opts ...SetOption) {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.skipHistory {
		m.entries[m.index] = v
		return
	}

	// Clear the tail so dropped snapshots can be collected.
	var zero T
	for i := m.index + 1; i < len(m.entries); i++ {
		m.entries[i] = zero
	}
	m.entries = append(m.entries[:m.index+1], v)

	if excess := len(m.entries) - m.maxSize; excess > 0 {
		kept := make([]T, m.maxSize, m.maxSize)
		copy(kept, m.entries[excess:])
		m.entries = kept
	}
	m.index = len(m.entries) - 1
}

// Undo moves the cursor one entry back. It is a no-op at the oldest entry.
func (m *Manager[T]) Undo() {
	if m.index > 0 {
		m.index--
	}
}

// Redo moves the cursor one entry forward. It is a no-op at the newest entry.
func (m *Manager[T]) Redo() {
	if m.index < len(m.entries)-1 {
		m.index++
	}
}

// CanUndo reports whether Undo would move the cursor.
func (m *Manager[T]) CanUndo() bool {
	return m.index > 0
}

// CanRedo reports whether Redo would move the cursor.
func (m *Manager[T]) CanRedo() bool {
	return m.index < len(m.entries)-1
}

// Len returns the number of retained entries.
func (m *Manager[T]) Len() int {
	return len(m.entries)
}

// Index returns the cursor position.
func (m *Manager[T]) Index() int {
	return m.index
}

// MaxSize returns the retention bound.
func (m *Manager[T]) MaxSize() int {
	return m.maxSize
}

// Reset discards all history and reseeds the manager with v.
func (m *Manager[T]) Reset(v T) {
	entries := make([]T, 1, m.maxSize)
	entries[0] = v
	m.entries = entries
	m.index = 0
}
