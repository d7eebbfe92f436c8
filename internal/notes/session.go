package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/debounce"
	"github.com/fyrsmithlabs/notesd/internal/history"
	"github.com/fyrsmithlabs/notesd/internal/idgen"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/notesd/internal/notes"

	// saveKey is the debounce key for write-through saves.
	saveKey = "notes.save"

	// saveTimeout bounds a single background save.
	saveTimeout = 10 * time.Second
)

// Config configures a Session.
type Config struct {
	// HistorySize caps the undo history (default: 50).
	HistorySize int

	// SaveDebounce is the quiet window before a write-through save (default: 500ms).
	SaveDebounce time.Duration

	// RecentLimit is how many notes FilterRecent returns (default: 10).
	RecentLimit int
}

// DefaultConfig returns the defaults used by the web client.
func DefaultConfig() *Config {
	return &Config{
		HistorySize:  history.MaxHistorySize,
		SaveDebounce: 500 * time.Millisecond,
		RecentLimit:  10,
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// Session is the in-memory notes collection for one running server.
//
// Each mutation produces a new collection snapshot and records it as an
// undoable step; snapshots already in the history are never modified.
// After every state change the current collection is saved through the
// Repository once SaveDebounce has elapsed without further changes.
//
// All methods are safe for concurrent use.
type Session struct {
	id     string
	cfg    *Config
	repo   *Repository
	logger *zap.Logger
	now    func() time.Time
	saver  *debounce.Debouncer

	tracer    trace.Tracer
	mutations metric.Int64Counter
	saves     metric.Int64Counter

	mu      sync.Mutex
	history *history.Manager[[]Note]
	closed  bool
}

// NewSession creates an empty Session. Call Load to read saved notes.
func NewSession(cfg *Config, repo *Repository, logger *zap.Logger, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultConfig().RecentLimit
	}

	s := &Session{
		id:      idgen.SessionID(),
		cfg:     cfg,
		repo:    repo,
		now:     time.Now,
		saver:   debounce.New(cfg.SaveDebounce),
		tracer:  otel.Tracer(instrumentationName),
		history: history.New([]Note{}, history.WithMaxSize(cfg.HistorySize)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.With(zap.String("session.id", s.id))
	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *Session) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	s.mutations, err = meter.Int64Counter(
		"notesd.notes.mutations_total",
		metric.WithDescription("Total number of notes collection changes"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		s.logger.Warn("failed to create mutations counter", zap.Error(err))
	}

	s.saves, err = meter.Int64Counter(
		"notesd.notes.saves_total",
		metric.WithDescription("Total number of write-through saves"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create saves counter", zap.Error(err))
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Load replaces the current state with the saved collection without
// recording an undo step or scheduling a save.
func (s *Session) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "notes.load")
	defer span.End()

	loaded := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.history.Set(loaded, history.SkipHistory())

	span.SetAttributes(attribute.Int("notes.count", len(loaded)))
	s.logger.Info("notes loaded", zap.Int("count", len(loaded)))
	return nil
}

// Reload discards the undo history and any pending save, then reads the
// saved collection as the new starting point.
func (s *Session) Reload(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "notes.reload")
	defer span.End()

	loaded := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.saver.Cancel(saveKey)
	s.history.Reset(loaded)

	s.logger.Info("notes reloaded", zap.Int("count", len(loaded)))
	return nil
}

// Create prepends a new note and returns it.
func (s *Session) Create(ctx context.Context, title, content string) (Note, error) {
	ctx, span := s.tracer.Start(ctx, "notes.create")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Note{}, ErrSessionClosed
	}

	now := s.now().UnixMilli()
	n := Note{
		ID:        s.repo.NewID(),
		Title:     title,
		Content:   content,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	current := s.history.State()
	next := make([]Note, 0, len(current)+1)
	next = append(next, n)
	next = append(next, current...)
	s.commit(ctx, "create", next)

	span.SetAttributes(attribute.String("note.id", n.ID))
	s.logger.Debug("note created", append(traceFields(ctx), zap.String("note.id", n.ID))...)
	return n.clone(), nil
}

// Update applies p to the note with id.
func (s *Session) Update(ctx context.Context, id string, p Patch) (Note, error) {
	return s.modify(ctx, "update", id, func(n *Note) (bool, error) {
		if p.Title != nil {
			n.Title = *p.Title
		}
		if p.Content != nil {
			n.Content = *p.Content
		}
		if p.Tags != nil {
			n.Tags = normalizeTags(*p.Tags)
		}
		return true, nil
	})
}

// ToggleFavorite flips the note's favorite flag.
func (s *Session) ToggleFavorite(ctx context.Context, id string) (Note, error) {
	return s.modify(ctx, "toggle_favorite", id, func(n *Note) (bool, error) {
		n.IsFavorite = !n.IsFavorite
		return true, nil
	})
}

// TogglePin flips the note's pinned flag.
func (s *Session) TogglePin(ctx context.Context, id string) (Note, error) {
	return s.modify(ctx, "toggle_pin", id, func(n *Note) (bool, error) {
		n.IsPinned = !n.IsPinned
		return true, nil
	})
}

// AddTag adds tag to the note. Adding a tag the note already carries
// (case-insensitive) changes nothing and records no undo step.
func (s *Session) AddTag(ctx context.Context, id, tag string) (Note, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Note{}, fmt.Errorf("%w: tag must not be blank", ErrInvalidTag)
	}
	return s.modify(ctx, "add_tag", id, func(n *Note) (bool, error) {
		if n.HasTag(tag) {
			return false, nil
		}
		n.Tags = append(n.Tags, tag)
		return true, nil
	})
}

// RemoveTag removes tag from the note. Removing an absent tag changes
// nothing and records no undo step.
func (s *Session) RemoveTag(ctx context.Context, id, tag string) (Note, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Note{}, fmt.Errorf("%w: tag must not be blank", ErrInvalidTag)
	}
	return s.modify(ctx, "remove_tag", id, func(n *Note) (bool, error) {
		if !n.HasTag(tag) {
			return false, nil
		}
		kept := make([]string, 0, len(n.Tags))
		for _, t := range n.Tags {
			if !strings.EqualFold(t, tag) {
				kept = append(kept, t)
			}
		}
		n.Tags = kept
		return true, nil
	})
}

// Delete removes the note with id.
func (s *Session) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "notes.delete", trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	current := s.history.State()
	idx := indexOf(current, id)
	if idx < 0 {
		span.SetStatus(codes.Error, ErrNoteNotFound.Error())
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}

	next := make([]Note, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	s.commit(ctx, "delete", next)

	s.logger.Debug("note deleted", append(traceFields(ctx), zap.String("note.id", id))...)
	return nil
}

// Undo steps back one change. At the oldest entry it does nothing.
func (s *Session) Undo(ctx context.Context) (HistoryStatus, error) {
	return s.step(ctx, "undo", (*history.Manager[[]Note]).CanUndo, (*history.Manager[[]Note]).Undo)
}

// Redo steps forward one change. At the newest entry it does nothing.
func (s *Session) Redo(ctx context.Context) (HistoryStatus, error) {
	return s.step(ctx, "redo", (*history.Manager[[]Note]).CanRedo, (*history.Manager[[]Note]).Redo)
}

func (s *Session) step(ctx context.Context, op string, can func(*history.Manager[[]Note]) bool, move func(*history.Manager[[]Note])) (HistoryStatus, error) {
	ctx, span := s.tracer.Start(ctx, "notes."+op)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return HistoryStatus{}, ErrSessionClosed
	}

	if can(s.history) {
		move(s.history)
		s.record(ctx, op)
		s.scheduleSave()
	}
	status := s.status()
	span.SetAttributes(attribute.Int("history.index", status.Index))
	return status, nil
}

// CanUndo reports whether Undo would change state.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change state.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryStatus returns the current undo/redo position.
func (s *Session) HistoryStatus() HistoryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() HistoryStatus {
	return HistoryStatus{
		CanUndo:  s.history.CanUndo(),
		CanRedo:  s.history.CanRedo(),
		Index:    s.history.Index(),
		Length:   s.history.Len(),
		Capacity: s.history.MaxSize(),
	}
}

// Notes returns a copy of the current collection in stored order.
func (s *Session) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.history.State())
}

// Get returns the note with id.
func (s *Session) Get(id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.history.State()
	idx := indexOf(current, id)
	if idx < 0 {
		return Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	return current[idx].clone(), nil
}

// List returns the notes matching q. See Filter for ordering.
func (s *Session) List(q Query) []Note {
	return applyQuery(s.Notes(), q, s.cfg.RecentLimit)
}

// Flush runs any pending save now.
func (s *Session) Flush(ctx context.Context) {
	_, span := s.tracer.Start(ctx, "notes.flush")
	defer span.End()
	s.saver.Flush()
}

// Close flushes the pending save and stops the save timer. Later
// mutations return ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Flush(ctx)
	s.saver.Stop()
	s.logger.Info("notes session closed")
	return nil
}

// modify copies the collection, applies fn to the note with id, and
// commits the result when fn reports a change. Unknown ids record nothing.
func (s *Session) modify(ctx context.Context, op, id string, fn func(*Note) (bool, error)) (Note, error) {
	ctx, span := s.tracer.Start(ctx, "notes."+op, trace.WithAttributes(attribute.String("note.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Note{}, ErrSessionClosed
	}

	current := s.history.State()
	idx := indexOf(current, id)
	if idx < 0 {
		span.SetStatus(codes.Error, ErrNoteNotFound.Error())
		return Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}

	updated := current[idx].clone()
	changed, err := fn(&updated)
	if err != nil {
		span.RecordError(err)
		return Note{}, err
	}
	if !changed {
		return updated, nil
	}
	updated.UpdatedAt = s.stamp(current[idx].UpdatedAt)

	next := make([]Note, len(current))
	copy(next, current)
	next[idx] = updated
	s.commit(ctx, op, next)

	s.logger.Debug("note updated", append(traceFields(ctx), zap.String("note.id", id), zap.String("op", op))...)
	return updated.clone(), nil
}

// commit records next as a new undoable step and schedules a save.
// Callers hold s.mu.
func (s *Session) commit(ctx context.Context, op string, next []Note) {
	s.history.Set(next)
	s.record(ctx, op)
	s.scheduleSave()
}

func (s *Session) record(ctx context.Context, op string) {
	if s.mutations != nil {
		s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// scheduleSave debounces a save of the current collection. Callers hold s.mu.
func (s *Session) scheduleSave() {
	snapshot := s.history.State()
	s.saver.Trigger(saveKey, func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		result := "success"
		if err := s.repo.Save(ctx, snapshot); err != nil {
			result = "error"
		}
		if s.saves != nil {
			s.saves.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		}
	})
}

// stamp returns the current time in milliseconds, forced past prev so that
// successive updates of one note always move UpdatedAt forward.
func (s *Session) stamp(prev int64) int64 {
	t := s.now().UnixMilli()
	if t <= prev {
		t = prev + 1
	}
	return t
}

// traceFields correlates a log line with the span in ctx.
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func indexOf(notes []Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i := range notes {
		out[i] = notes[i].clone()
	}
	return out
}
