package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/idgen"
	"github.com/fyrsmithlabs/notesd/internal/store"
)

// Repository loads and saves the whole notes collection under a single
// store key.
type Repository struct {
	store  store.Store
	newID  idgen.Generator
	logger *zap.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithIDGenerator replaces the default note id generator.
func WithIDGenerator(g idgen.Generator) RepositoryOption {
	return func(r *Repository) { r.newID = g }
}

// NewRepository creates a Repository over s.
func NewRepository(s store.Store, logger *zap.Logger, opts ...RepositoryOption) (*Repository, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		store:  s,
		newID:  idgen.NoteID(nil),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load returns the saved collection. A missing or unreadable record yields
// an empty collection; read failures are logged, not returned.
func (r *Repository) Load(ctx context.Context) []Note {
	data, err := r.store.Get(ctx, store.KeyNotes)
	if errors.Is(err, store.ErrNotFound) {
		return []Note{}
	}
	if err != nil {
		r.logger.Error("error loading notes from store",
			zap.String("backend", r.store.Name()), zap.Error(err))
		return []Note{}
	}

	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		r.logger.Error("error decoding saved notes", zap.Error(err))
		return []Note{}
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes
}

// Save writes the full collection. Failures are logged and returned; they
// are never retried.
func (r *Repository) Save(ctx context.Context, notes []Note) error {
	if notes == nil {
		notes = []Note{}
	}
	data, err := json.Marshal(notes)
	if err != nil {
		r.logger.Error("error encoding notes", zap.Error(err))
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := r.store.Put(ctx, store.KeyNotes, data); err != nil {
		r.logger.Error("error saving notes to store",
			zap.String("backend", r.store.Name()),
			zap.Int("count", len(notes)),
			zap.Error(err))
		return fmt.Errorf("save notes: %w", err)
	}
	r.logger.Debug("notes saved", zap.Int("count", len(notes)))
	return nil
}

// NewID returns a fresh note identifier.
func (r *Repository) NewID() string {
	return r.newID()
}
