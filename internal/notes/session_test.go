package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/notesd/internal/idgen"
	"github.com/fyrsmithlabs/notesd/internal/store"
)

// fakeClock returns a fixed time that tests can advance.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *store.MemoryStore
	repo    *Repository
	session *Session
	clock   *fakeClock
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	repo, err := NewRepository(st, zaptest.NewLogger(t), WithIDGenerator(idgen.Sequence("note")))
	require.NoError(t, err)

	if cfg == nil {
		cfg = &Config{HistorySize: 50, SaveDebounce: time.Hour, RecentLimit: 10}
	}
	clock := newFakeClock()
	s, err := NewSession(cfg, repo, zaptest.NewLogger(t), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	return &fixture{store: st, repo: repo, session: s, clock: clock}
}

func (f *fixture) saved(t *testing.T) []Note {
	t.Helper()
	data, err := f.store.Get(context.Background(), store.KeyNotes)
	require.NoError(t, err)
	var notes []Note
	require.NoError(t, json.Unmarshal(data, &notes))
	return notes
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(nil, nil, nil)
	assert.Error(t, err)

	repo, err := NewRepository(store.NewMemoryStore(), nil)
	require.NoError(t, err)
	s, err := NewSession(nil, repo, nil)
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.NotEmpty(t, s.ID())
	assert.Empty(t, s.Notes())
	assert.False(t, s.CanUndo())
	assert.Equal(t, 50, s.HistoryStatus().Capacity)
}

func TestSession_CreateTwiceYieldsDistinctNotes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.session.Create(ctx, "Untitled", "")
	require.NoError(t, err)
	b, err := f.session.Create(ctx, "Untitled", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	notes := f.session.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, b.ID, notes[0].ID, "newest note is prepended")
	assert.Equal(t, a.ID, notes[1].ID)

	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.False(t, a.IsFavorite)
	assert.False(t, a.IsPinned)
	assert.NotNil(t, a.Tags)
	assert.Empty(t, a.Tags)
}

func TestSession_DeleteRemovesExactlyOne(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		n, err := f.session.Create(ctx, fmt.Sprintf("n%d", i), "")
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	require.NoError(t, f.session.Delete(ctx, ids[1]))

	notes := f.session.Notes()
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.NotEqual(t, ids[1], n.ID)
	}

	_, err := f.session.Get(ids[1])
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestSession_UnknownIDRecordsNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.session.Create(ctx, "only", "")
	require.NoError(t, err)
	before := f.session.HistoryStatus()

	assert.ErrorIs(t, f.session.Delete(ctx, "missing"), ErrNoteNotFound)
	_, err = f.session.ToggleFavorite(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = f.session.TogglePin(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = f.session.Update(ctx, "missing", Patch{})
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = f.session.AddTag(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	assert.Equal(t, before, f.session.HistoryStatus())
	assert.Len(t, f.session.Notes(), 1)
}

func TestSession_ToggleFavoriteFlipsOnlyFlag(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	orig, err := f.session.Create(ctx, "title", "body")
	require.NoError(t, err)

	// The clock has not moved, so UpdatedAt must still advance.
	toggled, err := f.session.ToggleFavorite(ctx, orig.ID)
	require.NoError(t, err)

	assert.True(t, toggled.IsFavorite)
	assert.Greater(t, toggled.UpdatedAt, orig.UpdatedAt)

	want := orig
	want.IsFavorite = true
	want.UpdatedAt = toggled.UpdatedAt
	assert.Equal(t, want, toggled)

	f.clock.Advance(time.Minute)
	back, err := f.session.ToggleFavorite(ctx, orig.ID)
	require.NoError(t, err)
	assert.False(t, back.IsFavorite)
	assert.Equal(t, f.clock.Now().UnixMilli(), back.UpdatedAt)
}

func TestSession_TogglePin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "title", "")
	require.NoError(t, err)

	pinned, err := f.session.TogglePin(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.False(t, pinned.IsFavorite)
}

func TestSession_Update(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "old", "old body")
	require.NoError(t, err)

	title := "new"
	tags := []string{" work ", "Work", "", "ideas"}
	updated, err := f.session.Update(ctx, n.ID, Patch{Title: &title, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "old body", updated.Content)
	assert.Equal(t, []string{"work", "ideas"}, updated.Tags)
	assert.Equal(t, n.ID, updated.ID)
	assert.Equal(t, n.CreatedAt, updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, n.UpdatedAt)
}

func TestSession_UndoRedoAcrossMutations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "a", "")
	require.NoError(t, err)
	_, err = f.session.ToggleFavorite(ctx, n.ID)
	require.NoError(t, err)

	status, err := f.session.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, status.CanUndo)
	assert.True(t, status.CanRedo)
	got, err := f.session.Get(n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite)

	status, err = f.session.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, status.CanUndo)
	assert.Empty(t, f.session.Notes())

	// Undo at the bottom is a no-op.
	status, err = f.session.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Index)

	_, err = f.session.Redo(ctx)
	require.NoError(t, err)
	status, err = f.session.Redo(ctx)
	require.NoError(t, err)
	assert.False(t, status.CanRedo)

	got, err = f.session.Get(n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
}

func TestSession_WriteAfterUndoDropsRedo(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.session.Create(ctx, "1", "")
	require.NoError(t, err)
	_, err = f.session.Create(ctx, "2", "")
	require.NoError(t, err)
	_, err = f.session.Undo(ctx)
	require.NoError(t, err)
	require.True(t, f.session.CanRedo())

	_, err = f.session.Create(ctx, "3", "")
	require.NoError(t, err)
	assert.False(t, f.session.CanRedo())
	assert.True(t, f.session.CanUndo())

	titles := []string{}
	for _, n := range f.session.Notes() {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"3", "1"}, titles)
}

func TestSession_HistoryIsBounded(t *testing.T) {
	f := newFixture(t, &Config{HistorySize: 5, SaveDebounce: time.Hour, RecentLimit: 10})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := f.session.Create(ctx, fmt.Sprintf("%d", i), "")
		require.NoError(t, err)
	}
	status := f.session.HistoryStatus()
	assert.Equal(t, 5, status.Length)
	assert.Equal(t, 5, status.Capacity)

	for f.session.CanUndo() {
		_, err := f.session.Undo(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, f.session.Notes(), 4)
}

func TestSession_SnapshotsAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "title", "")
	require.NoError(t, err)
	_, err = f.session.AddTag(ctx, n.ID, "keep")
	require.NoError(t, err)

	out := f.session.Notes()
	out[0].Title = "mutated"
	out[0].Tags[0] = "mutated"

	got, err := f.session.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "title", got.Title)
	assert.Equal(t, []string{"keep"}, got.Tags)

	_, err = f.session.Undo(ctx)
	require.NoError(t, err)
	got, err = f.session.Get(n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestSession_Tags(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "t", "")
	require.NoError(t, err)

	n, err = f.session.AddTag(ctx, n.ID, "  work ")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, n.Tags)

	before := f.session.HistoryStatus()
	n, err = f.session.AddTag(ctx, n.ID, "WORK")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, n.Tags)
	assert.Equal(t, before, f.session.HistoryStatus(), "duplicate tag records no step")

	_, err = f.session.AddTag(ctx, n.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidTag)

	n, err = f.session.RemoveTag(ctx, n.ID, "Work")
	require.NoError(t, err)
	assert.Empty(t, n.Tags)

	before = f.session.HistoryStatus()
	_, err = f.session.RemoveTag(ctx, n.ID, "absent")
	require.NoError(t, err)
	assert.Equal(t, before, f.session.HistoryStatus())
}

func TestSession_LoadDoesNotRecordHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.repo.Save(ctx, []Note{{ID: "saved-1", Title: "from disk", Tags: []string{}}}))

	require.NoError(t, f.session.Load(ctx))

	notes := f.session.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "from disk", notes[0].Title)
	assert.False(t, f.session.CanUndo())
	assert.False(t, f.session.CanRedo())
}

func TestSession_Reload(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.session.Create(ctx, "local", "")
	require.NoError(t, err)
	require.True(t, f.session.CanUndo())

	require.NoError(t, f.repo.Save(ctx, []Note{{ID: "remote", Title: "remote", Tags: []string{}}}))
	require.NoError(t, f.session.Reload(ctx))

	notes := f.session.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "remote", notes[0].ID)
	assert.False(t, f.session.CanUndo())

	// The pending save of "local" was dropped.
	f.session.Flush(ctx)
	assert.Equal(t, "remote", f.saved(t)[0].ID)
}

func TestSession_WriteThroughSave(t *testing.T) {
	f := newFixture(t, &Config{HistorySize: 50, SaveDebounce: 20 * time.Millisecond, RecentLimit: 10})
	ctx := context.Background()

	_, err := f.session.Create(ctx, "first", "")
	require.NoError(t, err)
	second, err := f.session.Create(ctx, "second", "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		data, err := f.store.Get(ctx, store.KeyNotes)
		if err != nil {
			return false
		}
		var saved []Note
		return json.Unmarshal(data, &saved) == nil && len(saved) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, second.ID, f.saved(t)[0].ID)

	_, err = f.session.Undo(ctx)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		data, err := f.store.Get(ctx, store.KeyNotes)
		if err != nil {
			return false
		}
		var saved []Note
		return json.Unmarshal(data, &saved) == nil && len(saved) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_LoadSchedulesNoSave(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.session.Load(ctx))
	f.session.Flush(ctx)

	_, err := f.store.Get(ctx, store.KeyNotes)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSession_CloseFlushesAndRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.session.Create(ctx, "pending", "")
	require.NoError(t, err)

	require.NoError(t, f.session.Close(ctx))
	require.NoError(t, f.session.Close(ctx))

	saved := f.saved(t)
	require.Len(t, saved, 1)
	assert.Equal(t, n.ID, saved[0].ID)

	_, err = f.session.Create(ctx, "late", "")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, f.session.Delete(ctx, n.ID), ErrSessionClosed)
	_, err = f.session.Undo(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_ConcurrentCreates(t *testing.T) {
	f := newFixture(t, &Config{HistorySize: 500, SaveDebounce: time.Millisecond, RecentLimit: 10})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.session.Create(ctx, fmt.Sprintf("n%d", i), "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.session.Notes(), 20)
	assert.Equal(t, 21, f.session.HistoryStatus().Length)
}

// gatedStore blocks the first Put until release is closed.
type gatedStore struct {
	*store.MemoryStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedStore) Put(ctx context.Context, key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return g.MemoryStore.Put(ctx, key, value)
}

func TestSession_CloseWaitsForRunningSave(t *testing.T) {
	st := &gatedStore{
		MemoryStore: store.NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	repo, err := NewRepository(st, zaptest.NewLogger(t), WithIDGenerator(idgen.Sequence("note")))
	require.NoError(t, err)
	s, err := NewSession(&Config{HistorySize: 50, SaveDebounce: time.Millisecond}, repo, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Create(ctx, "first", "")
	require.NoError(t, err)
	<-st.started

	// A later save must not be overtaken by the one still running.
	_, err = s.Create(ctx, "second", "")
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = s.Close(ctx)
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a save was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(st.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the save finished")
	}

	data, err := st.MemoryStore.Get(ctx, store.KeyNotes)
	require.NoError(t, err)
	var saved []Note
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 2)
	assert.Equal(t, "second", saved[0].Title)
	require.NoError(t, st.Close())
}
