package notes

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func sampleNotes() []Note {
	return []Note{
		{ID: "a", Title: "Groceries", Content: "milk, eggs", UpdatedAt: 30},
		{ID: "b", Title: "Meeting", Content: "Discuss roadmap", UpdatedAt: 50, IsFavorite: true},
		{ID: "c", Title: "Ideas", Content: "a new EGG timer", UpdatedAt: 10, IsFavorite: true, IsPinned: true},
		{ID: "d", Title: "Journal", Content: "", UpdatedAt: 40},
	}
}

func TestApplyQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		limit int
		want  []string
	}{
		{name: "all by updated desc, pinned first", query: Query{Filter: FilterAll}, limit: 10, want: []string{"c", "b", "d", "a"}},
		{name: "empty filter behaves like all", query: Query{}, limit: 10, want: []string{"c", "b", "d", "a"}},
		{name: "recent limited", query: Query{Filter: FilterRecent}, limit: 2, want: []string{"b", "d"}},
		{name: "favorites keep collection order", query: Query{Filter: FilterFavorites}, limit: 10, want: []string{"c", "b"}},
		{name: "search title case-insensitive", query: Query{Filter: FilterAll, Search: "MEET"}, limit: 10, want: []string{"b"}},
		{name: "search content", query: Query{Filter: FilterAll, Search: "egg"}, limit: 10, want: []string{"c", "a"}},
		{name: "search after recent limit", query: Query{Filter: FilterRecent, Search: "egg"}, limit: 2, want: []string{}},
		{name: "blank search ignored", query: Query{Filter: FilterFavorites, Search: "   "}, limit: 10, want: []string{"c", "b"}},
		{name: "no match", query: Query{Filter: FilterAll, Search: "zebra"}, limit: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyQuery(sampleNotes(), tt.query, tt.limit)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":           FilterAll,
		"all":        FilterAll,
		"Recent":     FilterRecent,
		" favorites": FilterFavorites,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilter("starred")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestEmptyMessage(t *testing.T) {
	assert.Equal(t, "No notes yet", EmptyMessage(""))
	assert.Equal(t, "No notes yet", EmptyMessage("  "))
	assert.Equal(t, "No notes found for 'zebra'", EmptyMessage("zebra"))
}

func TestNote_UnmarshalLegacyCategories(t *testing.T) {
	var n Note
	err := json.Unmarshal([]byte(`{
		"id": "1",
		"title": "old",
		"content": "",
		"createdAt": 1,
		"updatedAt": 2,
		"isFavorite": true,
		"categories": ["Work", "ideas"],
		"tags": ["work", "home"]
	}`), &n)
	require.NoError(t, err)

	assert.Equal(t, "1", n.ID)
	assert.True(t, n.IsFavorite)
	assert.False(t, n.IsPinned)
	assert.Equal(t, []string{"work", "home", "ideas"}, n.Tags)

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "categories")
}

func TestNote_UnmarshalWithoutTags(t *testing.T) {
	var n Note
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1"}`), &n))
	assert.NotNil(t, n.Tags)
	assert.Empty(t, n.Tags)
}

func TestSession_List(t *testing.T) {
	f := newFixture(t, &Config{HistorySize: 50, SaveDebounce: time.Hour, RecentLimit: 2})
	ctx := context.Background()

	first, err := f.session.Create(ctx, "first", "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.session.Create(ctx, "second", "")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	third, err := f.session.Create(ctx, "third", "")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.session.ToggleFavorite(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{first.ID, third.ID}, ids(f.session.List(Query{Filter: FilterRecent})))
	assert.Equal(t, []string{first.ID}, ids(f.session.List(Query{Filter: FilterFavorites})))
	assert.Equal(t, []string{second.ID}, ids(f.session.List(Query{Search: "SEC"})))
}
