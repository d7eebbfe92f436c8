// Package notes holds the notes collection, its undo history and its
// persistence.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoteNotFound is returned when an operation names an unknown id.
	ErrNoteNotFound = errors.New("note not found")

	// ErrInvalidTag is returned for blank tags.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrInvalidFilter is returned by ParseFilter for unknown filter names.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrSessionClosed is returned by mutations after Close.
	ErrSessionClosed = errors.New("session is closed")
)

// Note is a single user note. Timestamps are Unix milliseconds.
type Note struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
	IsFavorite bool     `json:"isFavorite"`
	IsPinned   bool     `json:"isPinned"`
}

// UnmarshalJSON accepts the older record shape, which carried tags under
// "categories". Both fields are merged into Tags.
func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	var raw struct {
		plain
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Note(raw.plain)
	n.Tags = normalizeTags(append(n.Tags, raw.Categories...))
	return nil
}

// clone returns a deep copy of n.
func (n Note) clone() Note {
	n.Tags = append([]string{}, n.Tags...)
	return n
}

// HasTag reports whether the note carries tag (case-insensitive).
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// Filter selects which notes List returns.
type Filter string

const (
	// FilterAll returns every note, most recently updated first.
	FilterAll Filter = "all"
	// FilterRecent returns the most recently updated notes, up to the recent limit.
	FilterRecent Filter = "recent"
	// FilterFavorites returns favorite notes in collection order.
	FilterFavorites Filter = "favorites"
)

// ParseFilter parses a filter name. The empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterRecent, FilterFavorites:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: all, recent, favorites)", ErrInvalidFilter, s)
	}
}

// Query describes a List request.
type Query struct {
	Filter Filter
	Search string
}

// HistoryStatus describes the undo/redo position of a session.
type HistoryStatus struct {
	CanUndo  bool `json:"canUndo"`
	CanRedo  bool `json:"canRedo"`
	Index    int  `json:"index"`
	Length   int  `json:"length"`
	Capacity int  `json:"capacity"`
}

// Empty-list messages shown by clients.
const (
	EmptyNotesMessage    = "No notes yet"
	EmptyNotesSubMessage = "Create your first note to get started"
	emptySearchMessage   = "No notes found for '{query}'"
)

// EmptyMessage returns the message to show when a List result is empty.
func EmptyMessage(search string) string {
	if strings.TrimSpace(search) == "" {
		return EmptyNotesMessage
	}
	return strings.Replace(emptySearchMessage, "{query}", search, 1)
}

// normalizeTags trims tags, drops blanks, and removes case-insensitive
// duplicates, keeping first occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
