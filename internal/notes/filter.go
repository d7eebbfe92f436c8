package notes

import (
	"sort"
	"strings"
)

// applyQuery filters, searches and orders notes. It may reorder notes in
// place; callers pass a private copy.
//
// FilterAll and FilterRecent order by UpdatedAt, newest first, and
// FilterRecent keeps only the first limit notes. FilterFavorites keeps
// collection order. Search is a case-insensitive substring match on title
// or content, applied after the filter. Pinned notes always come first.
func applyQuery(notes []Note, q Query, limit int) []Note {
	var out []Note
	switch q.Filter {
	case FilterFavorites:
		out = make([]Note, 0, len(notes))
		for _, n := range notes {
			if n.IsFavorite {
				out = append(out, n)
			}
		}
	case FilterRecent:
		out = byUpdatedDesc(notes)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
	default:
		out = byUpdatedDesc(notes)
	}

	if query := strings.ToLower(strings.TrimSpace(q.Search)); query != "" {
		matched := out[:0:0]
		for _, n := range out {
			if strings.Contains(strings.ToLower(n.Title), query) ||
				strings.Contains(strings.ToLower(n.Content), query) {
				matched = append(matched, n)
			}
		}
		out = matched
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsPinned && !out[j].IsPinned
	})
	return out
}

func byUpdatedDesc(notes []Note) []Note {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt > notes[j].UpdatedAt
	})
	return notes
}
