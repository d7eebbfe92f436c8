package idgen

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteIDPattern = regexp.MustCompile(`^\d{13}-[a-z0-9]{9}$`)

func TestNoteID_Format(t *testing.T) {
	gen := NoteID(nil)

	id1 := gen()
	id2 := gen()

	assert.Regexp(t, noteIDPattern, id1)
	assert.Regexp(t, noteIDPattern, id2)
	assert.NotEqual(t, id1, id2)
}

func TestNoteID_UsesClock(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	gen := NoteID(func() time.Time { return fixed })

	id := gen()
	assert.Equal(t, "1700000000123-", id[:14])
}

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		require.Len(t, id, 12)
		assert.Regexp(t, `^[a-z0-9]+$`, id)
		seen[id] = true
	}
	assert.Len(t, seen, 1000)
}

func TestSessionID(t *testing.T) {
	id := SessionID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSequence(t *testing.T) {
	gen := Sequence("note")
	assert.Equal(t, "note-1", gen())
	assert.Equal(t, "note-2", gen())
}
