// Package idgen provides pluggable identifier generation.
//
// Constructors that mint identifiers accept a Generator, so tests can swap
// in deterministic sequences.
package idgen

import (
	"crypto/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator that produces random base-36 strings of the
// given length.
func NanoID(length int) Generator {
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = base36[int(buf[i])%len(base36)]
		}
		return string(buf)
	}
}

// NoteID returns a Generator producing "{epoch-millis}-{9 base36 chars}".
// now may be nil, in which case time.Now is used.
func NoteID(now func() time.Time) Generator {
	if now == nil {
		now = time.Now
	}
	suffix := NanoID(9)
	return func() string {
		return strconv.FormatInt(now().UnixMilli(), 10) + "-" + suffix()
	}
}

// SessionID returns an RFC 9562 UUID v7 string.
func SessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequence returns a Generator that yields prefix-1, prefix-2, ...
// It is intended for tests.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
