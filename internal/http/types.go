package http

import (
	"github.com/fyrsmithlabs/notesd/internal/enhance"
	"github.com/fyrsmithlabs/notesd/internal/notes"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}

// NoteListResponse is the response body for GET /api/v1/notes. Message
// and SubMessage are set when Notes is empty.
type NoteListResponse struct {
	Notes      []notes.Note `json:"notes"`
	Count      int          `json:"count"`
	Filter     notes.Filter `json:"filter"`
	Query      string       `json:"query,omitempty"`
	Message    string       `json:"message,omitempty"`
	SubMessage string       `json:"subMessage,omitempty"`
}

// ReloadResponse is the response body for POST /api/v1/notes/reload.
type ReloadResponse struct {
	Count   int                 `json:"count"`
	History notes.HistoryStatus `json:"history"`
}

// CreateNoteRequest is the request body for POST /api/v1/notes.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AddTagRequest is the request body for POST /api/v1/notes/:id/tags.
type AddTagRequest struct {
	Tag string `json:"tag"`
}

// SettingsResponse is the response body for the settings endpoints.
// The API key is always redacted.
type SettingsResponse struct {
	GeminiAPIKey string `json:"geminiApiKey"`
	Theme        string `json:"theme"`
	HasAPIKey    bool   `json:"hasApiKey"`
}

// UpdateSettingsRequest is the request body for PUT /api/v1/settings.
// Nil fields keep their current value, as does the redaction placeholder.
type UpdateSettingsRequest struct {
	GeminiAPIKey *string `json:"geminiApiKey,omitempty"`
	Theme        *string `json:"theme,omitempty"`
}

// EnhanceRequest is the request body for POST /api/v1/enhance. With
// NoteID set, Text defaults to the note's content, and Apply writes the
// result back to the note as one undoable change.
type EnhanceRequest struct {
	Text   string `json:"text"`
	Tone   string `json:"tone,omitempty"`
	NoteID string `json:"noteId,omitempty"`
	Apply  bool   `json:"apply,omitempty"`
}

// EnhanceResponse is the response body for POST /api/v1/enhance.
type EnhanceResponse struct {
	enhance.Result
	Note *notes.Note `json:"note,omitempty"`
}
