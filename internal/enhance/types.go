package enhance

import (
	"context"
	"errors"
)

// Kind classifies enhancement failures.
type Kind string

const (
	// KindNoAPIKey means no key is configured. No request was made.
	KindNoAPIKey Kind = "no_api_key"
	// KindRequestFailed means the API answered with a non-2xx status.
	KindRequestFailed Kind = "request_failed"
	// KindEmptyResult means the API answered 2xx without any text.
	KindEmptyResult Kind = "empty_result"
	// KindNetwork means the API could not be reached after all retries.
	KindNetwork Kind = "network"
	// KindCanceled means the caller's context ended first.
	KindCanceled Kind = "canceled"
)

// User-facing messages.
const (
	msgNoAPIKey      = "No API key found. Please add your Gemini API key in settings."
	msgRequestFailed = "Failed to enhance text. Please try again."
	msgEmptyResult   = "No enhanced text was generated. Please try again."
	msgNetwork       = "An error occurred while enhancing the text. Please try again."
	msgCanceled      = "The enhancement request was cancelled."
)

// DefaultTone is used when the caller does not name one.
const DefaultTone = "professional"

// Error is an enhancement failure. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status of the last response, when there was one.
	Status int
	Err    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Result is the outcome of Enhance in the shape clients consume.
type Result struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// KeySource supplies the Gemini API key at call time, so key changes take
// effect without rebuilding the client.
type KeySource interface {
	APIKey(ctx context.Context) string
}

// StaticKey is a KeySource that always returns the same key.
type StaticKey string

// APIKey implements KeySource.
func (k StaticKey) APIKey(context.Context) string { return string(k) }

// Gemini wire types.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// text returns the first candidate's first part, if any.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
