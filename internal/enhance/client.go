// Package enhance rewrites note text through the Gemini generateContent API.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/notesd/internal/logging"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/notesd/internal/enhance"

	// DefaultBaseURL is the public Gemini endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	defaultTimeout = 60 * time.Second
	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Model   string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	Retry   RetryConfig
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Model:     DefaultModel,
		Timeout:   defaultTimeout,
		Retry:     *DefaultRetryConfig(),
		RateLimit: 1,
		Burst:     3,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client calls Gemini to enhance text.
type Client struct {
	cfg     Config
	keys    KeySource
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates a Client. keys is consulted on every call.
func NewClient(cfg Config, keys KeySource, logger *zap.Logger, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("key source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Retry.ApplyDefaults()

	c := &Client{
		cfg:    cfg,
		keys:   keys,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Enhance rewrites text in the given tone and reports the outcome as a
// Result. It never returns an error; failures are carried in the Result.
func (c *Client) Enhance(ctx context.Context, text, tone string) Result {
	out, err := c.EnhanceText(ctx, text, tone)
	if err != nil {
		res := Result{Success: false, Error: msgNetwork, Kind: KindNetwork}
		var e *Error
		if errors.As(err, &e) {
			res.Error = e.Message
			res.Kind = e.Kind
		}
		return res
	}
	return Result{Success: true, Content: out}
}

// EnhanceText rewrites text in the given tone. Errors are always *Error.
// Without an API key no request is made.
func (c *Client) EnhanceText(ctx context.Context, text, tone string) (string, error) {
	if strings.TrimSpace(tone) == "" {
		tone = DefaultTone
	}

	ctx, span := c.tracer.Start(ctx, "enhance.request", trace.WithAttributes(
		attribute.String("enhance.model", c.cfg.Model),
		attribute.String("enhance.tone", tone),
		attribute.Int("enhance.input_chars", len(text)),
	))
	defer span.End()

	start := time.Now()
	out, attempts, err := c.enhance(ctx, text, tone)
	RequestDuration.Observe(time.Since(start).Seconds())
	recordOutcome(err)

	span.SetAttributes(attribute.Int("enhance.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		c.logger.Warn("text enhancement failed",
			zap.String("kind", string(KindOf(err))),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Debug("text enhanced",
		zap.Int("attempts", attempts),
		zap.Int("output_chars", len(out)))
	return out, nil
}

func (c *Client) enhance(ctx context.Context, text, tone string) (string, int, error) {
	key := strings.TrimSpace(c.keys.APIKey(ctx))
	if key == "" {
		return "", 0, &Error{Kind: KindNoAPIKey, Message: msgNoAPIKey}
	}
	c.logger.Debug("calling gemini",
		zap.String("model", c.cfg.Model),
		logging.RedactedString("api_key", key))

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(text, tone)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 4096,
		},
	})
	if err != nil {
		return "", 0, &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.Retry.Backoff(attempt)
			RetriesTotal.Inc()
			c.logger.Info("retrying gemini request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
			if err := sleepCtx(ctx, wait); err != nil {
				return "", attempts, canceled(err)
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", attempts, canceled(err)
			}
		}

		attempts++
		out, err := c.doRequest(ctx, key, body)
		if err == nil {
			return out, attempts, nil
		}
		if ctx.Err() != nil {
			return "", attempts, canceled(ctx.Err())
		}
		if !isRetryableError(err) {
			return "", attempts, err
		}
		lastErr = err
	}

	// Retries exhausted: report the last failure without the retry marker.
	var re *retryableError
	if errors.As(lastErr, &re) {
		lastErr = re.err
	}
	return "", attempts, lastErr
}

// doRequest performs one generateContent call.
func (c *Client) doRequest(ctx context.Context, key string, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(c.cfg.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &retryableError{err: &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &retryableError{err: &Error{Kind: KindNetwork, Message: msgNetwork, Status: resp.StatusCode, Err: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Kind:    KindRequestFailed,
			Message: msgRequestFailed,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("gemini api returned status %d", resp.StatusCode),
		}
		var parsed apiError
		if json.Unmarshal(data, &parsed) == nil && strings.TrimSpace(parsed.Error.Message) != "" {
			apiErr.Message = parsed.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &retryableError{err: apiErr}
		}
		return "", apiErr
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &Error{Kind: KindEmptyResult, Message: msgEmptyResult, Status: resp.StatusCode, Err: err}
	}
	out := parsed.text()
	if out == "" {
		return "", &Error{Kind: KindEmptyResult, Message: msgEmptyResult, Status: resp.StatusCode}
	}
	return out, nil
}

func canceled(err error) error {
	return &Error{Kind: KindCanceled, Message: msgCanceled, Err: err}
}

func buildPrompt(text, tone string) string {
	return fmt.Sprintf("Enhance the following text to be more %s. "+
		"Improve clarity, flow, and impact while preserving original meaning and Markdown formatting.\n\n"+
		"Original text:\n%s", tone, text)
}
