// Package settings stores user preferences, including the Gemini API key.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/config"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/store"
)

// Themes accepted by Save. The empty theme means "follow the client".
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// ErrInvalidTheme is returned by Save for unknown theme names.
var ErrInvalidTheme = errors.New("invalid theme")

// Settings are the user's preferences. The API key is redacted whenever
// Settings is printed or marshaled.
type Settings struct {
	GeminiAPIKey config.Secret `json:"geminiApiKey"`
	Theme        string        `json:"theme,omitempty"`
}

// record is the stored form. It keeps the raw key, which Settings'
// marshaler would redact.
type record struct {
	GeminiAPIKey string `json:"geminiApiKey"`
	Theme        string `json:"theme,omitempty"`
}

// Service reads and writes Settings under store.KeySettings.
type Service struct {
	store       store.Store
	fallbackKey config.Secret
	logger      *zap.Logger
}

// NewService creates a Service. fallbackKey is used by APIKey when no key
// has been saved; it usually comes from the enhance.api_key configuration.
func NewService(s store.Store, fallbackKey config.Secret, logger *zap.Logger) (*Service, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, fallbackKey: fallbackKey, logger: logger}, nil
}

// Get returns the saved settings, or defaults when none are saved or the
// record cannot be read. Failures are logged.
func (s *Service) Get(ctx context.Context) Settings {
	data, err := s.store.Get(ctx, store.KeySettings)
	if errors.Is(err, store.ErrNotFound) {
		return Settings{}
	}
	if err != nil {
		s.logger.Error("failed to load settings", zap.Error(err))
		return Settings{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Error("failed to decode settings", zap.Error(err))
		return Settings{}
	}
	return Settings{GeminiAPIKey: config.Secret(rec.GeminiAPIKey), Theme: rec.Theme}
}

// Save stores settings. The key is trimmed before saving.
func (s *Service) Save(ctx context.Context, in Settings) error {
	theme := strings.ToLower(strings.TrimSpace(in.Theme))
	switch theme {
	case "", ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("%w: %q (supported: light, dark, system)", ErrInvalidTheme, in.Theme)
	}

	key := config.Secret(strings.TrimSpace(in.GeminiAPIKey.Value()))
	data, err := json.Marshal(record{
		GeminiAPIKey: key.Value(),
		Theme:        theme,
	})
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.Put(ctx, store.KeySettings, data); err != nil {
		s.logger.Error("failed to save settings", zap.Error(err))
		return fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings saved",
		zap.Bool("has_api_key", key.Value() != ""),
		logging.Secret("gemini_api_key", key),
		zap.String("theme", theme))
	return nil
}

// APIKey returns the saved Gemini key, falling back to the configured key.
func (s *Service) APIKey(ctx context.Context) string {
	if key := strings.TrimSpace(s.Get(ctx).GeminiAPIKey.Value()); key != "" {
		return key
	}
	return strings.TrimSpace(s.fallbackKey.Value())
}

// HasAPIKey reports whether APIKey would return a non-blank key.
func (s *Service) HasAPIKey(ctx context.Context) bool {
	return s.APIKey(ctx) != ""
}
