// Package logging provides structured logging for notesd.
//
// Logger wraps Zap with a Trace level below Debug, context field injection
// (trace_id, span_id, session.id, request.id, note.id), encoder-level
// secret redaction and level-aware sampling that never drops errors.
// Output goes to stdout, to an OpenTelemetry log provider through the
// otelzap bridge, or both.
//
//	cfg, err := logging.FromAppConfig(appCfg.Logging, "notesd")
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	ctx = logging.WithNoteID(ctx, id)
//	logger.Info(ctx, "note saved", zap.Int("chars", n))
//
// Components that take a *zap.Logger get logger.Underlying().
//
// The Gemini API key is redacted three ways: config.Secret never prints
// its value, fields named like api_key are replaced by the encoder, and
// values that look like Google API keys are replaced by pattern.
//
// Tests use NewTestLogger and its Assert helpers.
package logging
