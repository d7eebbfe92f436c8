package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/notesd/internal/config"
)

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  map[zapcore.Level]LevelSamplingConfig{zapcore.InfoLevel: {Initial: 1, Thereafter: 0}},
	})
	logger := &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		logger.Error(ctx, "save failed")
		logger.Info(ctx, "saved")
	}

	assert.Equal(t, 50, observed.FilterMessage("save failed").Len())
	assert.Equal(t, 1, observed.FilterMessage("saved").Len())
}

func TestNewSampledCore_MissingInfoRatesUseDefaults(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
	})
	logger := &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}

	for i := 0; i < 100; i++ {
		logger.Info(context.Background(), "note created")
	}
	assert.Equal(t, 100, observed.FilterMessage("note created").Len())
}

func TestLevelFilterCore(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	low := &levelFilterCore{Core: core, maxLevel: zapcore.WarnLevel}
	high := &levelFilterCore{Core: core, minLevel: zapcore.ErrorLevel}

	assert.True(t, low.Enabled(zapcore.DebugLevel))
	assert.False(t, low.Enabled(zapcore.ErrorLevel))
	assert.False(t, high.Enabled(zapcore.WarnLevel))
	assert.True(t, high.Enabled(zapcore.ErrorLevel))

	child := low.With([]zapcore.Field{zap.String("k", "v")})
	assert.False(t, child.Enabled(zapcore.ErrorLevel))
}
