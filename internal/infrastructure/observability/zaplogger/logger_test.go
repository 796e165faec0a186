package zaplogger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
)

func TestWrapForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core)).With(observability.F("service", "minishop"))

	logger.Warn("notification_failed",
		observability.F("order_id", "o-1"),
		observability.F("error", errors.New("smtp down")),
	)

	entries := logs.FilterMessage("notification_failed").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "minishop", ctx["service"])
	assert.Equal(t, "o-1", ctx["order_id"])
	assert.Equal(t, "smtp down", ctx["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestWithTraceNormalisesEmptyIDs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Wrap(zap.New(core)).WithTrace("", SystemSpanID).Info("boot")

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "unknown", ctx["trace_id"])
	assert.Equal(t, SystemSpanID, ctx["span_id"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Service: "minishop", Level: "loud"})
	require.Error(t, err)
}

func TestNewWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := New(Options{Service: "minishop", Env: "test", LogFile: path})
	require.NoError(t, err)
	logger.Info("hello")
	assert.FileExists(t, path)
}
