package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Warn("PROFILING", "answer rejected", map[string]interface{}{"question_id": "traveler_type"})
	l.Info("GROUP", "room created", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "answer rejected", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "PROFILING", fields["module"])
	assert.Equal(t, map[string]interface{}{"question_id": "traveler_type"}, fields["details"])

	// nil details still produce an empty object.
	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("X", "ignored", map[string]interface{}{"error": "boom"})
	assert.NoError(t, l.Sync())
}
