package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogrusAdapter(t *testing.T) {
	t.Parallel()

	base, hook := logrustest.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	log := NewLogrus(base)

	log.Info("pool started", "pool_size", 128)
	log.Warn("eviction stall")
	log.Error("flush failed", "page_id", 7, "error", "disk gone")

	entries := hook.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "pool started", entries[0].Message)
	assert.Equal(t, 128, entries[0].Data["pool_size"])

	assert.Equal(t, logrus.WarnLevel, entries[1].Level)

	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
	assert.Equal(t, 7, entries[2].Data["page_id"])
	assert.Equal(t, "disk gone", entries[2].Data["error"])
}

func TestLogrusAdapterSkipsNonStringKeys(t *testing.T) {
	t.Parallel()

	base, hook := logrustest.NewNullLogger()
	log := NewLogrus(base)

	log.Error("oops", 42, "value", "page_id", 9)

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Data, 42)
}

func TestZapAdapter(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZap(zap.New(core))

	log.Info("pool started", "pool_size", 128)
	log.Warn("eviction stall")
	log.Error("flush failed", "page_id", 7)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "pool started", entries[0].Message)
	assert.Equal(t, int64(128), entries[0].ContextMap()["pool_size"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, int64(7), entries[2].ContextMap()["page_id"])
}
