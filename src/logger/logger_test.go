package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "INFO", "BarBuilder")

	l.Debug("hidden %d", 1)
	l.Warning("no ticks for %s", "USDJPY")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "BarBuilder", entry["component"])
	assert.Equal(t, "no ticks for USDJPY", entry["message"])
}

func TestLoggerInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "verbose", "x")
	l.Debug("dropped")
	l.Info("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestCriticalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "info", "x")
	code := -1
	l.exit = func(c int) { code = c }
	l.Critical("boom")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "boom")
}

func TestNamedKeepsSink(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "info", "root").Named("child")
	l.Info("hello")
	assert.Contains(t, buf.String(), `"component":"child"`)
}
