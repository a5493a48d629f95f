package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodymind-ai/internal/config"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	l.Info("dropped")
	l.Warn("kept", "chunks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, float64(3), entry["chunks"])
}

func TestNew_Text(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	newWithWriter(config.LogConfig{Level: "debug", Format: "text"}, &buf).Debug("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}
