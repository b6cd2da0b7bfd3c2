package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "warn", "json").Info("dropped")
	assert.Empty(t, buf.String())

	NewWithWriter(&buf, "info", "json").Info("contact saved", "record_id", 1)
	assert.Contains(t, buf.String(), `"msg":"contact saved"`)

	buf.Reset()
	NewWithWriter(&buf, "info", "text").Info("contact saved")
	assert.Contains(t, buf.String(), "msg=\"contact saved\"")
}
