package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json").With("component", "test")

	ctx := WithRequestID(context.Background(), "req-42")
	l.InfoContext(ctx, "hello")
	l.DebugContext(ctx, "dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "req-42", rec["request_id"])
	assert.Equal(t, "test", rec["component"])
}

func TestNew_TextWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("plain")

	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "request_id")
}
