package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.Named("session").With(String("student_id", "riya")).Info("session started",
		Int("questions", 3),
		Duration("elapsed", 90*time.Second),
		Err(errors.New("boom")),
	)
	log.Debug("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "session started", entry["msg"])
	assert.Equal(t, "session", entry["logger"])
	assert.Equal(t, "riya", entry["student_id"])
	assert.Equal(t, float64(3), entry["questions"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(String("a", "b")).Error("nothing")
	})
}
