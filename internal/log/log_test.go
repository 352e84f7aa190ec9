package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "course", "IHM")
	Error("shown error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn course=IHM")
	assert.Contains(t, out, "[ERROR] shown error err=boom")
}

func TestKeyValueQuoting(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("color set", "course", "Conception logicielle", "color", "#ff0000", 42, "dropped", "odd")

	out := buf.String()
	assert.Contains(t, out, `course="Conception logicielle"`)
	assert.Contains(t, out, "color=#ff0000")
	assert.NotContains(t, out, "dropped")
	assert.NotContains(t, out, "odd")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, LevelDebug, l)

	l, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, l)
}
