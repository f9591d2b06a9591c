package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	child := l.With(String("ticker", "AAPL"))
	child.Info("cycle complete",
		Float64("confidence", 0.8),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(b)
	assert.True(t, strings.Contains(line, `"ticker":"AAPL"`), line)
	assert.True(t, strings.Contains(line, `"confidence":0.8`), line)
	assert.True(t, strings.Contains(line, `"took":1500`), line)
	assert.True(t, strings.Contains(line, `"error":"boom"`), line)
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("ignored", String("k", "v"))
	l.With(Bool("b", true)).Debug("ignored")
}
