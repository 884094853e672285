package testutil

import (
	"log/slog"
	"testing"

	"github.com/vitalsync/healthd/internal/log"
)

// NewTestLogger returns a logger that routes through t.Log so output is
// attributed to the right test and hidden unless the test fails.
func NewTestLogger(t *testing.T) log.Logger {
	t.Helper()
	return log.NewWithWriter(testWriter{t}, log.Config{Level: slog.LevelDebug})
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
