// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// NewTestLogger returns a debug-level text logger writing to w.
// A nil writer discards everything.
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that drops all output
func DiscardLogger() *slog.Logger {
	return NewTestLogger(nil)
}

// LogBuffer collects log output. It is safe for use by the background
// goroutines a session starts for address lookups.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any logged line contains every given fragment.
func (b *LogBuffer) Contains(fragments ...string) bool {
	for _, line := range strings.Split(b.String(), "\n") {
		ok := line != ""
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// CaptureLogger returns a debug-level logger and the buffer it writes to.
func CaptureLogger() (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return NewTestLogger(buf), buf
}
