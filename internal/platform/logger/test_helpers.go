package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer is a thread-safe buffer for capturing log output in tests.
type TestLogBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write implements io.Writer for TestLogBuffer.
func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer contents as a string.
func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset clears the buffer contents.
func (b *TestLogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Entries decodes the buffered output as a stream of JSON log records.
func (b *TestLogBuffer) Entries() ([]map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(b.String()))
	var entries []map[string]any
	for dec.More() {
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// EntriesWithMessage returns the records logged with msg, in order. It fails
// the test if the buffer holds anything but JSON records.
func EntriesWithMessage(t *testing.T, logBuf *TestLogBuffer, msg string) []map[string]any {
	t.Helper()

	entries, err := logBuf.Entries()
	if err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, logBuf.String())
	}
	var out []map[string]any
	for _, e := range entries {
		if e[slog.MessageKey] == msg {
			out = append(out, e)
		}
	}
	return out
}

// NewTestLogger creates a debug-level JSON logger writing to a fresh buffer.
// Unlike Setup it leaves the process-wide default logger untouched.
func NewTestLogger(t *testing.T) (*TestLogBuffer, *slog.Logger) {
	t.Helper()

	logBuf := &TestLogBuffer{}
	handler := slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logBuf, slog.New(handler)
}
