// Package auditlog appends computation diagnostics to a JSONL file.
// Every write is best effort: failures are logged and swallowed so the
// computation that produced the entry is never affected.
package auditlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

type Logger struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Logger {
	return &Logger{path: path}
}

type envelope struct {
	At    time.Time `json:"at"`
	Entry any       `json:"entry"`
}

func (l *Logger) Record(entry any) {
	if l == nil || l.path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Warn("audit log open failed", slog.String("path", l.path), slog.String("err", err.Error()))
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(envelope{At: time.Now().UTC(), Entry: entry}); err != nil {
		slog.Warn("audit log write failed", slog.String("path", l.path), slog.String("err", err.Error()))
	}
}
