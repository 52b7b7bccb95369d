// Package audit appends structured records to a JSONL log. The sink is
// fire-and-forget: write failures are logged and swallowed so the primary
// response path can never fail because of auditing.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink appends one JSON object per line to a log file.
type Sink struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

// NewSink creates a sink writing to path.
func NewSink(path string, log zerolog.Logger) *Sink {
	return &Sink{path: path, log: log.With().Str("component", "audit").Logger()}
}

// Append writes one record, adding a timestamp when the caller did not.
// Errors are logged, never returned.
func (s *Sink) Append(record map[string]any) {
	if record == nil {
		record = map[string]any{}
	}
	if _, ok := record["timestamp"]; !ok {
		record["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}
	line, err := json.Marshal(record)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal audit record")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Error().Err(err).Msg("create audit dir")
			return
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Error().Err(err).Msg("open audit log")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.log.Error().Err(err).Msg("append audit record")
	}
}
