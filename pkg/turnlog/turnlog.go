// Package turnlog provides a durable per-turn audit sink. Each turn is
// written as a standalone JSON file in a run-scoped directory, so a run
// can be replayed or inspected after the fact.
package turnlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Logger writes one JSON record per turn number. Logging the same turn
// number twice overwrites the previous record, which keeps replay
// idempotent: at most one record per turn, never a duplicate.
type Logger struct {
	dir    string
	prefix string
}

// New creates a Logger rooted at dir. The directory is created if it
// does not exist. prefix distinguishes multiple agents logging into the
// same directory ("orchestrator", "explorer", ...).
func New(dir string, prefix string) (*Logger, error) {
	if dir == "" {
		return nil, errors.New("turn log directory must not be empty")
	}
	if prefix == "" {
		prefix = "orchestrator"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create turn log directory %s", dir)
	}
	return &Logger{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory records are written to.
func (l *Logger) Dir() string {
	return l.dir
}

// LogTurn persists the payload for the given turn number. The record is
// wrapped with the turn number and a timestamp.
func (l *Logger) LogTurn(turnNumber int, payload map[string]any) error {
	record := map[string]any{
		"turn":      turnNumber,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      payload,
	}

	path := l.turnPath(turnNumber)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create turn log file %s", path)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return errors.Wrapf(err, "encode turn %d", turnNumber)
	}

	log.Debug().Int("turn", turnNumber).Str("path", path).Msg("Logged turn")
	return nil
}

// ReadTurn loads a previously logged record.
func (l *Logger) ReadTurn(turnNumber int) (map[string]any, error) {
	b, err := os.ReadFile(l.turnPath(turnNumber))
	if err != nil {
		return nil, errors.Wrapf(err, "read turn %d", turnNumber)
	}
	var record map[string]any
	if err := json.Unmarshal(b, &record); err != nil {
		return nil, errors.Wrapf(err, "decode turn %d", turnNumber)
	}
	return record, nil
}

func (l *Logger) turnPath(turnNumber int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s_turn_%04d.json", l.prefix, turnNumber))
}
