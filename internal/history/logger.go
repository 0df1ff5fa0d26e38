package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// TurnLogger appends one JSON record per Turn to a per-agent log file
// under dir/<agent_id>/turns.jsonl. Files are
// mutex-guarded, append-only, and lazily opened, one per agent.
type TurnLogger struct {
	mu   sync.Mutex
	dir  string
	open map[string]*os.File
}

// NewTurnLogger creates a logger rooted at dir. An empty dir disables
// logging entirely; LogTurn becomes a no-op.
func NewTurnLogger(dir string) *TurnLogger {
	return &TurnLogger{dir: dir, open: make(map[string]*os.File)}
}

// LogTurn appends turn as one JSON line to its agent's log file, opening
// and creating the per-agent directory on first use.
func (l *TurnLogger) LogTurn(turn models.Turn) error {
	if l.dir == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.open[turn.AgentID]
	if !ok {
		agentDir := filepath.Join(l.dir, turn.AgentID)
		if err := os.MkdirAll(agentDir, 0755); err != nil {
			return fmt.Errorf("create agent log dir: %w", err)
		}
		path := filepath.Join(agentDir, "turns.jsonl")
		opened, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open turn log: %w", err)
		}
		l.open[turn.AgentID] = opened
		f = opened
	}

	encoded, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	if _, err := f.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write turn log: %w", err)
	}
	return f.Sync()
}

// Close closes every per-agent file this logger has opened.
func (l *TurnLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.open {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
