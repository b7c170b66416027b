// Package control implements the file-based pause/resume/stop channel
// between an operator process and the running scrape loop. The protocol is
// a single JSON file at a well-known path: the operator writes it, the
// scraper reads and consumes it at its poll points. Any IPC primitive could
// replace the file as long as polling stays bounded and control stays
// cooperative.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// State is the operator's desired scrape-loop state.
type State string

const (
	StatePause  State = "pause"
	StateResume State = "resume"
	StateStop   State = "stop"
)

// Command is one operator instruction.
type Command struct {
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`

	// Correlation optionally tags the command for log correlation.
	Correlation string `json:"command,omitempty"`
}

func (s State) valid() bool {
	switch s {
	case StatePause, StateResume, StateStop:
		return true
	}
	return false
}

// Channel reads and writes the control file. The scraper is the single
// consumer; operators are writers.
type Channel struct {
	path string
}

// NewChannel creates a channel at path, creating the parent directory.
func NewChannel(path string) (*Channel, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create control dir: %w", err)
	}
	return &Channel{path: path}, nil
}

// Issue writes a command for the scrape loop to pick up at its next poll
// point. A later Issue overwrites an unconsumed earlier one.
func (c *Channel) Issue(cmd Command) error {
	if !cmd.State.valid() {
		return fmt.Errorf("invalid control state %q", cmd.State)
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now().UTC()
	}
	buf, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal control command: %w", err)
	}
	if err := os.WriteFile(c.path, buf, 0o644); err != nil {
		return fmt.Errorf("write control file: %w", err)
	}
	return nil
}

// Poll reads and consumes the pending command, if any. Malformed or invalid
// commands are logged, discarded, and reported as absent so the loop keeps
// its prior effective state.
func (c *Channel) Poll() *Command {
	buf, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		slog.Warn("control file unreadable, ignoring", "path", c.path, "error", err)
		return nil
	}

	// Consume before acting: the file is single-shot.
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to consume control file", "path", c.path, "error", err)
	}

	var cmd Command
	if err := json.Unmarshal(buf, &cmd); err != nil {
		slog.Warn("malformed control command ignored", "path", c.path, "error", err)
		return nil
	}
	if !cmd.State.valid() {
		slog.Warn("unknown control state ignored", "state", cmd.State)
		return nil
	}
	return &cmd
}

// Peek reads the pending command without consuming it. Used by the status
// command so an operator query never swallows a command meant for the loop.
func (c *Channel) Peek() *Command {
	buf, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var cmd Command
	if err := json.Unmarshal(buf, &cmd); err != nil || !cmd.State.valid() {
		return nil
	}
	return &cmd
}
