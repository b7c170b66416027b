package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Store persists checkpoints as whole-file JSON replacements. Save writes to
// a temp file in the same directory, fsyncs, and renames over the target so
// a crash can never leave a torn checkpoint behind.
type Store struct {
	path string
}

// NewStore creates a store writing to path. The parent directory is created
// if missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the last saved checkpoint. A missing file returns (nil, nil):
// the caller starts a fresh session. A corrupt file is renamed aside and
// also returns (nil, nil); resume positions are never guessed.
func (s *Store) Load() (*Checkpoint, error) {
	buf, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(buf, &cp); err != nil {
		aside := s.path + ".corrupt"
		slog.Warn("checkpoint file is corrupt, starting fresh",
			"path", s.path, "movedTo", aside, "error", err)
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			slog.Warn("failed to move corrupt checkpoint aside", "error", renameErr)
		}
		return nil, nil
	}
	return &cp, nil
}

// Save durably replaces the checkpoint on disk. It must complete before the
// caller advances to the next item; that ordering is the crash-safety
// invariant.
func (s *Store) Save(cp *Checkpoint) error {
	cp.LastSavedAt = time.Now().UTC()

	buf, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file. Called when a new session discards a
// completed run's checkpoint. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
