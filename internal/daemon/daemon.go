package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/heimgewebe/mitschreiber/internal/config"
)

const defaultActiveFile = "active.json"

// DefaultActivePath returns <data dir>/sessions/active.json
func DefaultActivePath() (string, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions", defaultActiveFile), nil
}

// Flags records the options an active session was started with
type Flags struct {
	Embed          bool  `json:"embed"`
	Clipboard      bool  `json:"clipboard"`
	PollIntervalMS int64 `json:"poll_interval_ms"`
	MaxBuffered    int   `json:"max_buffered,omitempty"`
}

// Active is the content of the active session file
type Active struct {
	SessionID   string `json:"session_id"`
	PID         int    `json:"pid"`
	JournalPath string `json:"journal_path,omitempty"`
	StartedAt   string `json:"started_at"`
	Flags       Flags  `json:"flags"`
}

// Daemon manages the active session file of the foreground recorder
type Daemon struct {
	activeFile string
}

// New manages activeFile, or DefaultActivePath when it is empty
func New(activeFile string) (*Daemon, error) {
	if activeFile == "" {
		var err error
		if activeFile, err = DefaultActivePath(); err != nil {
			return nil, err
		}
	}
	return &Daemon{activeFile: activeFile}, nil
}

// Path returns the active session file path
func (d *Daemon) Path() string {
	return d.activeFile
}

// WriteActive atomically writes the active session file
func (d *Daemon) WriteActive(active *Active) error {
	if err := os.MkdirAll(filepath.Dir(d.activeFile), 0755); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode active session")
	}

	tmp := d.activeFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write active session file")
	}
	if err := os.Rename(tmp, d.activeFile); err != nil {
		return errors.Wrap(err, "failed to replace active session file")
	}
	return nil
}

// ReadActive returns the active session, or nil when there is none. A corrupt
// file is removed and reported as no session.
func (d *Daemon) ReadActive() (*Active, error) {
	data, err := os.ReadFile(d.activeFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read active session file: %w", err)
	}

	var active Active
	if err := json.Unmarshal(data, &active); err != nil {
		_ = d.RemoveActive()
		return nil, nil
	}

	return &active, nil
}

func (d *Daemon) RemoveActive() error {
	if err := os.Remove(d.activeFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove active session file: %w", err)
	}
	return nil
}

// IsRunning reports the active session if its process is still alive. Stale
// files are removed.
func (d *Daemon) IsRunning() (bool, *Active, error) {
	active, err := d.ReadActive()
	if err != nil {
		return false, nil, err
	}

	if active == nil {
		return false, nil, nil
	}

	if active.PID <= 0 {
		d.RemoveActive()
		return false, nil, nil
	}

	process, err := os.FindProcess(active.PID)
	if err != nil {
		return false, nil, nil
	}

	err = process.Signal(syscall.Signal(0))
	if err != nil && !errors.Is(err, syscall.EPERM) {
		d.RemoveActive()
		return false, nil, nil
	}

	return true, active, nil
}

// Stop sends SIGINT to the recorder. The recorder removes the active file
// itself once it has shut down.
func (d *Daemon) Stop() error {
	running, active, err := d.IsRunning()
	if err != nil {
		return fmt.Errorf("error checking session status: %w", err)
	}

	if !running {
		return fmt.Errorf("no active session or active file is stale")
	}

	process, err := os.FindProcess(active.PID)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.SIGINT); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = d.RemoveActive()
			return fmt.Errorf("session process already terminated")
		}
		return fmt.Errorf("failed to send SIGINT: %w", err)
	}

	return nil
}
