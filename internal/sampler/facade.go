package sampler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/pkg/detector"
	"github.com/heimgewebe/mitschreiber/pkg/window"
)

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Init installs the process-wide Manager used by StartSession, StopSession
// and PollState. It must be called before the first session starts; later
// calls replace the manager for new calls only.
func Init(opts ...Option) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = NewManager(opts...)
	return defaultManager
}

// Default returns the process-wide Manager, creating one on first use
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = NewManager()
	}
	return defaultManager
}

// StartSession starts a session on the process-wide Manager. cfg is the
// host configuration mapping (see ParseOptions).
func StartSession(id string, cfg map[string]any) error {
	opts, err := ParseOptions(cfg)
	if err != nil {
		return err
	}
	return Default().Start(id, opts)
}

// StopSession stops a session on the process-wide Manager
func StopSession(id string) error {
	return Default().Stop(id)
}

// PollState drains a session on the process-wide Manager
func PollState(id string) ([]string, error) {
	return Default().Poll(id)
}

func detectorProbeFactory(log *zap.Logger) ProbeFactory {
	return func(opts Options) window.Probe {
		return detector.New(log, detector.Options{Clipboard: opts.Clipboard})
	}
}
