package detector

import (
	"os"

	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/pkg/integrations/clipboard"
	"github.com/heimgewebe/mitschreiber/pkg/integrations/stub"
	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// Options selects optional probe features
type Options struct {
	Clipboard bool
}

// New builds the probe for one worker. It tries the windowing backend first
// and falls back to the stub for the lifetime of the returned probe.
func New(log *zap.Logger, opts Options) window.Probe {
	if log == nil {
		log = zap.NewNop()
	}

	var probe window.Probe
	if p, err := newWindowingProbe(); err != nil {
		log.Warn("windowing probe unavailable, falling back to stub",
			zap.String("display_server", DetectDisplayServer()),
			zap.Error(err))
		probe = stub.NewProbe()
	} else {
		probe = p
	}

	if opts.Clipboard {
		reader, err := clipboard.NewReader()
		if err != nil {
			log.Warn("clipboard unavailable, samples will not carry clipboard text", zap.Error(err))
		} else {
			probe = clipboard.Wrap(probe, reader)
		}
	}

	return probe
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
