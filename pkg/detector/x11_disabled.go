//go:build nox11

package detector

import (
	"github.com/pkg/errors"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// WindowingBackend names the compiled-in windowing backend
const WindowingBackend = "none"

func newWindowingProbe() (window.Probe, error) {
	return nil, errors.New("no windowing backend compiled in (built with nox11)")
}
