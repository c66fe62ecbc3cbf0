//go:build !nox11

package detector

import (
	"github.com/heimgewebe/mitschreiber/pkg/integrations/x11"
	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// WindowingBackend names the compiled-in windowing backend
const WindowingBackend = "x11"

func newWindowingProbe() (window.Probe, error) {
	return x11.NewProbe()
}
