package stub

import "github.com/heimgewebe/mitschreiber/pkg/window"

// Probe implements window.Probe with synthetic values. It is used when no
// windowing backend is compiled in or reachable.
type Probe struct{}

// NewProbe creates a new stub probe
func NewProbe() *Probe {
	return &Probe{}
}

// Sample cycles app and window names on tick modulo 3 and 5
func (p *Probe) Sample(tick uint64) window.State {
	app := "vscode"
	if tick%3 == 0 {
		app = "firefox"
	}

	title := "Editor"
	if tick%5 == 0 {
		title = "README.md"
	}

	return window.State{
		Timestamp:   window.Now(),
		AppName:     app,
		WindowTitle: title,
	}
}

// Backend returns "stub"
func (p *Probe) Backend() string {
	return "stub"
}

// Close is a no-op
func (p *Probe) Close() error {
	return nil
}
