package window

import (
	"encoding/json"
	"time"
)

// Unknown is reported for any field the probe could not determine
const Unknown = "Unknown"

// TimestampLayout is ISO-8601 with an explicit numeric offset ("+00:00")
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// State is one OS context snapshot. It is immutable once constructed.
type State struct {
	Timestamp   string
	AppName     string
	WindowTitle string
	Clipboard   *string // nil when clipboard was not sampled
}

// stateJSON is the transport form handed to poll callers
type stateJSON struct {
	Timestamp string  `json:"ts"`
	App       string  `json:"app"`
	Window    string  `json:"window"`
	Clipboard *string `json:"clipboard"`
}

// MarshalJSON encodes the state as {ts, app, window, clipboard}
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Timestamp: s.Timestamp,
		App:       s.AppName,
		Window:    s.WindowTitle,
		Clipboard: s.Clipboard,
	})
}

// UnmarshalJSON decodes the transport form back into a State
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = State{
		Timestamp:   raw.Timestamp,
		AppName:     raw.App,
		WindowTitle: raw.Window,
		Clipboard:   raw.Clipboard,
	}
	return nil
}

// WithClipboard returns a copy of s carrying the given clipboard text
func (s State) WithClipboard(text string) State {
	s.Clipboard = &text
	return s
}

// Now returns the current wall-clock time formatted with TimestampLayout
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats t in UTC with TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// OrUnknown returns v, or Unknown if v is empty
func OrUnknown(v string) string {
	if v == "" {
		return Unknown
	}
	return v
}

// Probe is the interface that all context sampling backends must satisfy
type Probe interface {
	// Sample returns the current OS context. tick advances by one per
	// worker iteration and may wrap.
	Sample(tick uint64) State

	// Backend returns a short backend name ("x11", "stub")
	Backend() string

	// Close releases any resources held by the probe
	Close() error
}
