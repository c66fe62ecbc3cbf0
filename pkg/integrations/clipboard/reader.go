// Package clipboard reads the system clipboard as text and decorates probes
// with it.
package clipboard

import (
	"sync"

	"github.com/pkg/errors"
	"golang.design/x/clipboard"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

var (
	initOnce sync.Once
	initErr  error
)

// TextSource returns the current clipboard text, if any
type TextSource interface {
	Text() (string, bool)
}

// Reader reads text from the system clipboard
type Reader struct {
	read func() []byte
}

// NewReader initialises the platform clipboard once per process
func NewReader() (*Reader, error) {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "failed to initialize clipboard")
	}

	return &Reader{
		read: func() []byte { return clipboard.Read(clipboard.FmtText) },
	}, nil
}

// Text returns the clipboard text and whether any was present
func (r *Reader) Text() (string, bool) {
	data := r.read()
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// Probe wraps another probe and attaches clipboard text to each sample
type Probe struct {
	inner  window.Probe
	source TextSource
}

// Wrap returns a probe that fills State.Clipboard from source
func Wrap(inner window.Probe, source TextSource) *Probe {
	return &Probe{inner: inner, source: source}
}

// Sample samples the inner probe then reads the clipboard
func (p *Probe) Sample(tick uint64) window.State {
	state := p.inner.Sample(tick)
	if text, ok := p.source.Text(); ok {
		return state.WithClipboard(text)
	}
	return state
}

// Backend reports the inner backend
func (p *Probe) Backend() string {
	return p.inner.Backend()
}

// Close closes the inner probe
func (p *Probe) Close() error {
	return p.inner.Close()
}
