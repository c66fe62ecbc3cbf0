package sampler

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// ErrMailboxClosed is returned by push once the consumer end is gone
var ErrMailboxClosed = errors.New("mailbox closed")

// mailbox is the one-way sample channel between a worker and the registry.
// It never blocks the producer. With limit == 0 it grows without bound; with
// limit > 0 the oldest samples are dropped.
type mailbox struct {
	mu     sync.Mutex
	items  []window.State
	limit  int
	closed bool
}

func newMailbox(limit int) *mailbox {
	return &mailbox{limit: limit}
}

// push appends s and reports how many old samples were dropped to fit it
func (b *mailbox) push(s window.State) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrMailboxClosed
	}

	b.items = append(b.items, s)

	dropped := 0
	if b.limit > 0 && len(b.items) > b.limit {
		dropped = len(b.items) - b.limit
		b.items = append(b.items[:0:0], b.items[dropped:]...)
	}
	return dropped, nil
}

// drain removes and returns everything buffered, oldest first
func (b *mailbox) drain() []window.State {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.items
	b.items = nil
	return items
}

func (b *mailbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// close drops the consumer end. Buffered samples are discarded.
func (b *mailbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.items = nil
}
