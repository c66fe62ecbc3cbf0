package sampler

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// Manager is the session registry. The mutex guards only the map; sample
// data flows through each session's mailbox.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	newProbe ProbeFactory
	observer Observer
	log      *zap.Logger
	marshal  func(window.State) ([]byte, error)
}

// Option customises a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithObserver sets the lifecycle observer
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithProbeFactory overrides probe construction
func WithProbeFactory(f ProbeFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newProbe = f
		}
	}
}

// NewManager creates an empty registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*session),
		observer: nopObserver{},
		log:      zap.NewNop(),
		marshal:  func(s window.State) ([]byte, error) { return json.Marshal(s) },
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newProbe == nil {
		m.newProbe = detectorProbeFactory(m.log)
	}
	return m
}

// Start launches a worker for id. It returns immediately; a second Start for
// a live id is a no-op.
func (m *Manager) Start(id string, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok && existing.alive.Load() {
		return nil
	}

	sess := &session{
		id:   id,
		wake: make(chan struct{}),
		box:  newMailbox(opts.MaxBuffered),
		done: make(chan struct{}),
	}
	sess.alive.Store(true)
	m.sessions[id] = sess

	log := m.log.With(zap.String("session", id))
	w := &worker{
		sess:     sess,
		opts:     opts,
		newProbe: m.newProbe,
		observer: m.observer,
		log:      log,
	}
	go w.run()

	m.observer.SessionStarted(id)
	log.Info("session started",
		zap.Duration("poll_interval", opts.PollInterval),
		zap.Int("max_buffered", opts.MaxBuffered),
		zap.Bool("clipboard", opts.Clipboard))
	return nil
}

// Stop flips the session's liveness flag and waits for its worker to exit
// before removing it. Unknown ids are a no-op. The wait is bounded by one
// poll interval plus any probe call already in flight; a probe blocked on an
// unresponsive windowing server cannot be interrupted.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	stopping := sess.alive.CompareAndSwap(true, false)
	if stopping {
		close(sess.wake)
	}
	m.mu.Unlock()

	<-sess.done

	m.mu.Lock()
	if m.sessions[id] == sess {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	sess.box.close()

	if stopping {
		m.observer.SessionStopped(id)
		m.log.Info("session stopped", zap.String("session", id))
	}
	return nil
}

// Poll drains every sample buffered for id, oldest first, and returns their
// JSON encodings. Unknown ids yield an empty result.
func (m *Manager) Poll(id string) ([]string, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return []string{}, nil
	}

	states := sess.box.drain()
	out := make([]string, 0, len(states))
	for _, s := range states {
		data, err := m.marshal(s)
		if err != nil {
			return nil, errors.Wrap(err, "failed to serialize sample")
		}
		out = append(out, string(data))
	}

	if len(out) > 0 {
		m.observer.SamplesDrained(id, len(out))
	}
	return out, nil
}

// Buffered returns the number of samples waiting in id's mailbox
func (m *Manager) Buffered(id string) int {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return sess.box.len()
}

// IsRunning reports whether id has a live worker
func (m *Manager) IsRunning(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return ok && sess.alive.Load()
}

// Sessions returns the ids currently registered
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close stops every session
func (m *Manager) Close() error {
	for _, id := range m.Sessions() {
		if err := m.Stop(id); err != nil {
			return err
		}
	}
	return nil
}
