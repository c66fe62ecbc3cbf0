package recorder

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/internal/config"
	"github.com/heimgewebe/mitschreiber/internal/embed"
	"github.com/heimgewebe/mitschreiber/internal/models"
	"github.com/heimgewebe/mitschreiber/internal/sampler"
	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// MinDrainInterval is the floor for the recorder's poll cadence
const MinDrainInterval = 50 * time.Millisecond

// SamplerName is stored with every state event
const SamplerName = "go"

// Sessions is the sampler surface the recorder drives
type Sessions interface {
	Start(id string, opts sampler.Options) error
	Stop(id string) error
	Poll(id string) ([]string, error)
}

// Store persists journal events
type Store interface {
	CreateState(event *models.StateEvent) error
	CreateEmbed(event *models.EmbedEvent) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Service drains one sampler session into the journal
type Service struct {
	config    *config.Config
	sessionID string
	opts      sampler.Options
	sessions  Sessions
	store     Store
	log       *zap.Logger
	gate      *embed.Gate

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	recorded atomic.Int64
	embedded atomic.Int64
}

func NewService(cfg *config.Config, sessionID string, opts sampler.Options, sessions Sessions, store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		config:    cfg,
		sessionID: sessionID,
		opts:      opts,
		sessions:  sessions,
		store:     store,
		log:       log.With(zap.String("session", sessionID)),
		stopChan:  make(chan struct{}),
	}

	if cfg.Embed.Enabled {
		s.gate = &embed.Gate{
			MinChars:    cfg.Embed.MinChars,
			MinInterval: cfg.Embed.MinInterval,
		}
	}

	return s
}

// Start starts the sampler session and records its samples until ctx is
// cancelled or Stop is called. The session is stopped and drained on return.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("recorder is already running")
	}
	defer s.running.Store(false)

	if err := s.sessions.Start(s.sessionID, s.opts); err != nil {
		return errors.Wrap(err, "failed to start session")
	}

	interval := s.opts.PollInterval
	if interval < MinDrainInterval {
		interval = MinDrainInterval
	}
	s.log.Info("recorder started", zap.Duration("drain_interval", interval), zap.Bool("embed", s.gate != nil))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("recorder stopped by context")
			s.shutdown()
			return ctx.Err()

		case <-s.stopChan:
			s.log.Info("recorder stopped")
			s.shutdown()
			return nil

		case <-ticker.C:
			if _, err := s.DrainOnce(); err != nil {
				s.storeError(err)
			}
		}
	}
}

// Stop asks a running Start to return
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Recorded returns the number of state events stored so far
func (s *Service) Recorded() int64 {
	return s.recorded.Load()
}

// Embedded returns the number of embed events stored so far
func (s *Service) Embedded() int64 {
	return s.embedded.Load()
}

// shutdown drains what the worker produced before it stopped. Samples still
// buffered when the session is removed are discarded with it.
func (s *Service) shutdown() {
	if _, err := s.DrainOnce(); err != nil {
		s.storeError(err)
	}
	if err := s.sessions.Stop(s.sessionID); err != nil {
		s.log.Warn("failed to stop session", zap.Error(err))
	}
}

// DrainOnce polls the session once and stores every sample returned
func (s *Service) DrainOnce() (int, error) {
	raw, err := s.sessions.Poll(s.sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to poll session")
	}

	stored := 0
	for _, item := range raw {
		var state window.State
		if err := json.Unmarshal([]byte(item), &state); err != nil {
			s.log.Debug("skipping undecodable sample", zap.Error(err))
			continue
		}

		if err := s.record(state); err != nil {
			return stored, err
		}
		stored++
	}

	return stored, nil
}

func (s *Service) record(state window.State) error {
	ts := parseTimestamp(state.Timestamp)

	event := &models.StateEvent{
		SessionID:         s.sessionID,
		Timestamp:         ts,
		Source:            models.SourceState,
		AppName:           state.AppName,
		WindowTitle:       state.WindowTitle,
		Sampler:           SamplerName,
		ClipboardObserved: state.Clipboard != nil && *state.Clipboard != "",
	}
	if err := s.store.CreateState(event); err != nil {
		return errors.Wrap(err, "failed to save state event")
	}
	s.recorded.Add(1)

	if s.gate == nil {
		return nil
	}

	text := embed.Text(state.WindowTitle, state.Clipboard)
	if !s.gate.Allow(text, time.Now()) {
		return nil
	}

	embedEvent, err := embed.Build(embed.Record{
		Timestamp: ts,
		SessionID: s.sessionID,
		AppName:   state.AppName,
		Window:    state.WindowTitle,
		Text:      text,
	}, s.config.Embed.Dimension)
	if err != nil {
		return errors.Wrap(err, "failed to build embed event")
	}
	if err := s.store.CreateEmbed(embedEvent); err != nil {
		return errors.Wrap(err, "failed to save embed event")
	}
	s.embedded.Add(1)

	return nil
}

func (s *Service) storeError(err error) {
	errorLog := &models.ErrorLog{
		SessionID: s.sessionID,
		Timestamp: time.Now(),
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.store.CreateErrorLog(errorLog); dbErr != nil {
		s.log.Error("failed to store error in journal", zap.Error(dbErr), zap.NamedError("original", err))
	} else {
		s.log.Warn("error logged to journal", zap.Error(err))
	}
}

func parseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
