package sampler

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// ProbeFactory builds the probe for a new worker. It runs on the worker
// goroutine, once, before the first tick.
type ProbeFactory func(opts Options) window.Probe

// session is one registry entry
type session struct {
	id    string
	alive atomic.Bool
	wake  chan struct{} // closed by stop to cut the current sleep short
	box   *mailbox
	done  chan struct{} // closed when the worker has exited
}

// worker owns the probe and the producer side of the mailbox
type worker struct {
	sess     *session
	opts     Options
	newProbe ProbeFactory
	observer Observer
	log      *zap.Logger
}

func (w *worker) run() {
	defer close(w.sess.done)

	probe := w.newProbe(w.opts)
	defer func() {
		if err := probe.Close(); err != nil {
			w.log.Warn("failed to close probe", zap.Error(err))
		}
	}()

	w.observer.ProbeSelected(w.sess.id, probe.Backend())
	w.log.Debug("worker started",
		zap.String("backend", probe.Backend()),
		zap.Duration("poll_interval", w.opts.PollInterval))

	var tick uint64
	timer := time.NewTimer(w.opts.PollInterval)
	defer timer.Stop()

	for w.sess.alive.Load() {
		state := probe.Sample(tick)

		dropped, err := w.sess.box.push(state)
		if err != nil {
			w.log.Debug("mailbox closed, worker exiting")
			return
		}
		w.observer.SampleProduced(w.sess.id)
		if dropped > 0 {
			w.observer.SamplesDropped(w.sess.id, dropped)
		}

		tick++

		timer.Reset(w.opts.PollInterval)
		select {
		case <-timer.C:
		case <-w.sess.wake:
		}
	}

	w.log.Debug("worker stopped", zap.Uint64("ticks", tick))
}
