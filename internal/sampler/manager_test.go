package sampler

import (
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimgewebe/mitschreiber/pkg/integrations/stub"
	"github.com/heimgewebe/mitschreiber/pkg/window"
)

// seqProbe encodes the tick in the window title so tests can check ordering
type seqProbe struct {
	calls  *atomic.Int64
	closed *atomic.Bool
}

func (p *seqProbe) Sample(tick uint64) window.State {
	p.calls.Add(1)
	return window.State{
		Timestamp:   window.Now(),
		AppName:     "app",
		WindowTitle: strconv.FormatUint(tick, 10),
	}
}

func (p *seqProbe) Backend() string { return "seq" }

func (p *seqProbe) Close() error {
	p.closed.Store(true)
	return nil
}

type probeCounter struct {
	built  atomic.Int64
	calls  atomic.Int64
	closed atomic.Bool
}

func (c *probeCounter) factory(Options) window.Probe {
	c.built.Add(1)
	return &seqProbe{calls: &c.calls, closed: &c.closed}
}

type recordingObserver struct {
	started  atomic.Int64
	stopped  atomic.Int64
	produced atomic.Int64
	dropped  atomic.Int64
	drained  atomic.Int64
	mu       sync.Mutex
	backends []string
}

func (o *recordingObserver) SessionStarted(string) { o.started.Add(1) }
func (o *recordingObserver) SessionStopped(string) { o.stopped.Add(1) }
func (o *recordingObserver) ProbeSelected(_ string, backend string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backends = append(o.backends, backend)
}
func (o *recordingObserver) SampleProduced(string)        { o.produced.Add(1) }
func (o *recordingObserver) SamplesDropped(_ string, n int) { o.dropped.Add(int64(n)) }
func (o *recordingObserver) SamplesDrained(_ string, n int) { o.drained.Add(int64(n)) }

func fastOptions() Options {
	return Options{PollInterval: 10 * time.Millisecond}
}

func decode(t *testing.T, raw []string) []window.State {
	t.Helper()
	states := make([]window.State, 0, len(raw))
	for _, r := range raw {
		var s window.State
		require.NoError(t, json.Unmarshal([]byte(r), &s))
		states = append(states, s)
	}
	return states
}

func TestStartIsIdempotent(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))
	defer m.Close()

	require.NoError(t, m.Start("s1", fastOptions()))
	require.NoError(t, m.Start("s1", fastOptions()))

	require.Eventually(t, func() bool { return counter.built.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int64(1), counter.built.Load())
	assert.Equal(t, []string{"s1"}, m.Sessions())
	assert.True(t, m.IsRunning("s1"))
}

func TestUnknownSessionIsNoOp(t *testing.T) {
	m := NewManager(WithProbeFactory((&probeCounter{}).factory))

	assert.NoError(t, m.Stop("missing"))

	states, err := m.Poll("missing")
	require.NoError(t, err)
	assert.NotNil(t, states)
	assert.Empty(t, states)
	assert.Equal(t, 0, m.Buffered("missing"))
	assert.False(t, m.IsRunning("missing"))
}

func TestPollReturnsWellFormedSamples(t *testing.T) {
	m := NewManager(WithProbeFactory(func(Options) window.Probe { return stub.NewProbe() }))
	defer m.Close()

	require.NoError(t, m.Start("s1", fastOptions()))
	time.Sleep(50 * time.Millisecond)

	raw, err := m.Poll("s1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	for _, s := range decode(t, raw) {
		assert.NotEmpty(t, s.Timestamp)
		assert.NotEmpty(t, s.AppName)
		assert.NotEmpty(t, s.WindowTitle)
		assert.Nil(t, s.Clipboard)
	}
}

func TestPollPreservesOrderWithoutDuplicates(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))

	require.NoError(t, m.Start("s1", Options{PollInterval: 2 * time.Millisecond}))

	var ticks []uint64
	for i := 0; i < 10; i++ {
		time.Sleep(7 * time.Millisecond)
		raw, err := m.Poll("s1")
		require.NoError(t, err)
		for _, s := range decode(t, raw) {
			tick, err := strconv.ParseUint(s.WindowTitle, 10, 64)
			require.NoError(t, err)
			ticks = append(ticks, tick)
		}
	}
	require.NoError(t, m.Stop("s1"))

	require.NotEmpty(t, ticks)
	for i, tick := range ticks {
		assert.Equal(t, uint64(i), tick, "sample %d out of order", i)
	}
}

func TestStopHaltsProduction(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))

	require.NoError(t, m.Start("s1", fastOptions()))
	require.Eventually(t, func() bool { return counter.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop("s1"))
	after := counter.calls.Load()
	assert.True(t, counter.closed.Load(), "probe should be closed once the worker exits")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, counter.calls.Load())
	assert.False(t, m.IsRunning("s1"))
	assert.Empty(t, m.Sessions())

	for i := 0; i < 3; i++ {
		raw, err := m.Poll("s1")
		require.NoError(t, err)
		assert.Empty(t, raw)
	}
}

func TestStopLatencyIsBounded(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))

	require.NoError(t, m.Start("s1", Options{PollInterval: 5 * time.Second}))
	require.Eventually(t, func() bool { return m.Buffered("s1") == 1 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Stop("s1"))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int64(1), counter.calls.Load())
}

func TestProbeFallbackWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")

	obs := &recordingObserver{}
	m := NewManager(WithObserver(obs))
	defer m.Close()

	require.NoError(t, m.Start("s1", fastOptions()))
	require.Eventually(t, func() bool { return m.Buffered("s1") > 0 }, time.Second, 5*time.Millisecond)

	raw, err := m.Poll("s1")
	require.NoError(t, err)
	for _, s := range decode(t, raw) {
		assert.NotEmpty(t, s.AppName)
		assert.NotEmpty(t, s.WindowTitle)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.backends, 1)
	t.Logf("Selected backend: %s", obs.backends[0])
}

func TestUnboundedBufferGrowsWithoutPolling(t *testing.T) {
	m := NewManager(WithProbeFactory((&probeCounter{}).factory))
	defer m.Close()

	require.NoError(t, m.Start("s1", Options{PollInterval: time.Millisecond}))

	require.Eventually(t, func() bool { return m.Buffered("s1") >= 25 }, 2*time.Second, 5*time.Millisecond)

	raw, err := m.Poll("s1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), 25)
}

func TestBoundedBufferDropsOldest(t *testing.T) {
	obs := &recordingObserver{}
	m := NewManager(WithProbeFactory((&probeCounter{}).factory), WithObserver(obs))

	require.NoError(t, m.Start("s1", Options{PollInterval: time.Millisecond, MaxBuffered: 3}))
	require.Eventually(t, func() bool { return obs.dropped.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop("s1"))

	assert.LessOrEqual(t, m.Buffered("s1"), 3)
	assert.Equal(t, obs.produced.Load(), obs.dropped.Load()+3)
}

func TestBoundedBufferKeepsNewest(t *testing.T) {
	box := newMailbox(2)
	for i := 0; i < 5; i++ {
		_, err := box.push(window.State{WindowTitle: strconv.Itoa(i)})
		require.NoError(t, err)
	}

	states := box.drain()
	require.Len(t, states, 2)
	assert.Equal(t, "3", states[0].WindowTitle)
	assert.Equal(t, "4", states[1].WindowTitle)
	assert.Empty(t, box.drain())
}

func TestSerializationErrorIsSurfaced(t *testing.T) {
	m := NewManager(WithProbeFactory((&probeCounter{}).factory))
	defer m.Close()
	m.marshal = func(window.State) ([]byte, error) {
		return nil, errors.New("boom")
	}

	require.NoError(t, m.Start("s1", fastOptions()))
	require.Eventually(t, func() bool { return m.Buffered("s1") > 0 }, time.Second, 5*time.Millisecond)

	raw, err := m.Poll("s1")
	assert.Error(t, err)
	assert.Nil(t, raw)
	assert.Contains(t, err.Error(), "failed to serialize sample")
}

func TestClosedMailboxTerminatesWorker(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))

	require.NoError(t, m.Start("s1", fastOptions()))

	m.mu.Lock()
	sess := m.sessions["s1"]
	m.mu.Unlock()

	sess.box.close()

	select {
	case <-sess.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after mailbox closed")
	}
	assert.True(t, sess.alive.Load(), "worker should exit without a stop request")
	assert.NoError(t, m.Stop("s1"))
}

func TestRestartAfterStop(t *testing.T) {
	counter := &probeCounter{}
	obs := &recordingObserver{}
	m := NewManager(WithProbeFactory(counter.factory), WithObserver(obs))
	defer m.Close()

	require.NoError(t, m.Start("s1", fastOptions()))
	require.NoError(t, m.Stop("s1"))
	require.NoError(t, m.Start("s1", fastOptions()))

	require.Eventually(t, func() bool { return counter.built.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, m.IsRunning("s1"))
	assert.Equal(t, int64(2), obs.started.Load())
	assert.Equal(t, int64(1), obs.stopped.Load())
}

func TestSessionsAreIndependent(t *testing.T) {
	counter := &probeCounter{}
	m := NewManager(WithProbeFactory(counter.factory))
	defer m.Close()

	require.NoError(t, m.Start("a", fastOptions()))
	require.NoError(t, m.Start("b", fastOptions()))
	require.Eventually(t, func() bool { return m.Buffered("a") > 0 && m.Buffered("b") > 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop("a"))
	assert.True(t, m.IsRunning("b"))

	raw, err := m.Poll("b")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestConcurrentLifecycle(t *testing.T) {
	m := NewManager(WithProbeFactory((&probeCounter{}).factory))
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "s" + strconv.Itoa(i%3)
			for j := 0; j < 20; j++ {
				switch j % 3 {
				case 0:
					assert.NoError(t, m.Start(id, Options{PollInterval: time.Millisecond}))
				case 1:
					_, err := m.Poll(id)
					assert.NoError(t, err)
				case 2:
					assert.NoError(t, m.Stop(id))
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestStartRejectsInvalidOptions(t *testing.T) {
	m := NewManager(WithProbeFactory((&probeCounter{}).factory))

	err := m.Start("s1", Options{})
	assert.True(t, errors.Is(err, ErrInvalidPollInterval))
	assert.Empty(t, m.Sessions())
}

func TestObserverCounts(t *testing.T) {
	obs := &recordingObserver{}
	m := NewManager(WithProbeFactory((&probeCounter{}).factory), WithObserver(obs))

	require.NoError(t, m.Start("s1", fastOptions()))
	require.Eventually(t, func() bool { return obs.produced.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop("s1"))

	raw, err := m.Poll("s1")
	require.NoError(t, err)
	assert.Empty(t, raw)

	assert.Equal(t, int64(1), obs.started.Load())
	assert.Equal(t, int64(1), obs.stopped.Load())
	obs.mu.Lock()
	assert.Equal(t, []string{"seq"}, obs.backends)
	obs.mu.Unlock()
}
