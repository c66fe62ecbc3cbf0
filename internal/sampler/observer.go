package sampler

// Observer receives session lifecycle and data-path events. Implementations
// must be safe for concurrent use; worker callbacks run on the worker goroutine.
type Observer interface {
	SessionStarted(id string)
	SessionStopped(id string)
	ProbeSelected(id, backend string)
	SampleProduced(id string)
	SamplesDropped(id string, n int)
	SamplesDrained(id string, n int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)        {}
func (nopObserver) SessionStopped(string)        {}
func (nopObserver) ProbeSelected(string, string) {}
func (nopObserver) SampleProduced(string)        {}
func (nopObserver) SamplesDropped(string, int)   {}
func (nopObserver) SamplesDrained(string, int)   {}
