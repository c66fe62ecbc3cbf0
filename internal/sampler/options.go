package sampler

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// DefaultPollInterval is used when poll_interval_ms is absent
const DefaultPollInterval = 500 * time.Millisecond

var (
	// ErrInvalidPollInterval is returned for non-positive or non-numeric poll_interval_ms
	ErrInvalidPollInterval = errors.New("poll_interval_ms must be a positive integer")

	// ErrInvalidMaxBuffered is returned for negative or non-numeric max_buffered
	ErrInvalidMaxBuffered = errors.New("max_buffered must be a non-negative integer")
)

// Options configures one session
type Options struct {
	// PollInterval is the worker sleep between ticks
	PollInterval time.Duration

	// MaxBuffered bounds the mailbox. Zero means unbounded; when positive the
	// oldest sample is dropped to make room.
	MaxBuffered int

	// Clipboard attaches clipboard text to each sample
	Clipboard bool
}

// DefaultOptions returns Options with a 500ms interval and no bound
func DefaultOptions() Options {
	return Options{PollInterval: DefaultPollInterval}
}

// ParseOptions reads the host configuration mapping. Recognised keys are
// poll_interval_ms, max_buffered and clipboard; unknown keys are ignored.
func ParseOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()

	if v, ok := raw["poll_interval_ms"]; ok && v != nil {
		ms, err := positiveInt(v)
		if err != nil || ms < 1 {
			return opts, errors.Wrapf(ErrInvalidPollInterval, "got %v", v)
		}
		opts.PollInterval = time.Duration(ms) * time.Millisecond
	}

	if v, ok := raw["max_buffered"]; ok && v != nil {
		n, err := positiveInt(v)
		if err != nil || n < 0 {
			return opts, errors.Wrapf(ErrInvalidMaxBuffered, "got %v", v)
		}
		opts.MaxBuffered = int(n)
	}

	if v, ok := raw["clipboard"]; ok && v != nil {
		switch b := v.(type) {
		case bool:
			opts.Clipboard = b
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return opts, errors.Wrapf(err, "invalid clipboard value %q", b)
			}
			opts.Clipboard = parsed
		default:
			return opts, errors.Errorf("invalid clipboard value %v", v)
		}
	}

	return opts, nil
}

// Validate checks option bounds
func (o Options) Validate() error {
	if o.PollInterval < time.Millisecond {
		return errors.Wrapf(ErrInvalidPollInterval, "got %v", o.PollInterval)
	}
	if o.MaxBuffered < 0 {
		return errors.Wrapf(ErrInvalidMaxBuffered, "got %d", o.MaxBuffered)
	}
	return nil
}

func positiveInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows", n)
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
