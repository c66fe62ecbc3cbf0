package sampler

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    Options
		wantErr error
	}{
		{
			name: "Nil config uses defaults",
			raw:  nil,
			want: Options{PollInterval: 500 * time.Millisecond},
		},
		{
			name: "Int interval",
			raw:  map[string]any{"poll_interval_ms": 10},
			want: Options{PollInterval: 10 * time.Millisecond},
		},
		{
			name: "Float interval from JSON",
			raw:  map[string]any{"poll_interval_ms": float64(250)},
			want: Options{PollInterval: 250 * time.Millisecond},
		},
		{
			name: "String interval",
			raw:  map[string]any{"poll_interval_ms": "42"},
			want: Options{PollInterval: 42 * time.Millisecond},
		},
		{
			name: "All options",
			raw:  map[string]any{"poll_interval_ms": uint64(20), "max_buffered": 8, "clipboard": true},
			want: Options{PollInterval: 20 * time.Millisecond, MaxBuffered: 8, Clipboard: true},
		},
		{
			name: "Unknown keys ignored",
			raw:  map[string]any{"embeddings_enabled": true},
			want: Options{PollInterval: 500 * time.Millisecond},
		},
		{
			name:    "Zero interval",
			raw:     map[string]any{"poll_interval_ms": 0},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "Negative interval",
			raw:     map[string]any{"poll_interval_ms": -5},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "Non-numeric interval",
			raw:     map[string]any{"poll_interval_ms": "fast"},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "Fractional interval",
			raw:     map[string]any{"poll_interval_ms": 1.5},
			wantErr: ErrInvalidPollInterval,
		},
		{
			name:    "Negative max buffered",
			raw:     map[string]any{"max_buffered": -1},
			wantErr: ErrInvalidMaxBuffered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptionsInvalidClipboard(t *testing.T) {
	_, err := ParseOptions(map[string]any{"clipboard": 3})
	assert.Error(t, err)

	_, err = ParseOptions(map[string]any{"clipboard": "maybe"})
	assert.Error(t, err)

	opts, err := ParseOptions(map[string]any{"clipboard": "true"})
	require.NoError(t, err)
	assert.True(t, opts.Clipboard)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{PollInterval: time.Microsecond}.Validate())
	assert.Error(t, Options{PollInterval: time.Second, MaxBuffered: -1}.Validate())
}
