package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPickStream(t *testing.T) {
	// 10-minute source. A full rendition at 128 kbps is ~9.6 MB.
	full128 := StreamDescriptor{URL: "full-128", Bitrate: 128_000, Size: 9_600_000}
	full64 := StreamDescriptor{URL: "full-64", Bitrate: 64_000, Size: 4_800_000}
	preview := StreamDescriptor{URL: "preview", Bitrate: 256_000, Size: 960_000} // ~30s
	noHints := StreamDescriptor{URL: "no-hints"}

	tests := []struct {
		name     string
		streams  []StreamDescriptor
		declared time.Duration
		want     string
	}{
		{
			name:     "full rendition preferred over higher-bitrate preview",
			streams:  []StreamDescriptor{preview, full64, full128},
			declared: 10 * time.Minute,
			want:     "full-128",
		},
		{
			name:     "highest bitrate among full renditions",
			streams:  []StreamDescriptor{full64, full128},
			declared: 10 * time.Minute,
			want:     "full-128",
		},
		{
			name:     "unknown duration falls back to largest size",
			streams:  []StreamDescriptor{preview, full64, full128},
			declared: 0,
			want:     "full-128",
		},
		{
			name: "size tie broken by bitrate",
			streams: []StreamDescriptor{
				{URL: "low", Size: 1000, Bitrate: 64_000},
				{URL: "high", Size: 1000, Bitrate: 128_000},
			},
			declared: 0,
			want:     "high",
		},
		{
			name:     "no estimable rendition keeps provider order",
			streams:  []StreamDescriptor{noHints, {URL: "second"}},
			declared: 10 * time.Minute,
			want:     "no-hints",
		},
		{
			name: "rendition just above 90 percent threshold accepted",
			streams: []StreamDescriptor{
				// 552s implied on a 600s source: above the 540s cut.
				{URL: "borderline", Bitrate: 128_000, Size: 8_832_000},
				preview,
			},
			declared: 10 * time.Minute,
			want:     "borderline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickStream(tt.streams, tt.declared)
			assert.Equal(t, tt.want, got.URL)
		})
	}
}

func TestImpliedDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), impliedDuration(StreamDescriptor{Size: 100}))
	assert.Equal(t, time.Duration(0), impliedDuration(StreamDescriptor{Bitrate: 128_000}))

	d := impliedDuration(StreamDescriptor{Size: 9_600_000, Bitrate: 128_000})
	assert.InDelta(t, 600, d.Seconds(), 1)
}
