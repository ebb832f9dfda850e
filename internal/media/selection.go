package media

import "time"

// durationMatchRatio guards against truncated or preview streams: a
// descriptor only counts as a full rendition when its implied playback
// time covers at least this share of the source's declared duration.
const durationMatchRatio = 0.9

// impliedDuration estimates playback time from declared size and
// bitrate. Returns 0 when either hint is missing.
func impliedDuration(d StreamDescriptor) time.Duration {
	if d.Size <= 0 || d.Bitrate <= 0 {
		return 0
	}
	seconds := float64(d.Size*8) / float64(d.Bitrate)
	return time.Duration(seconds * float64(time.Second))
}

// pickStream selects the best descriptor from a non-empty list.
// Descriptors whose implied duration covers the source's declared
// duration are preferred, highest bitrate first. When duration cannot
// be estimated the fallback order is largest declared size, then
// highest bitrate, then provider order.
func pickStream(streams []StreamDescriptor, declared time.Duration) StreamDescriptor {
	if declared > 0 {
		best, found := pickFullRendition(streams, declared)
		if found {
			return best
		}
	}

	best := streams[0]
	for _, s := range streams[1:] {
		switch {
		case s.Size > best.Size:
			best = s
		case s.Size == best.Size && s.Bitrate > best.Bitrate:
			best = s
		}
	}
	return best
}

func pickFullRendition(streams []StreamDescriptor, declared time.Duration) (StreamDescriptor, bool) {
	threshold := time.Duration(float64(declared) * durationMatchRatio)

	var best StreamDescriptor
	found := false
	for _, s := range streams {
		implied := impliedDuration(s)
		if implied == 0 || implied < threshold {
			continue
		}
		if !found || s.Bitrate > best.Bitrate {
			best = s
			found = true
		}
	}
	return best, found
}
