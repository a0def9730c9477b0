// Package sampler chooses which timestamps of a video to inspect.
// Sampling a bounded subset of frames instead of every frame keeps scan
// cost fixed regardless of video length, trading temporal resolution
// for latency.
package sampler

// Segment is a time range [Start, End] in seconds restricting a scan.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Sample produces the ordered list of timestamps to inspect.
//
// With segments, each segment contributes start, start+interval, ... while
// <= end, concatenated in segment order. Without segments the series is
// 0, interval, 2*interval, ... while < duration.
//
// If the series exceeds maxSamples it is uniformly downsampled: maxSamples
// indices evenly spaced across the list, ascending order preserved.
// A non-positive duration or interval yields an empty list.
func Sample(duration float64, segments []Segment, interval float64, maxSamples int) []float64 {
	if interval <= 0 {
		return nil
	}

	var times []float64
	if len(segments) > 0 {
		for _, seg := range segments {
			for t := seg.Start; t <= seg.End; t += interval {
				times = append(times, t)
			}
		}
	} else {
		if duration <= 0 {
			return nil
		}
		for t := 0.0; t < duration; t += interval {
			times = append(times, t)
		}
	}

	if maxSamples <= 0 || len(times) <= maxSamples {
		return times
	}

	// Uniform downsample: index(i) = floor(i * len / maxSamples)
	picked := make([]float64, 0, maxSamples)
	for i := 0; i < maxSamples; i++ {
		picked = append(picked, times[i*len(times)/maxSamples])
	}
	return picked
}
