package scan

import (
	"time"

	"github.com/framelab/go-reframe/pkg/sampler"
)

// Options holds all tunable parameters for one scan.
type Options struct {
	// Sampling
	Interval   float64           // Seconds between sampled frames (>0)
	Segments   []sampler.Segment // Restrict the scan to these time ranges; empty means [0, duration)
	MaxSamples int               // Hard cap on frames processed; bounds cost regardless of video length

	// Detection filtering
	MinScore           float64 // Confidence floor, 0-1
	MaxObjectsPerFrame int     // Detections kept per frame, highest score first

	// Association
	SimilarityThreshold float64 // IoU floor to consider two boxes the same subject, 0-1
	MaxTimeGapForMatch  float64 // Seconds; a detection never matches a subject last seen longer ago than this
	MinDetections       int     // Subjects with fewer observations are dropped at scan end

	// Acquisition timing
	SeekTimeout    time.Duration // Bounded wait per seek; on expiry the last good frame is reused
	StartupTimeout time.Duration // Bounded wait for the first frame; expiry is fatal

	// OnProgress, when set, is invoked once per processed frame, in order.
	OnProgress func(Progress)
}

// DefaultOptions returns the recommended configuration for a balanced scan.
func DefaultOptions() Options {
	return Options{
		Interval:   1.0,
		MaxSamples: 15,

		MinScore:           0.5,
		MaxObjectsPerFrame: 5,

		SimilarityThreshold: 0.45,
		MaxTimeGapForMatch:  3.0,
		MinDetections:       2,

		SeekTimeout:    500 * time.Millisecond,
		StartupTimeout: 3 * time.Second,
	}
}

// FastOptions returns a configuration for quick, coarse scans.
func FastOptions() Options {
	opts := DefaultOptions()
	opts.Interval = 2.0
	opts.MaxSamples = 8
	opts.MinScore = 0.6
	opts.MaxObjectsPerFrame = 3
	return opts
}

// ThoroughOptions returns a configuration for slower, denser scans.
func ThoroughOptions() Options {
	opts := DefaultOptions()
	opts.Interval = 0.5
	opts.MaxSamples = 40
	opts.MinScore = 0.35
	opts.MaxObjectsPerFrame = 10
	opts.MaxTimeGapForMatch = 5.0
	return opts
}
