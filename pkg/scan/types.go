// Package scan stitches per-frame object detections into persistent
// subjects tracked across a video's timeline. A scan samples a bounded set
// of timestamps, asks an injected detector for objects at each one, and
// associates detections over time by spatial overlap. The resulting
// time-ranged, position-averaged subjects feed crop/focus metadata for
// reformatting video into other aspect ratios.
package scan

import (
	"context"

	"github.com/framelab/go-reframe/pkg/geometry"
)

// Detection is one object found in a single frame. Detections are
// ephemeral: they exist for one loop iteration and are either folded into
// a subject or become a new one.
type Detection struct {
	Class string       `json:"class"`
	Box   geometry.Box `json:"box"`
	Score float64      `json:"score"` // confidence, 0-1
}

// Position is one timestamped observation belonging to a subject.
// Immutable once appended.
type Position struct {
	Time  float64      `json:"time"` // seconds
	Box   geometry.Box `json:"box"`
	Score float64      `json:"score"`
}

// Subject is a physical object tracked across multiple sampled frames.
// Positions are time-ascending; FirstSeen and LastSeen are kept consistent
// with them on every append.
type Subject struct {
	ID        string     `json:"id"`
	Class     string     `json:"class"`
	Positions []Position `json:"positions"`
	FirstSeen float64    `json:"first_seen"`
	LastSeen  float64    `json:"last_seen"`
}

// addPosition appends an observation and maintains the derived time range.
func (s *Subject) addPosition(p Position) {
	if len(s.Positions) == 0 || p.Time < s.FirstSeen {
		s.FirstSeen = p.Time
	}
	if len(s.Positions) == 0 || p.Time > s.LastSeen {
		s.LastSeen = p.Time
	}
	s.Positions = append(s.Positions, p)
}

// MeanBox returns the arithmetic mean of the subject's boxes.
func (s *Subject) MeanBox() geometry.Box {
	boxes := make([]geometry.Box, len(s.Positions))
	for i, p := range s.Positions {
		boxes[i] = p.Box
	}
	return geometry.Mean(boxes)
}

// MeanScore returns the mean confidence across the subject's positions.
func (s *Subject) MeanScore() float64 {
	if len(s.Positions) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range s.Positions {
		sum += p.Score
	}
	return sum / float64(len(s.Positions))
}

// Progress describes how far a scan has advanced. One event is emitted
// per processed frame, in frame order. Purely observational.
type Progress struct {
	CurrentFrame              int     `json:"current_frame"`
	TotalFrames               int     `json:"total_frames"`
	ElapsedSeconds            float64 `json:"elapsed_seconds"`
	EstimatedRemainingSeconds float64 `json:"estimated_remaining_seconds"`
	PercentComplete           float64 `json:"percent_complete"`
}

// FrameSource positions the video at a timestamp and returns a
// ready-to-inspect JPEG frame. A source is a single shared resource: it is
// never sought concurrently for two timestamps.
type FrameSource interface {
	SeekAndCapture(ctx context.Context, t float64) ([]byte, error)
}

// Restorer is implemented by frame sources whose playhead should be put
// back where it was after a scan. The engine restores it on both normal
// completion and cancellation.
type Restorer interface {
	Position() float64
	Restore(pos float64)
}

// Detector finds objects in a frame. WarmUp is idempotent and cheap after
// the first call; Detect errors are recoverable per call.
type Detector interface {
	WarmUp(ctx context.Context) error
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}
