package scan

import (
	"github.com/framelab/go-reframe/pkg/geometry"
	"github.com/google/uuid"
)

// tracker holds the open subject set for one scan. Subjects are kept in
// creation order so that IoU ties resolve to the earliest-created subject,
// making association deterministic for a given detection order.
type tracker struct {
	subjects []*Subject
}

func newTracker() *tracker {
	return &tracker{}
}

// update folds one frame's filtered detections into the open set.
//
// Matching is greedy and per-detection: each detection takes the
// same-class subject with the highest IoU against its last position,
// provided the IoU clears the threshold and the subject was seen within
// maxGap seconds. No match creates a new subject. Subjects are never
// merged or removed here; two same-class tracks stay distinct once
// diverged.
func (tr *tracker) update(detections []Detection, t, threshold, maxGap float64) {
	for _, d := range detections {
		var best *Subject
		bestIoU := -1.0

		for _, s := range tr.subjects {
			if s.Class != d.Class {
				continue
			}
			if t-s.LastSeen > maxGap {
				continue
			}
			last := s.Positions[len(s.Positions)-1]
			overlap := geometry.IoU(d.Box, last.Box)
			if overlap < threshold {
				continue
			}
			// Strict > keeps the earliest-created subject on ties.
			if overlap > bestIoU {
				bestIoU = overlap
				best = s
			}
		}

		if best != nil {
			best.addPosition(Position{Time: t, Box: d.Box, Score: d.Score})
			continue
		}

		created := &Subject{
			ID:    uuid.NewString(),
			Class: d.Class,
		}
		created.addPosition(Position{Time: t, Box: d.Box, Score: d.Score})
		tr.subjects = append(tr.subjects, created)
	}
}

// finalize returns a snapshot of subjects with at least minDetections
// observations. The returned values are copies; the tracker keeps no
// live reference into them.
func (tr *tracker) finalize(minDetections int) []Subject {
	result := make([]Subject, 0, len(tr.subjects))
	for _, s := range tr.subjects {
		if len(s.Positions) < minDetections {
			continue
		}
		cp := *s
		cp.Positions = make([]Position, len(s.Positions))
		copy(cp.Positions, s.Positions)
		result = append(result, cp)
	}
	return result
}
