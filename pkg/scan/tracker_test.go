package scan

import (
	"testing"

	"github.com/framelab/go-reframe/pkg/geometry"
)

func det(class string, x, y, w, h, score float64) Detection {
	return Detection{Class: class, Box: geometry.Box{X: x, Y: y, W: w, H: h}, Score: score}
}

func TestTracker_MatchesOverlappingSameClass(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0.5, 5)
	tr.update([]Detection{det("person", 1, 1, 10, 10, 0.8)}, 1, 0.5, 5)

	if len(tr.subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(tr.subjects))
	}
	s := tr.subjects[0]
	if len(s.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(s.Positions))
	}
	if s.FirstSeen != 0 || s.LastSeen != 1 {
		t.Errorf("time range = [%v, %v], want [0, 1]", s.FirstSeen, s.LastSeen)
	}
	if s.ID == "" {
		t.Error("subject id should be generated")
	}
}

func TestTracker_ClassIsolation(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0.5, 5)
	tr.update([]Detection{det("dog", 1, 1, 10, 10, 0.8)}, 1, 0.5, 5)

	if len(tr.subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(tr.subjects))
	}
	for _, s := range tr.subjects {
		if len(s.Positions) != 1 {
			t.Errorf("subject %s positions = %d, want 1", s.Class, len(s.Positions))
		}
	}
}

func TestTracker_GapEnforcement(t *testing.T) {
	tr := newTracker()

	// Identical boxes, but the second observation is past maxGap.
	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0.5, 5)
	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 6, 0.5, 5)

	if len(tr.subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(tr.subjects))
	}
}

func TestTracker_BelowThresholdCreatesNewSubject(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0.5, 5)
	// Overlap exists but IoU is far below 0.5.
	tr.update([]Detection{det("person", 9, 9, 10, 10, 0.9)}, 1, 0.5, 5)

	if len(tr.subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(tr.subjects))
	}
}

func TestTracker_PicksHighestIoU(t *testing.T) {
	tr := newTracker()

	// Two person subjects side by side.
	tr.update([]Detection{
		det("person", 0, 0, 10, 10, 0.9),
		det("person", 100, 0, 10, 10, 0.9),
	}, 0, 0.5, 5)
	if len(tr.subjects) != 2 {
		t.Fatalf("setup: subjects = %d, want 2", len(tr.subjects))
	}

	// New detection overlaps the second subject far more.
	tr.update([]Detection{det("person", 99, 0, 10, 10, 0.9)}, 1, 0.1, 5)

	if len(tr.subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(tr.subjects))
	}
	if len(tr.subjects[1].Positions) != 2 {
		t.Errorf("closest subject should have matched, positions = %d", len(tr.subjects[1].Positions))
	}
	if len(tr.subjects[0].Positions) != 1 {
		t.Errorf("distant subject should be untouched, positions = %d", len(tr.subjects[0].Positions))
	}
}

func TestTracker_TieBreaksToEarliestSubject(t *testing.T) {
	tr := newTracker()

	// Two identical subjects (diverged tracks can coincide spatially).
	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0.5, 5)
	tr.subjects = append(tr.subjects, &Subject{ID: "later", Class: "person"})
	tr.subjects[1].addPosition(Position{Time: 0, Box: geometry.Box{X: 0, Y: 0, W: 10, H: 10}, Score: 0.9})

	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 1, 0.5, 5)

	if len(tr.subjects[0].Positions) != 2 {
		t.Error("tie should resolve to the earliest-created subject")
	}
	if len(tr.subjects[1].Positions) != 1 {
		t.Error("later subject should not receive the tied detection")
	}
}

func TestTracker_SubjectsNeverMerge(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{
		det("person", 0, 0, 10, 10, 0.9),
		det("person", 100, 0, 10, 10, 0.9),
	}, 0, 0.5, 5)

	// Both tracks drift onto the same spot; they must remain distinct.
	tr.update([]Detection{
		det("person", 1, 0, 10, 10, 0.9),
		det("person", 99, 0, 10, 10, 0.9),
	}, 1, 0.5, 5)
	tr.update([]Detection{
		det("person", 2, 0, 10, 10, 0.9),
	}, 2, 0.5, 5)

	if len(tr.subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(tr.subjects))
	}
}

func TestTracker_ZeroThresholdStillMatches(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 0, 0, 5)
	tr.update([]Detection{det("person", 1, 1, 10, 10, 0.9)}, 1, 0, 5)

	if len(tr.subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(tr.subjects))
	}
}

func TestTracker_FinalizeFiltersAndCopies(t *testing.T) {
	tr := newTracker()

	tr.update([]Detection{
		det("person", 0, 0, 10, 10, 0.9),
		det("cat", 50, 50, 10, 10, 0.9),
	}, 0, 0.5, 5)
	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 1, 0.5, 5)
	tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, 2, 0.5, 5)

	result := tr.finalize(2)
	if len(result) != 1 {
		t.Fatalf("finalize(2) kept %d subjects, want 1", len(result))
	}
	if result[0].Class != "person" || len(result[0].Positions) != 3 {
		t.Errorf("kept subject = %s with %d positions, want person with 3",
			result[0].Class, len(result[0].Positions))
	}

	// Snapshot must be detached from the open set.
	result[0].Positions[0].Score = -1
	if tr.subjects[0].Positions[0].Score == -1 {
		t.Error("finalize result shares position storage with the tracker")
	}
}

func TestTracker_PositionsAscending(t *testing.T) {
	tr := newTracker()
	for i := 0; i < 5; i++ {
		tr.update([]Detection{det("person", 0, 0, 10, 10, 0.9)}, float64(i), 0.5, 5)
	}
	s := tr.subjects[0]
	for i := 1; i < len(s.Positions); i++ {
		if s.Positions[i].Time <= s.Positions[i-1].Time {
			t.Fatalf("positions not time-ascending: %v", s.Positions)
		}
	}
	if s.LastSeen != 4 {
		t.Errorf("LastSeen = %v, want 4", s.LastSeen)
	}
}
