package scan

import (
	"context"
	"errors"
	"testing"
	"time"
)

// boxAt returns a single-person detection whose box drifts with time,
// close enough between consecutive seconds to keep matching.
func boxAt(t float64) Detection {
	return det("person", t*2, 0, 50, 50, 0.9)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Interval = 1
	opts.MaxSamples = 100
	opts.MinDetections = 1
	opts.SeekTimeout = 200 * time.Millisecond
	opts.StartupTimeout = 200 * time.Millisecond
	return opts
}

func TestScan_NotInitialized(t *testing.T) {
	e := NewEngine(nil, nil)
	if _, err := e.Scan(context.Background(), 10, testOptions()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestScan_EmptySamplingShortCircuits(t *testing.T) {
	e := NewEngine(&MockSource{}, &MockDetector{})
	subjects, err := e.Scan(context.Background(), 0, testOptions())
	if err != nil {
		t.Fatalf("Scan() error = %v, want nil", err)
	}
	if len(subjects) != 0 {
		t.Errorf("subjects = %v, want empty", subjects)
	}
}

func TestScan_EndToEnd(t *testing.T) {
	source := &MockSource{}
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, frame []byte) ([]Detection, error) {
			return []Detection{boxAt(0)}, nil
		},
	}
	e := NewEngine(source, detector)

	opts := testOptions()
	opts.MinDetections = 2
	subjects, err := e.Scan(context.Background(), 5, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(subjects))
	}
	if got := len(subjects[0].Positions); got != 5 {
		t.Errorf("positions = %d, want 5", got)
	}
	if detector.WarmUpCount() != 1 {
		t.Errorf("warm-ups = %d, want 1", detector.WarmUpCount())
	}
	if seeks := source.Seeks(); len(seeks) != 5 || seeks[0] != 0 || seeks[4] != 4 {
		t.Errorf("seeks = %v, want [0 1 2 3 4]", seeks)
	}
	if e.IsRunning() {
		t.Error("engine still marked running after scan")
	}
}

func TestScan_MinDetectionsFilter(t *testing.T) {
	// One subject accumulates 3 positions, another only 1.
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, frame []byte) ([]Detection, error) {
			return nil, nil
		},
	}
	var frame int
	detector.DetectFunc = func(ctx context.Context, _ []byte) ([]Detection, error) {
		frame++
		dets := []Detection{det("person", 0, 0, 50, 50, 0.9)}
		if frame == 2 {
			dets = append(dets, det("cat", 200, 200, 30, 30, 0.9))
		}
		return dets, nil
	}
	e := NewEngine(&MockSource{}, detector)

	opts := testOptions()
	opts.MinDetections = 2
	subjects, err := e.Scan(context.Background(), 3, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(subjects) != 1 {
		t.Fatalf("subjects = %d, want 1 (the 3-position subject)", len(subjects))
	}
	if subjects[0].Class != "person" || len(subjects[0].Positions) != 3 {
		t.Errorf("kept %s with %d positions, want person with 3",
			subjects[0].Class, len(subjects[0].Positions))
	}
}

func TestScan_ScoreFilterAndPerFrameCap(t *testing.T) {
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			return []Detection{
				det("person", 0, 0, 10, 10, 0.3),     // below MinScore
				det("person", 100, 0, 10, 10, 0.7),
				det("person", 200, 0, 10, 10, 0.95),
				det("person", 300, 0, 10, 10, 0.8),
			}, nil
		},
	}
	e := NewEngine(&MockSource{}, detector)

	opts := testOptions()
	opts.MinScore = 0.5
	opts.MaxObjectsPerFrame = 2
	subjects, err := e.Scan(context.Background(), 1, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	// Highest two scores kept: 0.95 and 0.8.
	if len(subjects) != 2 {
		t.Fatalf("subjects = %d, want 2", len(subjects))
	}
	scores := map[float64]bool{}
	for _, s := range subjects {
		scores[s.Positions[0].Score] = true
	}
	if !scores[0.95] || !scores[0.8] {
		t.Errorf("kept scores = %v, want 0.95 and 0.8", scores)
	}
}

func TestScan_ConcurrentScanRejected(t *testing.T) {
	block := make(chan struct{})
	source := &MockSource{
		CaptureFunc: func(ctx context.Context, _ float64) ([]byte, error) {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return []byte("frame"), nil
		},
	}
	e := NewEngine(source, &MockDetector{})

	opts := testOptions()
	opts.StartupTimeout = 2 * time.Second

	done := make(chan error, 1)
	go func() {
		_, err := e.Scan(context.Background(), 3, opts)
		done <- err
	}()

	// Wait until the first scan is underway.
	deadline := time.Now().Add(time.Second)
	for !e.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !e.IsRunning() {
		t.Fatal("first scan never started")
	}

	if _, err := e.Scan(context.Background(), 3, opts); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("second scan err = %v, want ErrScanInProgress", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("first scan err = %v, want nil", err)
	}
}

func TestScan_CancelYieldsPartialResult(t *testing.T) {
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			return []Detection{det("person", 0, 0, 50, 50, 0.9)}, nil
		},
	}
	e := NewEngine(&MockSource{}, detector)

	opts := testOptions()
	opts.OnProgress = func(p Progress) {
		if p.CurrentFrame == 3 {
			e.Cancel()
		}
	}
	subjects, err := e.Scan(context.Background(), 10, opts)
	if err != nil {
		t.Fatalf("cancelled scan returned error: %v", err)
	}
	if len(subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(subjects))
	}
	// Only the first 3 frames contributed.
	if got := len(subjects[0].Positions); got != 3 {
		t.Errorf("positions = %d, want 3", got)
	}
	if detector.DetectCount() != 3 {
		t.Errorf("detect calls = %d, want 3", detector.DetectCount())
	}
}

func TestScan_CancelWhenIdleIsNoop(t *testing.T) {
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			return []Detection{det("person", 0, 0, 50, 50, 0.9)}, nil
		},
	}
	e := NewEngine(&MockSource{}, detector)
	e.Cancel() // must not poison the next scan

	subjects, err := e.Scan(context.Background(), 3, testOptions())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(subjects) != 1 || len(subjects[0].Positions) != 3 {
		t.Errorf("scan after idle Cancel was truncated: %+v", subjects)
	}
}

func TestScan_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(&MockSource{}, &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			return []Detection{det("person", 0, 0, 50, 50, 0.9)}, nil
		},
	})

	opts := testOptions()
	opts.OnProgress = func(p Progress) {
		if p.CurrentFrame == 2 {
			cancel()
		}
	}
	subjects, err := e.Scan(ctx, 10, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v, want nil on cancellation", err)
	}
	if len(subjects) != 1 || len(subjects[0].Positions) != 2 {
		t.Errorf("subjects = %+v, want one subject with 2 positions", subjects)
	}
}

func TestScan_ProgressEvents(t *testing.T) {
	e := NewEngine(&MockSource{}, &MockDetector{})

	var events []Progress
	opts := testOptions()
	opts.OnProgress = func(p Progress) { events = append(events, p) }

	if _, err := e.Scan(context.Background(), 4, opts); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("progress events = %d, want 4", len(events))
	}
	for i, p := range events {
		if p.CurrentFrame != i+1 {
			t.Errorf("event %d CurrentFrame = %d, want %d", i, p.CurrentFrame, i+1)
		}
		if p.TotalFrames != 4 {
			t.Errorf("event %d TotalFrames = %d, want 4", i, p.TotalFrames)
		}
	}
	last := events[len(events)-1]
	if last.PercentComplete != 100 {
		t.Errorf("final percent = %v, want 100", last.PercentComplete)
	}
	if last.EstimatedRemainingSeconds != 0 {
		t.Errorf("final remaining = %v, want 0", last.EstimatedRemainingSeconds)
	}
}

func TestScan_DetectionErrorSkipsFrame(t *testing.T) {
	var frame int
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			frame++
			if frame == 2 {
				return nil, errors.New("inference exploded")
			}
			return []Detection{det("person", 0, 0, 50, 50, 0.9)}, nil
		},
	}
	e := NewEngine(&MockSource{}, detector)

	var events int
	opts := testOptions()
	opts.OnProgress = func(Progress) { events++ }

	subjects, err := e.Scan(context.Background(), 3, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v, want per-frame error swallowed", err)
	}
	if len(subjects) != 1 || len(subjects[0].Positions) != 2 {
		t.Errorf("subjects = %+v, want one subject with 2 positions", subjects)
	}
	// A frame that contributes nothing still counts toward progress.
	if events != 3 {
		t.Errorf("progress events = %d, want 3", events)
	}
}

func TestScan_FirstSeekTimeoutIsFatal(t *testing.T) {
	source := &MockSource{
		CaptureFunc: func(ctx context.Context, _ float64) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	e := NewEngine(source, &MockDetector{})

	opts := testOptions()
	opts.StartupTimeout = 20 * time.Millisecond
	if _, err := e.Scan(context.Background(), 5, opts); !errors.Is(err, ErrAcquisitionTimeout) {
		t.Errorf("err = %v, want ErrAcquisitionTimeout", err)
	}
	if e.IsRunning() {
		t.Error("engine still marked running after fatal startup error")
	}
}

func TestScan_LaterSeekTimeoutReusesLastFrame(t *testing.T) {
	var captures int
	source := &MockSource{
		CaptureFunc: func(ctx context.Context, _ float64) ([]byte, error) {
			captures++
			if captures == 2 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []byte("frame"), nil
		},
	}
	detector := &MockDetector{
		DetectFunc: func(ctx context.Context, _ []byte) ([]Detection, error) {
			return []Detection{det("person", 0, 0, 50, 50, 0.9)}, nil
		},
	}
	e := NewEngine(source, detector)

	opts := testOptions()
	opts.SeekTimeout = 20 * time.Millisecond
	subjects, err := e.Scan(context.Background(), 3, opts)
	if err != nil {
		t.Fatalf("Scan() error = %v, want nil", err)
	}
	// The timed-out frame still ran detection on the previous frame.
	if detector.DetectCount() != 3 {
		t.Errorf("detect calls = %d, want 3", detector.DetectCount())
	}
	if len(subjects) != 1 || len(subjects[0].Positions) != 3 {
		t.Errorf("subjects = %+v, want one subject with 3 positions", subjects)
	}
}

func TestScan_RestoresPlayhead(t *testing.T) {
	source := &MockRestorableSource{}
	source.SetPosition(7.5)
	e := NewEngine(source, &MockDetector{})

	if _, err := e.Scan(context.Background(), 3, testOptions()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	restored := source.Restored()
	if len(restored) != 1 || restored[0] != 7.5 {
		t.Errorf("restored = %v, want [7.5]", restored)
	}
}

func TestFilterDetections(t *testing.T) {
	dets := []Detection{
		det("a", 0, 0, 1, 1, 0.4),
		det("b", 0, 0, 1, 1, 0.9),
		det("c", 0, 0, 1, 1, 0.6),
		det("d", 0, 0, 1, 1, 0.7),
	}
	kept := filterDetections(dets, 0.5, 2)
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[0].Class != "b" || kept[1].Class != "d" {
		t.Errorf("kept = %v %v, want b then d", kept[0].Class, kept[1].Class)
	}

	if got := filterDetections(dets, 0.5, 0); len(got) != 3 {
		t.Errorf("cap 0 should keep all passing detections, got %d", len(got))
	}
}
