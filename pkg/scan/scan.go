package scan

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/framelab/go-reframe/internal/log"
	"github.com/framelab/go-reframe/pkg/sampler"
)

// Engine drives a full scan: sample timestamps, then for each one
// seek/capture, detect, filter and track, emitting progress after every
// frame. One engine owns its frame source for the duration of a scan;
// frames are processed strictly in ascending timestamp order, one at a
// time, because the source cannot be sought concurrently.
type Engine struct {
	source FrameSource
	det    Detector

	mu        sync.Mutex
	running   bool
	cancelled bool
}

// NewEngine creates an engine bound to a frame source and detector.
func NewEngine(source FrameSource, det Detector) *Engine {
	return &Engine{source: source, det: det}
}

// IsRunning reports whether a scan is currently in progress.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Cancel requests that the running scan stop before its next frame.
// Cancellation is cooperative: the frame in flight completes first, and
// the scan still returns the subjects found so far. No-op when idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.cancelled = true
	}
}

func (e *Engine) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// Scan inspects a video of the given duration (seconds) and returns the
// subjects found. Cancellation — via Cancel or the context — yields a
// partial but valid result, not an error.
func (e *Engine) Scan(ctx context.Context, duration float64, opts Options) ([]Subject, error) {
	if e.source == nil || e.det == nil {
		return nil, ErrNotInitialized
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrScanInProgress
	}
	e.running = true
	e.cancelled = false
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	// Load the model before timing starts so per-frame estimates reflect
	// inference, not cold start. A failed warm-up is not fatal: detection
	// errors are contained per frame.
	if err := e.det.WarmUp(ctx); err != nil {
		log.Warn("detector warm-up failed", "error", err)
	}

	times := sampler.Sample(duration, opts.Segments, opts.Interval, opts.MaxSamples)
	if len(times) == 0 {
		return []Subject{}, nil
	}

	if r, ok := e.source.(Restorer); ok {
		pos := r.Position()
		defer r.Restore(pos)
	}

	tr := newTracker()
	start := time.Now()
	var lastFrame []byte

	for i, ts := range times {
		if e.stopRequested(ctx) {
			log.Info("scan cancelled", "processed", i, "total", len(times))
			break
		}

		timeout := opts.SeekTimeout
		if i == 0 {
			timeout = opts.StartupTimeout
		}

		frame, err := e.capture(ctx, ts, timeout)
		switch {
		case err == nil:
			lastFrame = frame
		case i == 0 && errors.Is(err, ErrSeekTimeout):
			// The source never produced anything; nothing can be scanned.
			return nil, ErrAcquisitionTimeout
		default:
			// A single bad seek must not fail the batch: fall back to the
			// most recent good frame.
			log.Warn("seek failed, reusing last frame", "time", ts, "error", err)
			frame = lastFrame
		}

		var detections []Detection
		if frame != nil {
			detections, err = e.det.Detect(ctx, frame)
			if err != nil {
				// Recoverable: this frame contributes nothing.
				log.Warn("detection failed, skipping frame", "time", ts, "error", err)
				detections = nil
			}
		}

		kept := filterDetections(detections, opts.MinScore, opts.MaxObjectsPerFrame)
		tr.update(kept, ts, opts.SimilarityThreshold, opts.MaxTimeGapForMatch)

		if opts.OnProgress != nil {
			opts.OnProgress(progressAt(i+1, len(times), time.Since(start)))
		}
	}

	return tr.finalize(opts.MinDetections), nil
}

// capture seeks the source with a bounded wait. The select guards against
// sources that do not honor context cancellation themselves.
func (e *Engine) capture(ctx context.Context, ts float64, timeout time.Duration) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		frame []byte
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		frame, err := e.source.SeekAndCapture(cctx, ts)
		ch <- result{frame, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && cctx.Err() == context.DeadlineExceeded {
			return nil, ErrSeekTimeout
		}
		return r.frame, r.err
	case <-cctx.Done():
		if cctx.Err() == context.DeadlineExceeded {
			return nil, ErrSeekTimeout
		}
		return nil, cctx.Err()
	}
}

// filterDetections keeps detections at or above the score floor, ordered
// by descending score, at most maxPerFrame of them.
func filterDetections(detections []Detection, minScore float64, maxPerFrame int) []Detection {
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Score >= minScore {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if maxPerFrame > 0 && len(kept) > maxPerFrame {
		kept = kept[:maxPerFrame]
	}
	return kept
}

func progressAt(done, total int, elapsed time.Duration) Progress {
	p := Progress{
		CurrentFrame:    done,
		TotalFrames:     total,
		ElapsedSeconds:  elapsed.Seconds(),
		PercentComplete: float64(done) / float64(total) * 100,
	}
	if done > 0 {
		perFrame := elapsed.Seconds() / float64(done)
		p.EstimatedRemainingSeconds = perFrame * float64(total-done)
	}
	return p
}
