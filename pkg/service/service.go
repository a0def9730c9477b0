// Package service runs scans on behalf of the HTTP layer: it opens the
// requested video, drives one scan engine at a time, persists finished
// results and fans progress events out to observers.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framelab/go-reframe/internal/log"
	"github.com/framelab/go-reframe/pkg/sampler"
	"github.com/framelab/go-reframe/pkg/scan"
	"github.com/framelab/go-reframe/pkg/store"
)

// Media is a frame source that also knows its stream geometry.
// source.FileSource and source.ProbedFFmpeg both satisfy it.
type Media interface {
	scan.FrameSource
	Duration() float64
	FrameSize() (width, height float64)
	Close() error
}

// Request describes one scan to run.
type Request struct {
	Video    string            `json:"video"`
	Preset   string            `json:"preset"`   // "", "default", "fast", "thorough"
	Duration float64           `json:"duration"` // 0 means use the probed duration
	Segments []sampler.Segment `json:"segments,omitempty"`

	// Optional overrides; zero means keep the preset value.
	Interval      float64 `json:"interval,omitempty"`
	MinScore      float64 `json:"min_score,omitempty"`
	MaxSamples    int     `json:"max_samples,omitempty"`
	MinDetections int     `json:"min_detections,omitempty"`
}

// Event is one message on the progress stream.
type Event struct {
	Type     string         `json:"type"` // progress, complete, error
	ScanID   string         `json:"scan_id"`
	Video    string         `json:"video,omitempty"`
	Progress *scan.Progress `json:"progress,omitempty"`
	Subjects int            `json:"subjects,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Status reports what the service is doing.
type Status struct {
	Running   bool   `json:"running"`
	ScanID    string `json:"scan_id,omitempty"`
	Video     string `json:"video,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Service owns one scan at a time. Starting while a scan runs is
// rejected, mirroring the engine's policy.
type Service struct {
	store    *store.Store
	detector scan.Detector
	open     func(ctx context.Context, path string) (Media, error)

	// OnEvent, when set, receives progress and lifecycle events.
	OnEvent func(Event)

	mu        sync.Mutex
	engine    *scan.Engine
	current   Status
	lastError string
}

// New creates a service. open is how videos become frame sources —
// inject source.OpenFile for gocv or source.OpenFFmpeg for the
// process-based path.
func New(st *store.Store, detector scan.Detector, open func(ctx context.Context, path string) (Media, error)) *Service {
	return &Service{store: st, detector: detector, open: open}
}

// Start launches a scan in the background and returns its id.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	if s.current.Running {
		s.mu.Unlock()
		return "", scan.ErrScanInProgress
	}
	s.current = Status{Running: true, Video: req.Video}
	s.mu.Unlock()

	media, err := s.open(ctx, req.Video)
	if err != nil {
		s.finish("", "", err)
		return "", err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.current.ScanID = id
	engine := scan.NewEngine(media, s.detector)
	s.engine = engine
	s.mu.Unlock()

	duration := req.Duration
	if duration <= 0 {
		duration = media.Duration()
	}

	opts := buildOptions(req)
	opts.OnProgress = func(p scan.Progress) {
		s.emit(Event{Type: "progress", ScanID: id, Video: req.Video, Progress: &p})
	}

	go s.run(ctx, id, req.Video, engine, media, duration, opts)
	return id, nil
}

func (s *Service) run(ctx context.Context, id, video string, engine *scan.Engine, media Media, duration float64, opts scan.Options) {
	defer media.Close()

	subjects, err := engine.Scan(ctx, duration, opts)
	if err != nil {
		log.Error("scan failed", "scan_id", id, "video", video, "error", err)
		s.emit(Event{Type: "error", ScanID: id, Video: video, Error: err.Error()})
		s.finish(id, video, err)
		return
	}

	width, height := media.FrameSize()
	rec := &store.ScanRecord{
		ID:          id,
		Video:       video,
		Duration:    duration,
		FrameWidth:  width,
		FrameHeight: height,
		CreatedAt:   time.Now().UTC(),
		Subjects:    subjects,
	}
	if s.store != nil {
		if err := s.store.Save(rec); err != nil {
			log.Error("saving scan failed", "scan_id", id, "error", err)
			s.emit(Event{Type: "error", ScanID: id, Video: video, Error: err.Error()})
			s.finish(id, video, err)
			return
		}
	}

	log.Info("scan complete", "scan_id", id, "video", video, "subjects", len(subjects))
	s.emit(Event{Type: "complete", ScanID: id, Video: video, Subjects: len(subjects)})
	s.finish(id, video, nil)
}

// Cancel stops the running scan, if any.
func (s *Service) Cancel() {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine != nil {
		engine.Cancel()
	}
}

// Status returns the current service state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.current
	st.LastError = s.lastError
	return st
}

func (s *Service) emit(ev Event) {
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}

func (s *Service) finish(id, video string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Status{}
	s.engine = nil
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

func buildOptions(req Request) scan.Options {
	var opts scan.Options
	switch req.Preset {
	case "fast":
		opts = scan.FastOptions()
	case "thorough":
		opts = scan.ThoroughOptions()
	default:
		opts = scan.DefaultOptions()
	}

	opts.Segments = req.Segments
	if req.Interval > 0 {
		opts.Interval = req.Interval
	}
	if req.MinScore > 0 {
		opts.MinScore = req.MinScore
	}
	if req.MaxSamples > 0 {
		opts.MaxSamples = req.MaxSamples
	}
	if req.MinDetections > 0 {
		opts.MinDetections = req.MinDetections
	}
	return opts
}
