// Package source provides frame acquisition adapters for the scan
// engine: a gocv-backed video file source and an ffmpeg pipe fallback
// that needs no cgo. Both satisfy scan.FrameSource.
package source

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/framelab/go-reframe/pkg/scan"
)

// FileSource reads frames from a video file through OpenCV, seeking by
// millisecond position. The underlying capture is a single shared
// resource; access is serialized.
type FileSource struct {
	path string

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// OpenFile opens a video file for frame capture.
func OpenFile(path string) (*FileSource, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("source: open %s: no readable video stream", path)
	}
	return &FileSource{path: path, cap: cap}, nil
}

// Duration returns the video duration in seconds, or 0 if unknown.
func (s *FileSource) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	fps := s.cap.Get(gocv.VideoCaptureFPS)
	frames := s.cap.Get(gocv.VideoCaptureFrameCount)
	if fps <= 0 || frames <= 0 {
		return 0
	}
	return frames / fps
}

// FrameSize returns the video frame dimensions in pixels.
func (s *FileSource) FrameSize() (width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cap.Get(gocv.VideoCaptureFrameWidth), s.cap.Get(gocv.VideoCaptureFrameHeight)
}

// SeekAndCapture positions the video at t seconds and returns the frame
// there as JPEG.
func (s *FileSource) SeekAndCapture(ctx context.Context, t float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cap.Set(gocv.VideoCapturePosMsec, t*1000)

	img := gocv.NewMat()
	defer img.Close()

	if ok := s.cap.Read(&img); !ok || img.Empty() {
		return nil, fmt.Errorf("source: no frame at %.3fs in %s", t, s.path)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("source: encode frame: %w", err)
	}
	defer buf.Close()

	frame := make([]byte, buf.Len())
	copy(frame, buf.GetBytes())
	return frame, nil
}

// Position returns the current playhead position in seconds.
func (s *FileSource) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cap.Get(gocv.VideoCapturePosMsec) / 1000
}

// Restore puts the playhead back to pos seconds.
func (s *FileSource) Restore(pos float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cap.Set(gocv.VideoCapturePosMsec, pos*1000)
}

// Close releases the capture.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cap.Close()
}

// Verify interfaces at compile time.
var (
	_ scan.FrameSource = (*FileSource)(nil)
	_ scan.Restorer    = (*FileSource)(nil)
)
