package scan

import (
	"context"
	"sync"
)

// MockSource implements FrameSource for testing.
type MockSource struct {
	// CaptureFunc is called when SeekAndCapture is invoked.
	CaptureFunc func(ctx context.Context, t float64) ([]byte, error)

	mu    sync.Mutex
	seeks []float64
}

// SeekAndCapture calls CaptureFunc and records the requested timestamp.
func (m *MockSource) SeekAndCapture(ctx context.Context, t float64) ([]byte, error) {
	m.mu.Lock()
	m.seeks = append(m.seeks, t)
	m.mu.Unlock()

	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, t)
	}
	return []byte("frame"), nil
}

// Seeks returns every timestamp requested so far, in order.
func (m *MockSource) Seeks() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.seeks))
	copy(out, m.seeks)
	return out
}

// MockRestorableSource is a MockSource with a playhead.
type MockRestorableSource struct {
	MockSource

	mu       sync.Mutex
	pos      float64
	restored []float64
}

// Position returns the current playhead position.
func (m *MockRestorableSource) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Restore records the position the engine put back.
func (m *MockRestorableSource) Restore(pos float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = append(m.restored, pos)
}

// Restored returns every restore call so far.
func (m *MockRestorableSource) Restored() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.restored))
	copy(out, m.restored)
	return out
}

// SetPosition sets the playhead the next Position call reports.
func (m *MockRestorableSource) SetPosition(pos float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
}

// MockDetector implements Detector for testing.
type MockDetector struct {
	// WarmUpFunc is called when WarmUp is invoked.
	WarmUpFunc func(ctx context.Context) error

	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, frame []byte) ([]Detection, error)

	mu      sync.Mutex
	warmUps int
	detects int
}

// WarmUp calls WarmUpFunc and records the call.
func (m *MockDetector) WarmUp(ctx context.Context) error {
	m.mu.Lock()
	m.warmUps++
	m.mu.Unlock()

	if m.WarmUpFunc != nil {
		return m.WarmUpFunc(ctx)
	}
	return nil
}

// Detect calls DetectFunc and records the call.
func (m *MockDetector) Detect(ctx context.Context, frame []byte) ([]Detection, error) {
	m.mu.Lock()
	m.detects++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, frame)
	}
	return nil, nil
}

// WarmUpCount returns how many times WarmUp was called.
func (m *MockDetector) WarmUpCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warmUps
}

// DetectCount returns how many times Detect was called.
func (m *MockDetector) DetectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detects
}

// Verify interfaces at compile time.
var (
	_ FrameSource = (*MockSource)(nil)
	_ FrameSource = (*MockRestorableSource)(nil)
	_ Restorer    = (*MockRestorableSource)(nil)
	_ Detector    = (*MockDetector)(nil)
)
