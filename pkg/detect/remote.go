package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/framelab/go-reframe/internal/httpc"
	"github.com/framelab/go-reframe/pkg/geometry"
	"github.com/framelab/go-reframe/pkg/scan"
)

// Remote calls an HTTP inference service: POST a JPEG to /detect, get
// back JSON detections. WarmUp hits /warmup so the service loads its
// model before the scan clock starts.
type Remote struct {
	baseURL string
	client  *http.Client
}

// RemoteOption customizes a Remote detector.
type RemoteOption func(*Remote)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// NewRemote creates a detector client for the service at baseURL.
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(60 * time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// remoteDetection is the service's wire format.
type remoteDetection struct {
	Class string  `json:"class"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score float64 `json:"score"`
}

type detectResponse struct {
	Detections []remoteDetection `json:"detections"`
}

// WarmUp asks the service to load its model. Idempotent on the service
// side; repeated calls are cheap.
func (r *Remote) WarmUp(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/warmup", nil)
	if err != nil {
		return fmt.Errorf("detect: build warmup request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("detect: warmup: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detect: warmup returned status %d", resp.StatusCode)
	}
	return nil
}

// Detect posts the JPEG frame and decodes the detection list.
func (r *Remote) Detect(ctx context.Context, frame []byte) ([]scan.Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/detect", bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("detect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detect: service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("detect: decode response: %w", err)
	}

	detections := make([]scan.Detection, 0, len(out.Detections))
	for _, d := range out.Detections {
		detections = append(detections, scan.Detection{
			Class: d.Class,
			Box:   geometry.Box{X: d.X, Y: d.Y, W: d.W, H: d.H},
			Score: d.Score,
		})
	}
	return detections, nil
}

// Verify interface at compile time.
var _ scan.Detector = (*Remote)(nil)
