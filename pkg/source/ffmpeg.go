package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/framelab/go-reframe/pkg/scan"
)

// FFmpegSource extracts single frames with a one-shot ffmpeg process per
// seek. Slower per frame than FileSource but needs no OpenCV install,
// and the input seek (-ss before -i) is keyframe-fast.
type FFmpegSource struct {
	path   string
	binary string
}

// FFmpegOption customizes an FFmpegSource.
type FFmpegOption func(*FFmpegSource)

// WithBinary overrides the ffmpeg binary path.
func WithBinary(path string) FFmpegOption {
	return func(s *FFmpegSource) { s.binary = path }
}

// NewFFmpeg creates a source for the given video file.
func NewFFmpeg(path string, opts ...FFmpegOption) *FFmpegSource {
	s := &FFmpegSource{path: path, binary: "ffmpeg"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeekAndCapture decodes exactly one frame at t seconds to JPEG through
// a pipe. The process is killed when the context expires, so a stuck
// decode never outlives the engine's bounded wait.
func (s *FFmpegSource) SeekAndCapture(ctx context.Context, t float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, s.binary, s.args(t)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("source: ffmpeg at %.3fs: %w: %s", t, err, lastLine(stderr.String()))
	}

	frame := stdout.Bytes()
	if len(frame) == 0 {
		return nil, fmt.Errorf("source: ffmpeg produced no frame at %.3fs", t)
	}
	return frame, nil
}

func (s *FFmpegSource) args(t float64) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", t), // input seek: jumps by keyframe, fast
		"-i", s.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

// Verify interface at compile time.
var _ scan.FrameSource = (*FFmpegSource)(nil)
