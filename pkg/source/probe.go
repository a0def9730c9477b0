package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// MediaInfo describes a video file's stream geometry and length.
type MediaInfo struct {
	Duration float64 // seconds
	Width    float64 // pixels
	Height   float64
}

// Probe inspects a video file with ffprobe.
func Probe(ctx context.Context, path string) (MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return MediaInfo{}, fmt.Errorf("source: ffprobe %s: %w: %s", path, err, lastLine(stderr.String()))
	}
	return parseProbeOutput(stdout.Bytes())
}

type probeOutput struct {
	Streams []struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("source: decode ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return MediaInfo{}, fmt.Errorf("source: no video stream in ffprobe output")
	}

	info := MediaInfo{
		Width:  out.Streams[0].Width,
		Height: out.Streams[0].Height,
	}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("source: parse duration %q: %w", out.Format.Duration, err)
		}
		info.Duration = d
	}
	return info, nil
}

// ProbedFFmpeg bundles an FFmpegSource with its probed media info so it
// can stand in wherever stream geometry is needed alongside frames.
type ProbedFFmpeg struct {
	*FFmpegSource
	info MediaInfo
}

// OpenFFmpeg probes the file and returns a ready frame source.
func OpenFFmpeg(ctx context.Context, path string, opts ...FFmpegOption) (*ProbedFFmpeg, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &ProbedFFmpeg{FFmpegSource: NewFFmpeg(path, opts...), info: info}, nil
}

// Duration returns the probed duration in seconds.
func (p *ProbedFFmpeg) Duration() float64 { return p.info.Duration }

// FrameSize returns the probed frame dimensions in pixels.
func (p *ProbedFFmpeg) FrameSize() (width, height float64) {
	return p.info.Width, p.info.Height
}

// Close is a no-op; each seek runs its own process.
func (p *ProbedFFmpeg) Close() error { return nil }
