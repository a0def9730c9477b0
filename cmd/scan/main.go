// scan runs a single scan over a video file and prints the resulting
// focus regions as JSON.
//
// Usage:
//
//	scan -video clip.mp4 [-preset fast] [-interval 0.5] [-source ffmpeg]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/framelab/go-reframe/internal/config"
	"github.com/framelab/go-reframe/internal/log"
	"github.com/framelab/go-reframe/pkg/detect"
	"github.com/framelab/go-reframe/pkg/scan"
	"github.com/framelab/go-reframe/pkg/service"
	"github.com/framelab/go-reframe/pkg/source"
)

func main() {
	video := flag.String("video", "", "path to the video file (required)")
	preset := flag.String("preset", "", "options preset: default, fast, thorough")
	src := flag.String("source", "gocv", "frame source: gocv or ffmpeg")
	interval := flag.Float64("interval", 0, "seconds between sampled frames (0 = preset value)")
	maxSamples := flag.Int("max-samples", 0, "cap on sampled frames (0 = preset value)")
	minScore := flag.Float64("min-score", 0, "minimum detection confidence (0 = preset value)")
	minDetections := flag.Int("min-detections", 0, "detections required to keep a subject (0 = preset value)")
	flag.Parse()

	log.Init(config.LogLevel())

	if *video == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "cancelling...")
		cancel()
	}()

	opts := buildOptions(*preset, *interval, *maxSamples, *minScore, *minDetections)
	if err := run(ctx, *video, *src, opts); err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, video, src string, opts scan.Options) error {
	media, err := openMedia(ctx, video, src)
	if err != nil {
		return err
	}
	defer media.Close()

	detector, closeDetector, err := newDetector()
	if err != nil {
		return err
	}
	defer closeDetector()

	opts.OnProgress = func(p scan.Progress) {
		fmt.Fprintf(os.Stderr, "\rframe %d/%d (%.0f%%) ~%.0fs left",
			p.CurrentFrame, p.TotalFrames, p.PercentComplete, p.EstimatedRemainingSeconds)
	}

	engine := scan.NewEngine(media, detector)
	subjects, err := engine.Scan(ctx, media.Duration(), opts)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	log.Info("scan complete", "video", video, "subjects", len(subjects))

	width, height := media.FrameSize()
	regions := scan.SubjectsToFocusRegions(subjects, width, height)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(regions)
}

// openMedia picks the frame source implementation. The gocv path keeps
// the file open across seeks; the ffmpeg path shells out per frame.
func openMedia(ctx context.Context, video, src string) (service.Media, error) {
	switch src {
	case "ffmpeg":
		return source.OpenFFmpeg(ctx, video)
	case "gocv":
		return source.OpenFile(video)
	default:
		return nil, fmt.Errorf("unknown source %q (want gocv or ffmpeg)", src)
	}
}

// newDetector prefers a remote detector when REFRAME_DETECTOR_URL is
// set, falling back to the local ONNX model.
func newDetector() (scan.Detector, func(), error) {
	if url := config.DetectorURL(); url != "" {
		return detect.NewRemote(url), func() {}, nil
	}

	cfg := detect.DefaultYOLOConfig()
	cfg.ModelPath = config.ModelPath(cfg.ModelPath)
	yolo, err := detect.NewYOLO(cfg)
	if err != nil {
		return nil, nil, err
	}
	return yolo, func() { yolo.Close() }, nil
}

func buildOptions(preset string, interval float64, maxSamples int, minScore float64, minDetections int) scan.Options {
	var opts scan.Options
	switch preset {
	case "fast":
		opts = scan.FastOptions()
	case "thorough":
		opts = scan.ThoroughOptions()
	default:
		opts = scan.DefaultOptions()
	}
	if interval > 0 {
		opts.Interval = interval
	}
	if maxSamples > 0 {
		opts.MaxSamples = maxSamples
	}
	if minScore > 0 {
		opts.MinScore = minScore
	}
	if minDetections > 0 {
		opts.MinDetections = minDetections
	}
	return opts
}
