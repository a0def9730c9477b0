// scand serves the scan API: POST a video path to /api/scans, follow
// progress on /ws/progress, read results back from /api/scans/:id.
package main

import (
	"context"
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
	"github.com/framelab/go-reframe/pkg/store"
	"github.com/framelab/go-reframe/pkg/web"
)

func main() {
	src := flag.String("source", "gocv", "frame source: gocv or ffmpeg")
	flag.Parse()

	log.Init(config.LogLevel())

	if err := run(*src); err != nil {
		fmt.Fprintf(os.Stderr, "scand: %v\n", err)
		os.Exit(1)
	}
}

func run(src string) error {
	st, err := store.Open(config.StorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	detector, closeDetector, err := newDetector()
	if err != nil {
		return err
	}
	defer closeDetector()

	open, err := mediaOpener(src)
	if err != nil {
		return err
	}

	svc := service.New(st, detector, open)
	server := web.NewServer(config.Port(), svc, st)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		svc.Cancel()
		server.Shutdown()
	}()

	return server.Start()
}

func mediaOpener(src string) (func(ctx context.Context, path string) (service.Media, error), error) {
	switch src {
	case "ffmpeg":
		return func(ctx context.Context, path string) (service.Media, error) {
			return source.OpenFFmpeg(ctx, path)
		}, nil
	case "gocv":
		return func(ctx context.Context, path string) (service.Media, error) {
			return source.OpenFile(path)
		}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want gocv or ffmpeg)", src)
	}
}

func newDetector() (scan.Detector, func(), error) {
	if url := config.DetectorURL(); url != "" {
		log.Info("using remote detector", "url", url)
		return detect.NewRemote(url), func() {}, nil
	}

	cfg := detect.DefaultYOLOConfig()
	cfg.ModelPath = config.ModelPath(cfg.ModelPath)
	yolo, err := detect.NewYOLO(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using local detector", "model", cfg.ModelPath)
	return yolo, func() { yolo.Close() }, nil
}
