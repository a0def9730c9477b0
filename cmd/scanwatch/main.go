// scanwatch follows the live progress stream of a scand instance and
// prints each event, one line per event.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/framelab/go-reframe/pkg/web"
)

func main() {
	addr := flag.String("addr", "localhost:8420", "scand address (host:port)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	watcher, err := web.Watch(ctx, *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scanwatch: %v\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	go func() {
		<-sigChan
		watcher.Close()
	}()

	fmt.Printf("watching %s\n", *addr)
	for {
		ev, err := watcher.Next()
		if err != nil {
			return
		}
		switch ev.Type {
		case "progress":
			fmt.Printf("[%s] frame %d/%d (%.0f%%) ~%.0fs left\n",
				ev.ScanID, ev.Progress.CurrentFrame, ev.Progress.TotalFrames,
				ev.Progress.PercentComplete, ev.Progress.EstimatedRemainingSeconds)
		case "complete":
			fmt.Printf("[%s] complete: %d subjects (%s)\n", ev.ScanID, ev.Subjects, ev.Video)
		case "error":
			fmt.Printf("[%s] error: %s\n", ev.ScanID, ev.Error)
		}
	}
}
