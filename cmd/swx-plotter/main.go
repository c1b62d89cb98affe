// swx-plotter - Fetch, chart and export NASA DONKI space-weather events
//
// Datasets:
//   - FLR: solar flares, counted per week
//   - GST: geomagnetic storms, planetary Kp index
//   - WSAEnlilSimulations: solar wind CME input speeds
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w -X main.Version=x.y.z" -o build/swx-plotter ./cmd/swx-plotter

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutdown requested...")
		cancel()
	}()

	if err := newRootCmd(os.Stdin).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
