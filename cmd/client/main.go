package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tianlin0725/coralswap-sdk/streams/jsonrpc/client"
	"github.com/Tianlin0725/coralswap-sdk/streams/jsonrpc/stateops"
)

const (
	DefaultClientStateBufferSize = 100
)

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	close := func() {
		os.Exit(1)
	}

	rootLogger := slog.New(rootLogHandler)
	prometheusRegistry := prometheus.DefaultRegisterer

	streamURL := flag.String("url", "ws://localhost:8546", "Pair stream websocket URL.")
	flag.Parse()

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ops, err := stateops.NewStateOps(&stateops.Config{
		Logger:   rootLogger.With("component", "stateops"),
		Registry: prometheusRegistry,
	})
	if err != nil {
		rootLogger.Error("Failed to initialize state ops", "error", err)
		close()
	}

	client, err := client.NewClient(
		ctx,
		client.Config{
			URL:        *streamURL,
			Logger:     rootLogger.With("component", "jsonrpc-client"),
			BufferSize: DefaultClientStateBufferSize,
			Patcher:    ops.Patch,
		},
	)
	if err != nil {
		rootLogger.Error("Failed to initialize Client", "url", *streamURL, "error", err)
		close()
	}

	for {
		select {
		case state := <-client.State():
			rootLogger.Info("snapshot", "version", state.Version, "pairs", len(state.Pairs))
		case err := <-client.Err():
			rootLogger.Error("Fatal client error", "error", err)
			return
		case <-ctx.Done():
			return
		}
	}
}
