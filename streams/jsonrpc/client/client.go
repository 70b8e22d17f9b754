// Package client consumes a server-pushed pair-state stream over JSON-RPC
// subscriptions. The server sends one full snapshot on subscribe and version
// chained diffs afterwards; the client materializes each diff into a complete
// snapshot before handing it to the application.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the streamer is registered.
	RpcNamespace                 = "coralswap"
	PairStreamSubscriptionMethod = "subscribePairStream"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PatcherFunc applies a pair-state diff to a previous snapshot without
// mutating it. pair.Patcher is the production implementation.
type PatcherFunc func(prevState []pair.Pair, diff pair.SystemDiff) ([]pair.Pair, error)

// Config holds the configuration for the client.
type Config struct {
	URL        string
	Logger     Logger
	BufferSize uint
	Patcher    PatcherFunc
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.BufferSize < 1 {
		return errors.New("config: BufferSize must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Patcher == nil {
		return errors.New("config: Patcher is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// StreamProcessor
// -----------------------------------------------------------------------------

// StreamProcessor handles the business logic of parsing events, maintaining
// the latest snapshot, applying diffs, and broadcasting updates. It is
// decoupled from the networking layer.
type StreamProcessor struct {
	lastState *State
	patcher   PatcherFunc
	stateCh   chan *State
	logger    Logger
}

// NewStreamProcessor creates a pure logic processor without networking.
func NewStreamProcessor(logger Logger, bufferSize uint, patcher PatcherFunc) *StreamProcessor {
	return &StreamProcessor{
		logger:  logger,
		stateCh: make(chan *State, bufferSize),
		patcher: patcher,
	}
}

// State returns a read-only channel for receiving new snapshots.
func (sp *StreamProcessor) State() <-chan *State {
	return sp.stateCh
}

// ProcessMessage accepts a raw JSON message, processes it, and updates the
// internal snapshot.
func (sp *StreamProcessor) ProcessMessage(rawData json.RawMessage) error {
	processingStart := time.Now()
	var event SubscriptionEvent

	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal subscription event: %w", err)
	}

	switch event.Type {
	case "full":
		return sp.handleFullState(event, processingStart)
	case "diff":
		return sp.handleDiff(event, processingStart)
	default:
		return fmt.Errorf("received unknown event type: %s", event.Type)
	}
}

func (sp *StreamProcessor) handleFullState(event SubscriptionEvent, start time.Time) error {
	var state State
	if err := json.Unmarshal(event.Payload, &state); err != nil {
		return fmt.Errorf("failed to unmarshal full state payload: %w", err)
	}
	if state.Schema != pair.Schema {
		return fmt.Errorf("unsupported snapshot schema %q, want %q", state.Schema, pair.Schema)
	}

	sp.logMetrics(&state, time.Since(start), event.SentAt, "full")

	sp.storeState(&state)
	sp.stateCh <- &state
	return nil
}

func (sp *StreamProcessor) handleDiff(event SubscriptionEvent, start time.Time) error {
	var diff StateDiff
	if err := json.Unmarshal(event.Payload, &diff); err != nil {
		return fmt.Errorf("failed to unmarshal diff payload: %w", err)
	}
	if diff.Schema != pair.Schema {
		return fmt.Errorf("unsupported diff schema %q, want %q", diff.Schema, pair.Schema)
	}

	if sp.lastState == nil {
		return fmt.Errorf("received diff before full state; from_version: %d, to_version: %d", diff.FromVersion, diff.ToVersion)
	}

	if diff.FromVersion != sp.lastState.Version {
		sp.logger.Warn(
			"Received out-of-order diff; state may be out of sync. Discarding.",
			"last_known_version", sp.lastState.Version,
			"diff_from_version", diff.FromVersion,
			"diff_to_version", diff.ToVersion,
		)
		return nil // Non-fatal, just ignored
	}

	pairs, err := sp.patcher(sp.lastState.Pairs, diff.Diff)
	if err != nil {
		return fmt.Errorf("failed to patch state: %w", err)
	}

	state := &State{
		Schema:    diff.Schema,
		Version:   diff.ToVersion,
		Timestamp: diff.Timestamp,
		Pairs:     pairs,
	}

	sp.logMetrics(state, time.Since(start), event.SentAt, "diff")

	sp.storeState(state)
	sp.stateCh <- state
	return nil
}

func (sp *StreamProcessor) storeState(state *State) {
	sp.lastState = state
}

func (sp *StreamProcessor) logMetrics(state *State, processingDur time.Duration, sentAt int64, stateType string) {
	if state == nil {
		return
	}

	clientFinishTime := time.Now()
	clientStartTime := clientFinishTime.Add(-processingDur)
	serverFinishTime := time.Unix(0, sentAt)

	transportTime := clientStartTime.Sub(serverFinishTime)
	totalLatency := clientFinishTime.Sub(time.Unix(int64(state.Timestamp), 0))

	sp.logger.Debug("Snapshot processed",
		"version", state.Version,
		"type", stateType,
		"pairs", len(state.Pairs),
		"latency_total_ms", totalLatency.Milliseconds(),
		"latency_transport_ms", transportTime.Milliseconds(),
		"latency_proc_ms", processingDur.Milliseconds(),
	)
}

// -----------------------------------------------------------------------------
// Client (Networking Wrapper)
// -----------------------------------------------------------------------------

// Client manages the connection and uses StreamProcessor for logic.
type Client struct {
	processor *StreamProcessor
	errCh     chan error
	logger    Logger
}

// NewClient creates a new client with networking enabled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := &Client{
		processor: NewStreamProcessor(cfg.Logger, cfg.BufferSize, cfg.Patcher),
		errCh:     make(chan error, 1),
		logger:    cfg.Logger,
	}

	go client.run(ctx, cfg.URL)
	return client, nil
}

// State delegates to the processor's state channel.
func (c *Client) State() <-chan *State {
	return c.processor.State()
}

// Err returns a read-only channel for receiving fatal (unrecoverable) errors.
func (c *Client) Err() <-chan error {
	return c.errCh
}

// run handles the networking lifecycle and feeds data to the processor.
func (c *Client) run(ctx context.Context, url string) {
	defer close(c.errCh)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			c.logger.Info("Client context canceled, shutting down.")
			return
		}

		c.logger.Info("Attempting to connect to RPC server", "url", url)
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			c.logger.Error("Failed to connect to RPC server, will retry...", "error", err, "delay", reconnectDelay)
			time.Sleep(reconnectDelay)
			reconnectDelay = minDelay(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		c.logger.Info("Successfully connected to RPC server.")
		reconnectDelay = initialReconnectDelay

		err = c.subscribeAndProcess(ctx, rpcClient)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context canceled, shutting down.")
				return
			}
			c.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			time.Sleep(reconnectDelay)
			reconnectDelay = minDelay(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (c *Client) subscribeAndProcess(ctx context.Context, rpcClient *rpc.Client) error {
	defer rpcClient.Close()

	rawCh := make(chan json.RawMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, rawCh, PairStreamSubscriptionMethod)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	c.logger.Info("Successfully subscribed. Waiting for data...")
	for {
		select {
		case rawData := <-rawCh:
			// Delegate logic to the processor
			if err := c.processor.ProcessMessage(rawData); err != nil {
				c.logger.Error("Error processing message", "error", err)
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping subscription.")
			return ctx.Err()
		}
	}
}

func minDelay(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
