package client

import (
	"encoding/json"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// SubscriptionEvent is the wrapper object received from the server.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

// State is one fully materialized pair-state snapshot. Version is the
// server's monotonic sequence number; diffs chain on it.
type State struct {
	Schema    string      `json:"schema"`
	Version   uint64      `json:"version"`
	Timestamp uint64      `json:"timestamp"`
	Pairs     []pair.Pair `json:"pairs"`
}

// StateDiff carries the change from one snapshot version to the next.
type StateDiff struct {
	Schema      string          `json:"schema"`
	FromVersion uint64          `json:"fromVersion"`
	ToVersion   uint64          `json:"toVersion"`
	Timestamp   uint64          `json:"timestamp"`
	Diff        pair.SystemDiff `json:"diff"`
}
