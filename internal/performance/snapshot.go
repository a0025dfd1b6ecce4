package performance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"momentum-allocator/internal/backtest"
	"momentum-allocator/internal/strategy"
)

// ErrNotFound is returned for absent or expired snapshots.
var ErrNotFound = errors.New("performance snapshot not found")

// Snapshot is the stored result of a scheduled backtest.
type Snapshot struct {
	StrategyID         string           `json:"strategy_id"`
	StrategyName       string           `json:"strategy_name"`
	StrategyVersion    string           `json:"strategy_version"`
	RebalanceFrequency string           `json:"rebalance_frequency"`
	Parameters         strategy.Params  `json:"parameters"`
	Metrics            backtest.Metrics `json:"metrics"`
	UpdatedAt          time.Time        `json:"updated_at"`
	ExpiresAt          time.Time        `json:"expires_at"`
}

// Key is the storage key of a strategy's default-parameter snapshot.
func Key(strategyID string) string { return strategyID + "|default" }

// Store persists snapshots by key.
type Store interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Put(ctx context.Context, key string, s *Snapshot) error
	// List returns every unexpired snapshot ordered by key.
	List(ctx context.Context) ([]*Snapshot, error)
}

func expired(s *Snapshot, now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// jsonCompact encodes v without HTML escaping and without a trailing newline.
func jsonCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
