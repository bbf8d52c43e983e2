// Package startup hydrates the engine's in-memory caches from a
// persistence snapshot before the tick feed and RPC server begin
// accepting traffic. A missing or empty snapshot is not an error —
// the engine simply starts with empty caches, matching a fresh
// deployment.
package startup

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"positionengine/internal/lifecycle"
	"positionengine/internal/persistence"
	"positionengine/internal/position"
)

// Hydrate loads the latest snapshot from client and populates the
// coordinator's quote cache and position stores with it.
func Hydrate(coord *lifecycle.Coordinator, client persistence.Client, logger *slog.Logger) error {
	logger = logger.With("component", "startup")

	snap, err := client.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	for _, ba := range snap.Prices {
		coord.Quotes.Put(ba)
	}

	var active []*position.Active
	if len(snap.Active) > 0 {
		if err := json.Unmarshal(snap.Active, &active); err != nil {
			return fmt.Errorf("decode active snapshot: %w", err)
		}
	}
	for _, p := range active {
		coord.Active.AddLocking(p)
	}

	var pending []*position.Pending
	if len(snap.Pending) > 0 {
		if err := json.Unmarshal(snap.Pending, &pending); err != nil {
			return fmt.Errorf("decode pending snapshot: %w", err)
		}
	}
	for _, p := range pending {
		coord.Pending.AddLocking(p)
	}

	logger.Info("snapshot hydrated",
		"prices", len(snap.Prices), "active", len(active), "pending", len(pending))
	return nil
}
