// Package persistence hydrates the engine at startup from whatever
// durable store holds the last-known prices and positions, and
// otherwise defers to internal/events for ongoing state changes.
package persistence

import "positionengine/pkg/types"

// Snapshot is the startup state loaded before the engine starts
// accepting ticks: the last quote seen per instrument, and the set of
// active and pending positions that survived the last shutdown.
type Snapshot struct {
	Prices  []types.BidAsk
	Active  []byte // caller-defined JSON shape, decoded by internal/startup
	Pending []byte
}

// Client is the startup-hydration boundary. A remote implementation
// talks to a durable persistence service; a local-file implementation
// backs tests and single-node development.
type Client interface {
	LoadSnapshot() (Snapshot, error)
}
