// Package app runs one subsystem view: the event loop that dispatches
// interactions, routes snapshots and drives the lock and live-update
// affordances. It also defines the ports its collaborators implement.
package app

import (
	"github.com/jaakkos/helmpanel/internal/domain"
)

// ViewStore is session-scoped storage for the panel's ViewState, keyed by
// subsystem. Implementation: internal/repository/sqlite, or the in-memory
// store in internal/repository.
type ViewStore interface {
	// Get returns the whole stored state. found is false when nothing was
	// stored for the subsystem yet.
	Get(subsystem string) (v domain.ViewState, found bool, err error)
	// GetField returns one flag by domain.Field* key.
	GetField(subsystem, key string) (bool, error)
	// Put overwrites the whole stored state.
	Put(subsystem string, v domain.ViewState) error
	Close() error
}
