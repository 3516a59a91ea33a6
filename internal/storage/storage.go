// Package storage provides the durable backends for area records. Every
// backend persists the full slug-to-area mapping as one document; partial
// writes are not part of the contract.
package storage

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/urbemaps/geofence/internal/model"
)

// ErrReadOnly is returned by Save when the backing medium cannot be
// written. Callers treat it as non-fatal and keep their in-memory state.
var ErrReadOnly = eris.New("storage: medium is read-only")

// Store persists the slug-to-area mapping.
type Store interface {
	// Load returns the stored mapping, or an empty mapping when no data
	// has been written yet.
	Load(ctx context.Context) (map[string]model.Area, error)
	// Save overwrites the entire stored mapping.
	Save(ctx context.Context, areas map[string]model.Area) error
	Close() error
}
