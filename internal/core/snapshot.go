// Package core defines the Persister interface for saving store snapshots.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// Snapshot is the serializable capture of a store's state tree.
type Snapshot struct {
	ID        string           `json:"id,omitempty" yaml:"id,omitempty"`
	StoreID   string           `json:"storeID" yaml:"storeID"`
	Version   string           `json:"version" yaml:"version"`
	State     primitives.State `json:"state" yaml:"state"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// Persister saves and loads the latest snapshot of a store.
type Persister interface {
	// Save stores the snapshot as the latest for snapshot.StoreID.
	Save(ctx context.Context, snapshot Snapshot) error

	// Load returns the latest snapshot for storeID.
	Load(ctx context.Context, storeID string) (Snapshot, error)
}

var ErrSnapshotNotFound = errors.New("storex: snapshot not found")
