// Package primitives provides versioning utilities for state snapshots.
package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion returns a deterministic content hash for a state tree.
// encoding/json sorts map keys, so equal trees hash equally.
func ComputeVersion(state State) string {
	data, err := json.Marshal(state)
	if err != nil {
		// Unserializable slices (funcs, channels) still get a stable marker.
		return "unversioned"
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
