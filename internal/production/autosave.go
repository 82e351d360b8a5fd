package production

import (
	"context"
	"log/slog"

	"github.com/comalice/storex/internal/core"
	"github.com/comalice/storex/internal/primitives"
)

// SnapshotSource is the part of a store AutoSave reads from.
type SnapshotSource interface {
	GetState() primitives.State
	Snapshot() core.Snapshot
	Subscribe(listener core.Listener) (func(), error)
}

// AutoSave saves a snapshot through p after every change. Save errors are
// logged, not returned, since listeners cannot fail. Changes whose state
// tree is identical to the last saved one are skipped. The returned func
// unsubscribes.
func AutoSave(ctx context.Context, src SnapshotSource, p core.Persister, logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var last primitives.State
	return src.Subscribe(func() {
		state := src.GetState()
		if last != nil && primitives.SameState(state, last) {
			return
		}
		snapshot := src.Snapshot()
		if err := p.Save(ctx, snapshot); err != nil {
			logger.Error("storex: autosave failed", "store", snapshot.StoreID, "error", err)
			return
		}
		last = state
		logger.Debug("storex: snapshot saved", "store", snapshot.StoreID, "version", snapshot.Version)
	})
}
