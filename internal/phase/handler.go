// Package phase runs one pipeline phase across every eligible item, isolating
// per-item failures so one bad item never blocks the batch.
package phase

import (
	"context"

	"curator/internal/catalog"
)

// Handler performs one phase's work for a single item. Implementations load
// the item, do the work, and record completion through the catalog store;
// they must be safe to re-run on an item whose phase already completed.
type Handler interface {
	Phase() catalog.Phase
	Execute(ctx context.Context, itemID string) error
}

// Failure records one item that failed during a batch.
type Failure struct {
	ItemID string
	Err    error
}

// Result summarizes one phase batch.
type Result struct {
	Phase     catalog.Phase
	Attempted int
	Succeeded int
	Failures  []Failure
}
