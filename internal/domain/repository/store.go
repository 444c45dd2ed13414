package repository

import (
	"context"

	"shareminder/internal/domain/entity"
)

// Store is the persistent blob store holding the reminder collection and
// the binding map. Reads and writes are whole-snapshot; there are no
// partial updates. Round-trip law: Load after Save returns an equal
// snapshot for any valid collection pair.
type Store interface {
	// Load reads the persisted snapshot. A store that has never been
	// written returns an empty snapshot, not an error.
	Load(ctx context.Context) (*entity.Snapshot, error)
	// Save persists the snapshot, replacing whatever was stored before.
	Save(ctx context.Context, snap *entity.Snapshot) error
}
