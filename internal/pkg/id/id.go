package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable by
// creation time, which keeps the persisted reminder collection stable across
// round trips without a separate sequence.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
