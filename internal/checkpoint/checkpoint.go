// Package checkpoint persists opaque model snapshots keyed by the global
// training step.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Latest when no checkpoint has been saved.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a stored snapshot.
type Checkpoint struct {
	Step int64
	Data []byte
}

// Store saves snapshots and keeps only the newest ones.
type Store interface {
	// Save stores data under step, then drops all but the newest snapshots.
	Save(ctx context.Context, step int64, data []byte) error
	// Latest returns the snapshot with the highest step.
	Latest(ctx context.Context) (Checkpoint, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open opens a store of the given backend rooted at dir.
func Open(backend, dir string, keep int) (Store, error) {
	switch backend {
	case BackendFile, "":
		s, err := NewFileStore(dir, keep)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(dir, keep)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
}
