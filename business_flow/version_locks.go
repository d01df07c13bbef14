package businessflow

import (
	"context"
	"sync"

	"github.com/nemaec/obra-erp/repository"
	"gorm.io/gorm"
)

// versionLocks serializes schedule operations per station so two monitors
// cannot confirm or approve versions of the same comisaria concurrently.
type versionLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newVersionLocks() *versionLocks {
	return &versionLocks{locks: make(map[uint]*sync.Mutex)}
}

func (vl *versionLocks) lock(comisariaID uint) func() {
	vl.mu.Lock()
	m, ok := vl.locks[comisariaID]
	if !ok {
		m = &sync.Mutex{}
		vl.locks[comisariaID] = m
	}
	vl.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// runInTransaction wraps fn in a database transaction. A nil db runs fn
// directly, which keeps flows usable with fake repositories in tests.
func runInTransaction[T any](ctx context.Context, db *gorm.DB, fn func(context.Context) (T, error)) (T, error) {
	if db == nil {
		return fn(ctx)
	}

	var result T
	var fnErr error

	err := repository.WithTransaction(ctx, db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, fnErr
}
