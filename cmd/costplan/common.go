package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/costplan/internal/db"
	"github.com/metalagman/costplan/internal/history"
	"github.com/rs/zerolog/log"
)

func (a *app) openHistory(ctx context.Context) (*history.Store, func(), error) {
	return a.openHistoryLocked(ctx, false)
}

// openHistoryLocked opens the history, holding the writer lock until the
// returned func is called if exclusive is set.
func (a *app) openHistoryLocked(ctx context.Context, exclusive bool) (*history.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(a.dbPath), 0o755); err != nil {
		return nil, func() {}, fmt.Errorf("create history dir: %w", err)
	}
	var lock *history.Lock
	if exclusive {
		var err error
		if lock, err = history.AcquireLock(ctx, filepath.Dir(a.dbPath)); err != nil {
			return nil, func() {}, err
		}
	}
	storeDB, err := db.Open(ctx, a.dbPath)
	if err != nil {
		_ = lock.Release()
		return nil, func() {}, err
	}
	if v, err := db.Version(ctx, storeDB); err == nil {
		log.Debug().Str("path", a.dbPath).Int64("schema_version", v).Msg("history opened")
	}
	return history.NewStore(storeDB), func() {
		_ = storeDB.Close()
		_ = lock.Release()
	}, nil
}
