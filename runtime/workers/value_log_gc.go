package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// ValueLogGC periodically reclaims badger value-log space left by expired guests.
type ValueLogGC struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewValueLogGC(log *slog.Logger, db *badger.DB, interval time.Duration) *ValueLogGC {
	return &ValueLogGC{log: log, db: db, interval: interval}
}

func (w *ValueLogGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if stop := w.Collect(); stop {
				w.log.Info("Value log GC disabled for in-memory database")
				return nil
			}
		}
	}
}

// Collect rewrites value-log files until nothing is left to reclaim.
// It reports true when GC can never run on this database.
func (w *ValueLogGC) Collect() bool {
	rewrites := 0
	for {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			rewrites++
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			if rewrites > 0 {
				w.log.Debug("Value log GC done", "rewrites", rewrites)
			}
			return false
		case errors.Is(err, badger.ErrGCInMemoryMode):
			return true
		default:
			w.log.Warn("Value log GC failed", "error", err)
			return false
		}
	}
}
