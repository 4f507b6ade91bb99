package move

import (
	"context"
	"strconv"
	"time"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
)

const (
	terminalRecordRetention = 30 * 24 * time.Hour
	// sweepMinInterval bounds how often a full note_moves scan actually
	// runs, per SPEC_FULL.md §3's moveCleanupWatermark row: callers may tick
	// this far more often than once every 30 days, but the table only
	// needs to be rescanned this often.
	sweepMinInterval = time.Hour
)

// SweepTerminalRecords deletes move records in a terminal state older than
// 30 days, per §4.7's cleanup task. A state-table watermark skips the scan
// entirely when the last sweep ran within sweepMinInterval, so frequent
// callers (e.g. a periodic background tick) don't rescan the whole table
// every time.
func (e *Engine) SweepTerminalRecords(ctx context.Context) (int64, error) {
	now := e.now()

	if raw, ok, err := e.Catalog.GetState(ctx, catalog.StateMoveCleanupWatermark); err != nil {
		return 0, err
	} else if ok {
		if lastMillis, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if now.Sub(time.UnixMilli(lastMillis).UTC()) < sweepMinInterval {
				return 0, nil
			}
		}
	}

	cutoff := now.Add(-terminalRecordRetention)
	deleted, err := e.Catalog.DeleteTerminalMovesOlderThan(ctx, cutoff.UnixMilli())
	if err != nil {
		return deleted, err
	}

	if err := e.Catalog.SetState(ctx, catalog.StateMoveCleanupWatermark, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return deleted, err
	}
	return deleted, nil
}
