package remote

import (
	"context"
	"fmt"

	"github.com/roach88/graphsync/internal/journal"
)

// Reader is the read side of a journal.
type Reader interface {
	Read(ctx context.Context, afterSeq int64) ([]journal.Record, error)
}

// Replay applies records in order, keeping their seq. Every record must
// advance the clock. Records already journaled elsewhere may be replayed
// into a store with its own journal; appends are idempotent.
func (r *Remote) Replay(ctx context.Context, records []journal.Record) error {
	r.mu.Lock()
	var err error
	for i := range records {
		if err = ctx.Err(); err != nil {
			break
		}
		rec := records[i]
		if rec.Seq == 0 {
			err = fmt.Errorf("replay %s: %w", rec, ErrOutOfOrder)
			break
		}
		if err = r.commit(ctx, &rec); err != nil {
			err = fmt.Errorf("replay: %w", err)
			break
		}
	}
	r.mu.Unlock()

	r.flush()
	return err
}

// Restore replays every record of src newer than the store's clock.
func (r *Remote) Restore(ctx context.Context, src Reader) error {
	records, err := src.Read(ctx, r.Clock())
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return r.Replay(ctx, records)
}
