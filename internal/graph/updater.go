package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/graphsync/internal/protocol"
	"github.com/roach88/graphsync/internal/source"
)

// Updater applies one owner's remote change feed.
//
// Events are appended from the delivering goroutine and applied by Update,
// strictly in arrival order, one at a time, each to completion before the
// next. Duplicate or stale events are rejected by presence checks, never
// reordered or merged.
//
// Thread-safety model:
//   - AppendEvent(): safe from any goroutine, never blocks on the owner
//   - Update(): safe from any goroutine; calls are serialized per updater
type Updater struct {
	kind  source.Kind
	owner string
	alive func() bool
	apply func(ctx context.Context, e source.Event) error

	queue *eventQueue
	drain sync.Mutex

	mu    sync.Mutex
	issue error

	logger  *slog.Logger
	metrics *Metrics
}

func newUpdater(g *Graph, kind source.Kind, owner string, alive func() bool, apply func(context.Context, source.Event) error) *Updater {
	return &Updater{
		kind:    kind,
		owner:   owner,
		alive:   alive,
		apply:   apply,
		queue:   newEventQueue(),
		logger:  g.logger,
		metrics: g.metrics,
	}
}

// AppendEvent enqueues e for the next Update.
func (u *Updater) AppendEvent(e source.Event) {
	u.queue.Enqueue(e)
}

// Pending returns the number of queued events.
func (u *Updater) Pending() int {
	return u.queue.Len()
}

// Issue returns the most recent error recorded by Update.
func (u *Updater) Issue() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.issue
}

// Update drains the queue.
//
// It fails fast with OWNER_IS_DELETED when the owner is gone and with
// EVENT_QUEUE_IS_EMPTY when nothing is pending. A rejected event does not
// stop the drain; all rejections are joined into the returned error and the
// last one is kept as the updater's issue. If an event removes the owner,
// the events queued behind it are dropped.
//
// The AfterCapture hook runs after the owner and queue checks, before the
// first event is applied.
func (u *Updater) Update(ctx context.Context, opts ...protocol.Option) error {
	hooks := protocol.Collect(opts...)

	u.drain.Lock()
	defer u.drain.Unlock()

	if !u.alive() {
		return u.fail(newError(CodeOwnerIsDeleted, u.kind, u.owner))
	}
	if u.queue.Len() == 0 {
		return u.fail(newError(CodeEventQueueIsEmpty, u.kind, u.owner))
	}

	hooks.RunAfterCapture(ctx)

	var errs []error
	for {
		e, ok := u.queue.TryDequeue()
		if !ok {
			break
		}

		if !u.alive() {
			dropped := u.queue.Clear()
			err := newError(CodeOwnerIsDeleted, u.kind, u.owner)
			u.logger.Warn("updater owner deleted mid-drain",
				"kind", u.kind,
				"id", u.owner,
				"event", e.String(),
				"dropped", dropped+1,
			)
			u.metrics.event(u.kind, e.Type, err)
			errs = append(errs, err)
			break
		}

		err := classify(u.kind, u.owner, u.apply(ctx, e))
		u.metrics.event(u.kind, e.Type, err)
		if err != nil {
			u.logger.Warn("event rejected",
				"kind", u.kind,
				"id", u.owner,
				"target", e.Diff.Target,
				"event", e.String(),
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		u.logger.Debug("event applied",
			"kind", u.kind,
			"id", u.owner,
			"target", e.Diff.Target,
			"event", e.String(),
		)
	}

	if len(errs) == 0 {
		return nil
	}
	u.mu.Lock()
	u.issue = errs[len(errs)-1]
	u.mu.Unlock()
	return errors.Join(errs...)
}

func (u *Updater) fail(err error) error {
	u.mu.Lock()
	u.issue = err
	u.mu.Unlock()
	return err
}
