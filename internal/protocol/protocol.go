// Package protocol runs state-changing entity operations as three phases:
//
//  1. Capture: under the subject's lock, confirm the subject is alive,
//     validate input and snapshot what the operation needs.
//  2. Compute: without any lock, talk to the remote side. This is the only
//     phase expected to race with deletion.
//  3. Mutate: under the lock again, confirm the subject is still alive and
//     apply the local change, then fire the subject's single-shot callback.
//
// Liveness is rechecked at every resumption point. An operation whose
// subject disappears reports the subject's "is deleted" error and leaves
// no local mutation behind. There is no other cancellation mechanism.
//
// Hooks run between phases. Production code passes none; tests pass hooks
// that delete the subject or rendezvous with another goroutine to force a
// specific interleaving.
package protocol

import "context"

// Subject is the entity an operation runs against.
type Subject interface {
	Lock()
	Unlock()

	// Alive reports whether the subject is still registered.
	Alive() bool

	// Deleted returns the subject's "is deleted" error.
	Deleted() error

	// SetIssue records err as the subject's issue and returns the error
	// that should be reported to the caller. Called with the lock held.
	SetIssue(err error) error

	// TakeCallback returns and clears the pending completion callback.
	// Called with the lock held.
	TakeCallback() func()
}

// Op describes one operation. Every field is optional.
type Op[S any] struct {
	// Capture runs with the subject locked and returns the snapshot handed
	// to the later phases.
	Capture func() (S, error)

	// Compute runs unlocked.
	Compute func(ctx context.Context, s S) error

	// Mutate runs with the subject locked, after a successful liveness check.
	Mutate func(s S) error

	// Discard runs unlocked when the subject vanished after Compute
	// succeeded, to release anything Compute acquired on its behalf.
	Discard func(ctx context.Context, s S)

	// Terminal marks an operation that ends the subject's life. The subject
	// being gone after Compute is then the expected outcome, not a failure:
	// Mutate runs unlocked and without the liveness check, and must be
	// idempotent.
	Terminal bool
}

// Run executes op against sub.
func Run[S any](ctx context.Context, sub Subject, op Op[S], opts ...Option) error {
	hooks := Collect(opts...)

	sub.Lock()
	if !sub.Alive() {
		err := sub.SetIssue(sub.Deleted())
		sub.Unlock()
		return err
	}
	var snapshot S
	if op.Capture != nil {
		var err error
		snapshot, err = op.Capture()
		if err != nil {
			err = sub.SetIssue(err)
			sub.Unlock()
			return err
		}
	}
	sub.Unlock()

	hooks.afterCapture(ctx)

	if !sub.Alive() {
		return fail(sub, sub.Deleted())
	}
	if err := ctx.Err(); err != nil {
		return fail(sub, err)
	}
	if op.Compute != nil {
		if err := op.Compute(ctx, snapshot); err != nil {
			return fail(sub, err)
		}
	}

	hooks.afterCompute(ctx)

	if op.Terminal {
		if op.Mutate != nil {
			if err := op.Mutate(snapshot); err != nil {
				return fail(sub, err)
			}
		}
		sub.Lock()
		callback := sub.TakeCallback()
		sub.Unlock()
		if callback != nil {
			callback()
		}
		return nil
	}

	sub.Lock()
	if !sub.Alive() {
		err := sub.SetIssue(sub.Deleted())
		sub.Unlock()
		if op.Discard != nil {
			op.Discard(ctx, snapshot)
		}
		return err
	}
	if op.Mutate != nil {
		if err := op.Mutate(snapshot); err != nil {
			err = sub.SetIssue(err)
			sub.Unlock()
			return err
		}
	}
	callback := sub.TakeCallback()
	sub.Unlock()

	if callback != nil {
		callback()
	}
	return nil
}

func fail(sub Subject, err error) error {
	sub.Lock()
	defer sub.Unlock()
	return sub.SetIssue(err)
}
