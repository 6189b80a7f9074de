package testutil

import (
	"context"
	"sync"
)

// Gate is a one-shot rendezvous for operation hooks. The goroutine running
// the hook signals that it has arrived and then blocks until the test
// calls Release, which lets a test interleave another action at an exact
// point of an operation.
//
//	gate := testutil.NewGate()
//	go func() { done <- state.PushName(ctx, protocol.AfterCapture(gate.Hook)) }()
//	gate.Wait()
//	// ... remove the state ...
//	gate.Release()
type Gate struct {
	reached  chan struct{}
	released chan struct{}
	once     sync.Once
	release  sync.Once
}

func NewGate() *Gate {
	return &Gate{
		reached:  make(chan struct{}),
		released: make(chan struct{}),
	}
}

// Hook blocks until Release or until ctx is done. Only the first call
// signals arrival; later calls pass straight through once released.
func (g *Gate) Hook(ctx context.Context) {
	g.once.Do(func() { close(g.reached) })
	select {
	case <-g.released:
	case <-ctx.Done():
	}
}

// Wait blocks until a goroutine has reached the hook.
func (g *Gate) Wait() {
	<-g.reached
}

// Reached reports whether the hook has been called.
func (g *Gate) Reached() bool {
	select {
	case <-g.reached:
		return true
	default:
		return false
	}
}

// Release unblocks the hook. Safe to call more than once.
func (g *Gate) Release() {
	g.release.Do(func() { close(g.released) })
}

// Do returns a hook that runs f in the operation's goroutine.
func Do(f func()) func(context.Context) {
	return func(context.Context) { f() }
}
