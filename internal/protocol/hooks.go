package protocol

import "context"

// Hook is a suspension point injected between two phases.
type Hook func(ctx context.Context)

// Hooks holds the hooks for one call. The zero value runs nothing.
type Hooks struct {
	capture Hook
	compute Hook
}

// Option configures the hooks of a single call.
type Option func(*Hooks)

// AfterCapture runs h after Capture, before the pre-Compute liveness check.
func AfterCapture(h Hook) Option {
	return func(hs *Hooks) {
		hs.capture = h
	}
}

// AfterCompute runs h after Compute, before the pre-Mutate liveness check.
func AfterCompute(h Hook) Option {
	return func(hs *Hooks) {
		hs.compute = h
	}
}

// Collect applies opts to a fresh Hooks.
func Collect(opts ...Option) Hooks {
	var hs Hooks
	for _, opt := range opts {
		if opt != nil {
			opt(&hs)
		}
	}
	return hs
}

func (hs Hooks) afterCapture(ctx context.Context) {
	if hs.capture != nil {
		hs.capture(ctx)
	}
}

func (hs Hooks) afterCompute(ctx context.Context) {
	if hs.compute != nil {
		hs.compute(ctx)
	}
}

// RunAfterCapture runs the capture hook, if any. Exported for runners
// outside this package that share the same seam, such as updaters.
func (hs Hooks) RunAfterCapture(ctx context.Context) {
	hs.afterCapture(ctx)
}
