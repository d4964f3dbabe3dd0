package widget

import (
	"context"
	"sync/atomic"

	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/timing"
)

// Capabilities plug a concrete widget into a Reconciler.
type Capabilities[S any] struct {
	// FetchState reads the authoritative state. It runs off the loop and
	// must not touch widget state.
	FetchState func(ctx context.Context) (S, error)

	// ApplyState merges a fetched state into the local state. It returns
	// false if the state was not applied, for example during an edit.
	ApplyState func(state S) bool

	// RenderState reflects the local state on the surface after a state
	// has been applied.
	RenderState func()

	// OnFailure is called after a failed fetch has been logged.
	OnFailure func(err error)
}

// A Reconciler is the poll-fetch-apply-render cycle shared by every polling
// widget. Overlapping fetches are not ordered: the response applied last
// wins.
type Reconciler[S any] struct {
	base *Base
	caps Capabilities[S]

	applied  atomic.Uint64
	held     atomic.Uint64
	failures atomic.Uint64
}

func newReconciler[S any](base *Base, caps Capabilities[S]) *Reconciler[S] {
	if caps.FetchState == nil || caps.ApplyState == nil {
		panic("widget: reconciler needs FetchState and ApplyState")
	}

	return &Reconciler[S]{base: base, caps: caps}
}

// Start polls every interval, beginning now.
func (r *Reconciler[S]) Start(interval timing.VTimeInSec) {
	r.base.loop.Start(interval, r.Cycle)
}

// Cycle starts one fetch. The result is applied on the loop.
func (r *Reconciler[S]) Cycle() error {
	var (
		state S
		err   error
	)

	r.base.request(
		func(ctx context.Context) {
			state, err = r.caps.FetchState(ctx)
		},
		func() {
			if err != nil {
				r.fail(err)
				return
			}

			r.apply(state)
		},
	)

	return nil
}

func (r *Reconciler[S]) fail(err error) {
	r.failures.Add(1)

	if remote.IsTransient(err) {
		r.base.logf("fetch failed, keeping stale state: %v", err)
	} else {
		r.base.logf("fetch returned an unusable state: %v", err)
	}

	if r.caps.OnFailure != nil {
		r.caps.OnFailure(err)
	}
}

func (r *Reconciler[S]) apply(state S) {
	if !r.caps.ApplyState(state) {
		r.held.Add(1)
		return
	}

	r.applied.Add(1)

	if r.caps.RenderState != nil {
		r.caps.RenderState()
	}

	r.base.redraw()
}

// Applied returns how many fetched states were applied.
func (r *Reconciler[S]) Applied() uint64 {
	return r.applied.Load()
}

// Held returns how many fetched states were not applied.
func (r *Reconciler[S]) Held() uint64 {
	return r.held.Load()
}

// Failures returns how many fetches failed.
func (r *Reconciler[S]) Failures() uint64 {
	return r.failures.Load()
}
