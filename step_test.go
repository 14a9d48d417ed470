// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask_test

import (
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/mtask"
)

// TestContinuationNoAwait: a job with no effects completes on first step.
func TestContinuationNoAwait(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 2, 2)
	var ran atomic.Bool
	c := m.EnqueueEff(mtask.Defer(func() kont.Eff[struct{}] {
		ran.Store(true)
		return kont.Pure(struct{}{})
	}))
	await(t, m, c)
	if !ran.Load() {
		t.Fatal("job did not run")
	}
}

// TestContinuationHoldsNoFiber: many continuations suspended at once on a
// scheduler whose pool is far smaller than their number.
func TestContinuationHoldsNoFiber(t *testing.T) {
	skipRace(t)
	const n = 64
	m := newScheduler(t, 2, 1)
	g := newGate()
	blocker := m.Enqueue(g.task, nil)

	var after atomic.Int64
	c := m.EnqueueEffBundle(n, func(_, _ uint32) kont.Eff[struct{}] {
		return mtask.AwaitBind(blocker, func() kont.Eff[struct{}] {
			after.Add(1)
			return kont.Pure(struct{}{})
		})
	})
	deadline := time.Now().Add(testTimeout)
	for m.Parked() < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := m.Parked(); got != n {
		t.Fatalf("parked: got %d, want %d", got, n)
	}
	if got := m.IdleFibers(); got != 1 {
		t.Fatalf("idle fibers: got %d, want 1", got)
	}
	if after.Load() != 0 {
		t.Fatal("continuation resumed before its counter reached zero")
	}

	g.open()
	await(t, m, c)
	if got := after.Load(); got != n {
		t.Fatalf("resumed: got %d, want %d", got, n)
	}
}

// TestContinuationSatisfiedAwaitInline: an Await that is already satisfied
// does not park.
func TestContinuationSatisfiedAwaitInline(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 1, 1)
	done := m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {}, nil)
	var steps atomic.Int64
	job := mtask.AwaitThen(done, 0, mtask.AwaitThen(done, 0, mtask.Defer(func() kont.Eff[struct{}] {
		steps.Add(1)
		return kont.Pure(struct{}{})
	})))
	await(t, m, m.EnqueueEff(job))
	if steps.Load() != 1 {
		t.Fatalf("steps: got %d, want 1", steps.Load())
	}
}

// TestContinuationPinned: a pinned Await resumes on the suspending worker.
func TestContinuationPinned(t *testing.T) {
	skipRace(t)
	metrics := &recordingMetrics{}
	m := newScheduler(t, 4, 4, mtask.WithMetrics(metrics))
	c := m.EnqueueEffBundle(16, func(_, _ uint32) kont.Eff[struct{}] {
		return mtask.Defer(func() kont.Eff[struct{}] {
			nested := m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {
				time.Sleep(50 * time.Microsecond)
			}, make([]any, 4))
			return mtask.AwaitPinnedThen(nested, 0, kont.Pure(struct{}{}))
		})
	})
	await(t, m, c)
	if metrics.resumes.Load() == 0 {
		t.Skip("every Await was satisfied inline")
	}
	if got := metrics.migrated.Load(); got != 0 {
		t.Fatalf("pinned continuation resumed on another worker %d times", got)
	}
}

// TestContinuationPanicRecovered: a panicking continuation still counts as
// finished and the worker survives.
func TestContinuationPanicRecovered(t *testing.T) {
	skipRace(t)
	metrics := &recordingMetrics{}
	m := newScheduler(t, 1, 1, mtask.WithMetrics(metrics))
	done := m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {}, nil)
	c := m.EnqueueEff(mtask.AwaitBind(done, func() kont.Eff[struct{}] {
		panic("boom")
	}))
	await(t, m, c)
	if metrics.panics.Load() != 1 {
		t.Fatalf("panics: got %d, want 1", metrics.panics.Load())
	}
	var ran atomic.Bool
	await(t, m, m.Enqueue(func(*mtask.Context, any, uint32, uint32) { ran.Store(true) }, nil))
	if !ran.Load() {
		t.Fatal("worker did not survive the panic")
	}
}

func TestEnqueueEffBundleInvalid(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 1, 1)
	defer func() {
		if r := recover(); r != mtask.ErrInvalidBundleArgument {
			t.Fatalf("recover: got %v, want %v", r, mtask.ErrInvalidBundleArgument)
		}
	}()
	m.EnqueueEffBundle(-1, func(_, _ uint32) kont.Eff[struct{}] { return kont.Pure(struct{}{}) })
}
