// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/mtask"
)

// nestedBundle enqueues, from a single parent task, a bundle of n tasks that
// each enqueue one nested task and wait for it. Enqueueing from the parent
// puts every bundle task in the queue ahead of every nested task. It
// returns the parent's counter and a pointer that receives the bundle's.
func nestedBundle(m *mtask.Multitasker, n int, finished *atomic.Int64) (*mtask.Counter, *atomic.Pointer[mtask.Counter]) {
	var bundle atomic.Pointer[mtask.Counter]
	parent := m.Enqueue(func(c *mtask.Context, _ any, _, _ uint32) {
		bundle.Store(c.Multitasker().EnqueueBundle(func(c *mtask.Context, _ any, _, _ uint32) {
			nested := c.Multitasker().Enqueue(func(*mtask.Context, any, uint32, uint32) {}, nil)
			c.Wait(nested)
			finished.Add(1)
		}, make([]any, n)))
	}, nil)
	return parent, &bundle
}

// TestNestedWaitsEnoughFibers: with a single worker, eight parked bundle
// tasks plus the worker's own fiber need nine fibers in total.
func TestNestedWaitsEnoughFibers(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 1, 8)
	var finished atomic.Int64
	parent, bundle := nestedBundle(m, 8, &finished)
	await(t, m, parent)
	await(t, m, bundle.Load())
	if got := finished.Load(); got != 8 {
		t.Fatalf("finished: got %d, want 8", got)
	}
}

// TestNestedWaitsOneFiberShort: one fiber fewer than TestNestedWaitsEnoughFibers
// and the bundle never finishes.
func TestNestedWaitsOneFiberShort(t *testing.T) {
	skipRace(t)
	m, err := mtask.New(1, 7, nil)
	if err != nil {
		t.Fatal(err)
	}
	var finished atomic.Int64
	parent, bundle := nestedBundle(m, 8, &finished)
	await(t, m, parent)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := m.Await(ctx, bundle.Load(), 0); err != context.DeadlineExceeded {
		t.Fatalf("Await: got %v, want deadline exceeded", err)
	}
	if got := finished.Load(); got != 0 {
		t.Fatalf("finished: got %d, want 0", got)
	}
	if got := m.Parked(); got != 7 {
		t.Fatalf("parked: got %d, want 7", got)
	}

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Shutdown hung on a stalled scheduler")
	}
}

func TestNestedWaitsFourWorkers(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 4, 16)
	var finished atomic.Int64
	parent, bundle := nestedBundle(m, 8, &finished)
	await(t, m, parent)
	await(t, m, bundle.Load())
	if got := finished.Load(); got != 8 {
		t.Fatalf("finished: got %d, want 8", got)
	}
}

// TestNestedWaitsPoolExhausted documents the capacity hazard: too few
// fibers for the parked tasks stalls the run. Shutdown still returns.
func TestNestedWaitsPoolExhausted(t *testing.T) {
	skipRace(t)
	var logs logBuffer
	m, err := mtask.New(1, 1, nil,
		mtask.WithName("stall"),
		mtask.WithLogger(newTestLogger(&logs)),
		mtask.WithStallWarning(20*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	var finished atomic.Int64
	parent, bundle := nestedBundle(m, 8, &finished)
	await(t, m, parent)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := m.Await(ctx, bundle.Load(), 0); err != context.DeadlineExceeded {
		t.Fatalf("Await: got %v, want deadline exceeded", err)
	}
	if got := finished.Load(); got != 0 {
		t.Fatalf("finished: got %d, want 0", got)
	}
	if m.IdleFibers() != 0 {
		t.Fatalf("idle fibers: got %d, want 0", m.IdleFibers())
	}
	deadline := time.Now().Add(testTimeout)
	for !strings.Contains(logs.String(), "fiber pool exhausted") {
		if time.Now().After(deadline) {
			t.Fatalf("missing stall warning in logs:\n%s", logs.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Shutdown hung on a stalled scheduler")
	}
}
