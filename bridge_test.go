// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask_test

import (
	"context"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/mtask"
)

func TestEnqueueEffBundleIndices(t *testing.T) {
	skipRace(t)
	const n = 16
	m := newScheduler(t, 4, 2)
	var seen [n]atomic.Int32
	c := m.EnqueueEffBundle(n, func(index, size uint32) kont.Eff[struct{}] {
		if size != n {
			t.Errorf("size: got %d, want %d", size, n)
		}
		return mtask.Defer(func() kont.Eff[struct{}] {
			seen[index].Add(1)
			return kont.Pure(struct{}{})
		})
	})
	await(t, m, c)
	for i := range seen {
		if seen[i].Load() != 1 {
			t.Fatalf("index %d ran %d times", i, seen[i].Load())
		}
	}
}

func TestEnqueueEffBundleEmpty(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 1, 1)
	c := m.EnqueueEffBundle(0, func(_, _ uint32) kont.Eff[struct{}] {
		t.Error("build called for an empty bundle")
		return kont.Pure(struct{}{})
	})
	if !c.Done() {
		t.Fatalf("empty bundle counter: got %d", c.Load())
	}
}

// TestMixedTasksAndContinuations: fiber tasks wait on continuation
// counters and continuations await fiber-task counters.
func TestMixedTasksAndContinuations(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 4, 16)
	var leaves atomic.Int64
	leaf := func(*mtask.Context, any, uint32, uint32) { leaves.Add(1) }
	c := m.EnqueueBundle(func(c *mtask.Context, _ any, _, _ uint32) {
		cont := c.Multitasker().EnqueueEff(mtask.Defer(func() kont.Eff[struct{}] {
			return mtask.AwaitDone(m.EnqueueBundle(leaf, make([]any, 4)))
		}))
		c.Wait(cont)
	}, make([]any, 8))
	await(t, m, c)
	if got := leaves.Load(); got != 32 {
		t.Fatalf("leaves: got %d, want 32", got)
	}
}

func TestRunEff(t *testing.T) {
	skipRace(t)
	m := newScheduler(t, 2, 2)
	var ran atomic.Bool
	err := m.RunEff(context.Background(), mtask.Defer(func() kont.Eff[struct{}] {
		ran.Store(true)
		return kont.Pure(struct{}{})
	}))
	if err != nil || !ran.Load() {
		t.Fatalf("RunEff: err=%v ran=%v", err, ran.Load())
	}
}
