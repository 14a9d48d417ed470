// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scenario provides canned workloads for the mtask command.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"code.hybscloud.com/mtask"
)

// Result summarises one scenario run.
type Result struct {
	Scenario string
	Tasks    int64
	Elapsed  time.Duration
	// Complete is false when the scenario stopped the scheduler before
	// its work finished.
	Complete bool
}

// Scenario is a named workload run against a started Multitasker.
type Scenario struct {
	Name        string
	Description string
	run         func(ctx context.Context, m *mtask.Multitasker) (int64, bool, error)
}

// Run executes the workload and measures it.
func (s Scenario) Run(ctx context.Context, m *mtask.Multitasker) (Result, error) {
	start := time.Now()
	tasks, complete, err := s.run(ctx, m)
	return Result{
		Scenario: s.Name,
		Tasks:    tasks,
		Elapsed:  time.Since(start),
		Complete: complete,
	}, err
}

var registry = map[string]Scenario{
	"sum": {
		Name:        "sum",
		Description: "1000 independent tasks each add one to a shared total",
		run:         runSum,
	},
	"nested": {
		Name:        "nested",
		Description: "a bundle of 8 tasks, each enqueueing one nested task and waiting for it",
		run:         runNested,
	},
	"stop": {
		Name:        "stop",
		Description: "stop the scheduler while 10000 tasks are still queued",
		run:         runStop,
	},
	"cont": {
		Name:        "cont",
		Description: "a continuation task running 10 waves of 64 tasks one after another",
		run:         runCont,
	},
	"expr": {
		Name:        "expr",
		Description: "the cont workload driven by an Expr-world job",
		run:         runExpr,
	},
}

// Lookup returns the scenario with the given name.
func Lookup(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// All returns every scenario ordered by name.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func runSum(ctx context.Context, m *mtask.Multitasker) (int64, bool, error) {
	const n = 1000
	var total atomic.Int64
	c := m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {
		total.Add(1)
	}, make([]any, n))
	if err := m.Await(ctx, c, 0); err != nil {
		return total.Load(), false, err
	}
	if got := total.Load(); got != n {
		return got, false, fmt.Errorf("sum: total %d, want %d", got, n)
	}
	return n, true, nil
}

func runNested(ctx context.Context, m *mtask.Multitasker) (int64, bool, error) {
	const n = 8
	var finished atomic.Int64
	c := m.EnqueueBundle(func(c *mtask.Context, _ any, _, _ uint32) {
		nested := c.Multitasker().Enqueue(func(*mtask.Context, any, uint32, uint32) {
			finished.Add(1)
		}, nil)
		c.Wait(nested)
		finished.Add(1)
	}, make([]any, n))
	if err := m.Await(ctx, c, 0); err != nil {
		return finished.Load(), false, fmt.Errorf("nested: %w (fiber pool size %d may be too small)", err, m.FiberPoolSize())
	}
	return finished.Load(), true, nil
}

func runStop(_ context.Context, m *mtask.Multitasker) (int64, bool, error) {
	const n = 10000
	var ran atomic.Int64
	m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {
		time.Sleep(10 * time.Microsecond)
		ran.Add(1)
	}, make([]any, n))
	m.Stop()
	m.Join()
	return ran.Load(), ran.Load() == n, nil
}

const waves, width = 10, 64

// waveStages returns stages that each enqueue width tasks adding one to total.
func waveStages(m *mtask.Multitasker, total *atomic.Int64) []func() *mtask.Counter {
	stages := make([]func() *mtask.Counter, waves)
	for i := range stages {
		stages[i] = func() *mtask.Counter {
			return m.EnqueueBundle(func(*mtask.Context, any, uint32, uint32) {
				total.Add(1)
			}, make([]any, width))
		}
	}
	return stages
}

func runCont(ctx context.Context, m *mtask.Multitasker) (int64, bool, error) {
	var total atomic.Int64
	if err := m.RunEff(ctx, mtask.Stages(waveStages(m, &total)...)); err != nil {
		return total.Load(), false, err
	}
	return total.Load(), total.Load() == waves*width, nil
}

func runExpr(ctx context.Context, m *mtask.Multitasker) (int64, bool, error) {
	var total atomic.Int64
	c := m.EnqueueExpr(mtask.ExprStages(waveStages(m, &total)...))
	if err := m.Await(ctx, c, 0); err != nil {
		return total.Load(), false, err
	}
	return total.Load(), total.Load() == waves*width, nil
}
