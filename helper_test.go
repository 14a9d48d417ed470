// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/mtask"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// testTimeout bounds every wait in this package. Scheduler tests that hang
// fail instead.
const testTimeout = 10 * time.Second

// newScheduler starts a scheduler and shuts it down when the test ends.
func newScheduler(tb testing.TB, workers, pool int, opts ...mtask.Option) *mtask.Multitasker {
	tb.Helper()
	m, err := mtask.New(workers, pool, nil, opts...)
	if err != nil {
		tb.Fatalf("New(%d, %d): %v", workers, pool, err)
	}
	tb.Cleanup(m.Shutdown)
	return m
}

// await waits for c to reach zero from the test goroutine.
func await(tb testing.TB, m *mtask.Multitasker, c *mtask.Counter) {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if err := m.Await(ctx, c, 0); err != nil {
		tb.Fatalf("Await: %v (counter=%d, parked=%d)", err, c.Load(), m.Parked())
	}
}

// gate blocks the worker running it until released. Tests use it to hold
// a single worker while they set up the queue.
type gate struct {
	ch chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

func (g *gate) task(*mtask.Context, any, uint32, uint32) {
	select {
	case <-g.ch:
	case <-time.After(testTimeout):
	}
}

func (g *gate) open() {
	close(g.ch)
}

// recordingMetrics is an mtask.Metrics that counts observations.
type recordingMetrics struct {
	tasks    atomic.Int64
	panics   atomic.Int64
	resumes  atomic.Int64
	migrated atomic.Int64

	mu        sync.Mutex
	panicVals []any
}

func (r *recordingMetrics) RecordTaskDuration(string, time.Duration) {
	r.tasks.Add(1)
}

func (r *recordingMetrics) RecordTaskPanic(_ string, _ uint32, v any) {
	r.panics.Add(1)
	r.mu.Lock()
	r.panicVals = append(r.panicVals, v)
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordResume(_ string, migrated bool) {
	r.resumes.Add(1)
	if migrated {
		r.migrated.Add(1)
	}
}

func (r *recordingMetrics) RecordParked(string, int)     {}
func (r *recordingMetrics) RecordIdleFibers(string, int) {}

// logBuffer is an io.Writer safe for use by concurrent workers.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestLogger returns a debug-level JSON logger writing to buf.
func newTestLogger(buf *logBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}
