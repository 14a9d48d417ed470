// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
)

// defaultIdleWait bounds how long an idle worker sleeps before re-checking
// the registry and the task queue without being woken.
const defaultIdleWait = 4 * time.Millisecond

// PanicPolicy selects what happens when a task panics.
type PanicPolicy uint8

const (
	// PanicRecover recovers the panic, logs it, records it in Metrics and
	// still counts the task as finished. The worker keeps running.
	PanicRecover PanicPolicy = iota
	// PanicCrash lets the panic escape the worker, terminating the process.
	PanicCrash
)

// String returns the policy name.
func (p PanicPolicy) String() string {
	switch p {
	case PanicRecover:
		return "recover"
	case PanicCrash:
		return "crash"
	default:
		return fmt.Sprintf("PanicPolicy(%d)", uint8(p))
	}
}

// ParsePanicPolicy parses "recover" or "crash".
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch s {
	case "recover", "":
		return PanicRecover, nil
	case "crash":
		return PanicCrash, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPanicPolicy, s)
	}
}

type options struct {
	name          string
	logger        *logiface.Logger[logiface.Event]
	metrics       Metrics
	queueCapacity int
	idleWait      time.Duration
	stallWarning  time.Duration
	panicPolicy   PanicPolicy
}

// Option configures a Multitasker.
type Option func(*options)

func defaultOptions() options {
	return options{
		name:          "mtask-" + uuid.NewString()[:8],
		metrics:       noopMetrics{},
		queueCapacity: defaultQueueCapacity,
		idleWait:      defaultIdleWait,
		panicPolicy:   PanicRecover,
	}
}

func (o *options) validate() error {
	if o.queueCapacity < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueCapacity, o.queueCapacity)
	}
	if o.idleWait <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidIdleWait, o.idleWait)
	}
	if o.stallWarning < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidStallWarning, o.stallWarning)
	}
	if o.panicPolicy > PanicCrash {
		return fmt.Errorf("%w: %s", ErrInvalidPanicPolicy, o.panicPolicy)
	}
	return nil
}

// WithName sets the name attached to log events and metrics.
// The default is "mtask-" followed by a random suffix.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink. A nil sink disables metrics.
func WithMetrics(metrics Metrics) Option {
	return func(o *options) {
		if metrics == nil {
			metrics = noopMetrics{}
		}
		o.metrics = metrics
	}
}

// WithQueueCapacity sets the ring capacity of the lock-free task queue,
// rounded up to a power of two. Tasks beyond it spill to an overflow list.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.queueCapacity = n
	}
}

// WithIdleWait sets how long an idle worker sleeps between checks when it
// is not woken by an enqueue or a task completion.
func WithIdleWait(d time.Duration) Option {
	return func(o *options) {
		o.idleWait = d
	}
}

// WithStallWarning logs a warning when WaitFor has been blocked on an empty
// fiber pool for d. WaitFor keeps blocking; this is a diagnostic only.
// Zero disables the warning, which is the default.
func WithStallWarning(d time.Duration) Option {
	return func(o *options) {
		o.stallWarning = d
	}
}

// WithPanicPolicy sets the task panic policy. The default is PanicRecover.
func WithPanicPolicy(p PanicPolicy) Option {
	return func(o *options) {
		o.panicPolicy = p
	}
}
