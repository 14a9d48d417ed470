// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fiber provides cooperative, stackful execution contexts on top of
// goroutines.
//
// A [Fiber] is a goroutine that only runs while it holds the baton. Control
// moves between fibers exclusively through [Fiber.Switch], which hands a
// value of type T to the destination and parks the caller until some other
// fiber switches back into it. Nothing preempts a running fiber: the Go
// runtime may still move the goroutine between OS threads, but at most one
// fiber of a switching group executes at any instant.
//
// # Operations
//
//   - Create: [New] allocates a goroutine (a private stack) parked until the
//     first switch into it.
//   - Convert: [Convert] turns the calling goroutine into a fiber, used to
//     bootstrap a scheduling loop on a freshly started worker.
//   - Switch: [Fiber.Switch] transfers control and a hand-off value.
//   - Delete: [Fiber.Delete] makes a parked fiber exit.
//
// The value passed through Switch replaces the thread-local scratch slots a
// native fiber implementation would need: it is written by exactly one
// fiber immediately before the switch and read by exactly one fiber, the
// resumed one, immediately after.
//
// There is no implicit "current fiber" accessor. Goroutines carry no
// addressable identity, so callers keep the fiber they are running in as an
// explicit value.
package fiber

import (
	"runtime"
	"sync"
)

// Fiber is a cooperative execution context exchanging hand-off values of
// type T on every switch.
type Fiber[T any] struct {
	id     Serial
	resume chan T
	dead   chan struct{}
	once   sync.Once
}

// New creates a fiber that runs entry the first time it is switched to.
// entry receives the fiber itself and the value passed by that first switch.
// When entry returns the fiber is dead and its goroutine exits.
func New[T any](entry func(f *Fiber[T], v T)) *Fiber[T] {
	f := newFiber[T]()
	go func() {
		v := f.park()
		defer f.Delete()
		entry(f, v)
	}()
	return f
}

// Convert returns a fiber representing the calling goroutine. The caller
// keeps running; the fiber becomes a valid switch target once the caller
// switches away from it.
func Convert[T any]() *Fiber[T] {
	return newFiber[T]()
}

func newFiber[T any]() *Fiber[T] {
	return &Fiber[T]{
		id:     nextSerial(),
		resume: make(chan T, 1),
		dead:   make(chan struct{}),
	}
}

// ID returns the serial assigned to the fiber at creation.
func (f *Fiber[T]) ID() Serial {
	return f.id
}

// Switch transfers control from f to to, handing over v. It must be called
// from the goroutine backing f. Switch returns when another fiber switches
// back into f, yielding the value that fiber handed over.
//
// If f is deleted while parked, its goroutine exits via runtime.Goexit and
// Switch never returns. Switching to a deleted fiber panics.
func (f *Fiber[T]) Switch(to *Fiber[T], v T) T {
	select {
	case <-to.dead:
		panic("fiber: switch to deleted fiber")
	default:
	}
	to.resume <- v
	return f.park()
}

// park blocks until f is resumed or deleted.
func (f *Fiber[T]) park() T {
	select {
	case v := <-f.resume:
		return v
	case <-f.dead:
		runtime.Goexit()
		panic("unreachable")
	}
}

// Delete marks f dead. A goroutine parked in f exits; a running fiber is
// unaffected until it next parks. Delete is idempotent.
func (f *Fiber[T]) Delete() {
	f.once.Do(func() { close(f.dead) })
}

// Deleted reports whether Delete has been called on f.
func (f *Fiber[T]) Deleted() bool {
	select {
	case <-f.dead:
		return true
	default:
		return false
	}
}
