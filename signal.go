// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// wakeSignal wakes every idle worker (and external Await callers) at once.
// A sleeper arms the signal, re-checks its condition, then waits on the
// returned channel with a bounded timeout; broadcast closes the channel
// and installs a fresh one. A broadcast racing with arm is bounded by the
// sleeper's timeout.
type wakeSignal struct {
	mu       sync.Mutex
	ch       chan struct{}
	sleepers atomix.Int64
}

func newWakeSignal() *wakeSignal {
	return &wakeSignal{ch: make(chan struct{})}
}

// arm registers a sleeper and returns the channel closed by the next
// broadcast. Every arm must be paired with disarm.
func (s *wakeSignal) arm() <-chan struct{} {
	s.mu.Lock()
	s.sleepers.Add(1)
	ch := s.ch
	s.mu.Unlock()
	return ch
}

func (s *wakeSignal) disarm() {
	s.sleepers.Add(-1)
}

// broadcast wakes all armed sleepers. It is a no-op when nobody sleeps.
func (s *wakeSignal) broadcast() {
	if s.sleepers.Load() == 0 {
		return
	}
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}
