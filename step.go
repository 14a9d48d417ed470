// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import (
	"fmt"

	"code.hybscloud.com/kont"
)

// contTask is a continuation task in flight. While suspended on Await it
// lives in the registry as a suspension value and holds no fiber.
type contTask struct {
	susp    *kont.Suspension[struct{}]
	counter *Counter
}

// startCont steps a continuation task to its first effect and dispatches it.
func (m *Multitasker) startCont(w *worker, t task) {
	ct := &contTask{counter: t.counter}
	job := t.job
	if v, panicked := m.protect(func() {
		if t.reify {
			job = kont.Reify(t.eff)
		}
		_, ct.susp = kont.StepExpr(job)
	}); panicked {
		m.recovered(w, v)
		ct.susp = nil
	}
	m.advance(w, ct)
}

// resumeCont continues a continuation task taken from the registry.
func (m *Multitasker) resumeCont(w *worker, wt waitingTask) {
	m.metrics.RecordResume(m.name, wt.parkedOn != w.id)
	m.step(w, wt.cont)
	m.advance(w, wt.cont)
}

// step resumes the pending Await of ct. A panic under PanicRecover ends the
// continuation.
func (m *Multitasker) step(w *worker, ct *contTask) {
	susp := ct.susp
	if v, panicked := m.protect(func() { _, ct.susp = susp.Resume(struct{}{}) }); panicked {
		m.recovered(w, v)
		ct.susp = nil
	}
}

// advance drives ct on worker w: satisfied Awaits resume inline, the first
// unsatisfied one parks ct in the registry. A completed continuation counts
// as a finished task.
func (m *Multitasker) advance(w *worker, ct *contTask) {
	for ct.susp != nil {
		op, ok := ct.susp.Op().(Await)
		if !ok {
			panic(fmt.Sprintf("mtask: unhandled effect %T in continuation task", ct.susp.Op()))
		}
		if !op.satisfied() {
			m.waiting.add(waitingTask{
				cont:     ct,
				counter:  op.Counter,
				target:   op.Target,
				affinity: op.affinity(w),
				parkedOn: w.id,
			})
			m.metrics.RecordParked(m.name, m.waiting.len())
			return
		}
		m.step(w, ct)
	}
	m.finish(ct.counter)
}
