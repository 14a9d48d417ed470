// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import "time"

// Metrics receives scheduler observations. Implementations must be safe for
// concurrent use; every method is called from worker fibers.
type Metrics interface {
	// RecordTaskDuration records the wall time of one task body, including
	// time spent parked in WaitFor.
	RecordTaskDuration(scheduler string, d time.Duration)
	// RecordTaskPanic records a recovered task panic.
	RecordTaskPanic(scheduler string, workerID uint32, v any)
	// RecordResume records a parked task resuming; migrated is true when it
	// resumed on a different worker than the one it parked on.
	RecordResume(scheduler string, migrated bool)
	// RecordParked records the number of parked tasks.
	RecordParked(scheduler string, n int)
	// RecordIdleFibers records the number of idle pool fibers.
	RecordIdleFibers(scheduler string, n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordTaskDuration(string, time.Duration) {}
func (noopMetrics) RecordTaskPanic(string, uint32, any)      {}
func (noopMetrics) RecordResume(string, bool)                {}
func (noopMetrics) RecordParked(string, int)                 {}
func (noopMetrics) RecordIdleFibers(string, int)             {}
