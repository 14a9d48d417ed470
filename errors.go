// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mtask

import "errors"

// Configuration errors returned by New, wrapped with the offending value.
var (
	ErrInvalidWorkerCount    = errors.New("mtask: worker count must be at least 1")
	ErrInvalidFiberPoolSize  = errors.New("mtask: fiber pool size must be at least 1")
	ErrInvalidQueueCapacity  = errors.New("mtask: queue capacity must be at least 2")
	ErrInvalidIdleWait       = errors.New("mtask: idle wait must be positive")
	ErrInvalidStallWarning   = errors.New("mtask: stall warning must not be negative")
	ErrInvalidPanicPolicy    = errors.New("mtask: unknown panic policy")
	ErrInvalidBundleArgument = errors.New("mtask: bundle needs a non-negative size and a task function")
)

// ErrStopped is returned by Await when the scheduler stops before the
// counter reaches its target.
var ErrStopped = errors.New("mtask: scheduler stopped")
