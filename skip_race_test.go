// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package mtask_test

import "testing"

// skipRace skips tests that drive the lock-free rings under load.
// The race detector tracks per-variable happens-before and cannot
// see the rings' cross-variable memory ordering (store-release on the
// slot, load-acquire on the sequence), producing false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: lfq rings use cross-variable memory ordering")
}
