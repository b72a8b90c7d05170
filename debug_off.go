// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !parlay_debug

package parlay

// DebugAssertions is false when the parlay_debug build tag is not active.
const DebugAssertions = false

// assertf is a no-op in production builds: the conditions it guards are
// programmer contract violations, not reported errors, and are detected
// best-effort by debug-build assertions only.
func assertf(cond bool, format string, args ...any) {}
