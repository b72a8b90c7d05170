// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build parlay_debug

package parlay

import "fmt"

// DebugAssertions is true when the parlay_debug build tag is active.
const DebugAssertions = true

// assertf reports a programmer contract violation by panicking. It is a
// no-op outside of the parlay_debug build tag, see debug_off.go.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
