// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package parlay

// RaceEnabled is true when the race detector is active. Tests use it to
// scale down the heaviest stress cases' iteration counts: the detector's
// own instrumentation overhead turns a 100,000-link or 100,000-goroutine
// run into a multi-minute one, which is a cost concern, not a correctness
// one.
const RaceEnabled = true
