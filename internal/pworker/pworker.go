// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pworker provides the stable worker-id / worker-count contract
// that internal/reclaim needs to size and address its per-worker slots.
//
// A "worker" here is a goroutine for the duration of one WorkerID-bracketed
// critical section, identified by the P it is currently running on. Pinning
// to a P is cheap and causes no cross-core traffic, but a goroutine can be
// rescheduled to a different P if it is preempted, so callers must treat
// the id as valid only until the next blocking call or the end of the
// critical section.
package pworker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

type _ unsafe.Pointer

//go:linkname procPin runtime.procPin
//go:nosplit
func procPin() int

//go:linkname procUnpin runtime.procUnpin
//go:nosplit
func procUnpin()

// maxWorkers is the highest worker id this package will ever hand out. It
// is sized once, generously, rather than tracking GOMAXPROCS changes: the
// reclamation engine's per-worker slot arrays are allocated at this width.
var maxWorkers = computeMaxWorkers()

func computeMaxWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	// Headroom for GOMAXPROCS growing at runtime (runtime.GOMAXPROCS(n) is a
	// legal call); procPin()'s returned index is always < runtime.NumCPU()
	// in practice, but we double it defensively rather than reallocating
	// slot arrays, which would require a stop-the-world-style protocol of
	// its own.
	return n * 2
}

// NumWorkers returns the fixed width W used to size per-worker structures.
// It is stable for the life of the process.
func NumWorkers() int {
	return maxWorkers
}

// WorkerID returns a stable index in [0, NumWorkers()) for the calling
// goroutine, valid until the matching call to Release. It must be paired
// with exactly one Release.
func WorkerID() int {
	id := procPin()
	if id >= maxWorkers {
		id %= maxWorkers
	}
	return id
}

// Release ends the critical section started by WorkerID.
func Release() {
	procUnpin()
}

// nextID is a process-wide monotonic counter used only to give each OS-thread-
// independent caller of Reserve a distinct, pool-recycled slot index when a
// caller needs an id that survives across a blocking call (procPin/procUnpin
// cannot bracket blocking code).
var (
	nextID     uint64
	threadPool = sync.Pool{
		New: func() any { return atomic.AddUint64(&nextID, 1) - 1 },
	}
)

// Reserve hands out a stable index in [0, NumWorkers()) for the calling
// goroutine that remains valid across blocking calls, unlike WorkerID. The
// returned release function must be called exactly once.
func Reserve() (id int, release func()) {
	v := threadPool.Get()
	n, _ := v.(uint64)
	return int(n % uint64(maxWorkers)), func() { threadPool.Put(v) }
}
