// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package parlay provides a lock-free atomic reference-counted pointer and
// its safe-memory-reclamation substrate.
//
// It offers a concurrently accessible, atomically updatable handle to a
// shared, reference-counted heap object, a way to read temporarily-valid
// snapshots of that object without bumping the reference count on every
// read, and a deferred-destruction scheme that guarantees no worker ever
// dereferences a pointer whose count has already dropped to zero.
//
// # Quick Start
//
//	cell := parlay.NewAtomicPtr[Config]()
//	cell.Store(parlay.New(Config{Timeout: time.Second}))
//
//	// A reader that needs the value to outlive its own critical section:
//	h := cell.Load()
//	defer h.Release()
//	use(h.Get())
//
//	// A reader that only needs the value for the duration of one call:
//	s := cell.GetSnapshot()
//	defer s.Release()
//	use(s.Get())
//
// # Handle kinds
//
// RcPtr is an owning handle: it holds one unit of the referent's
// refcount and keeps it alive until Release. SnapshotPtr is a borrowed
// handle backed by a per-worker announcement slot instead of a refcount
// unit; it is cheaper to acquire but must not outlive the call that
// obtained it. AtomicPtr is the atomically updatable cell both kinds are
// read from and written to.
//
// # Compare-and-swap
//
// CompareAndSwap leaves desired valid for the caller to keep using (or
// release) regardless of outcome; it accepts either an RcPtr or a
// SnapshotPtr as the expected value:
//
//	cur := cell.GetSnapshot()
//	defer cur.Release()
//	next := parlay.New(newValue)
//	defer next.Release()
//	if cell.CompareAndSwap(cur, next) {
//	    // cur and next are both still valid here; cell now also points at next
//	}
//
// # Stack
//
// Stack is a lock-free linked stack built on AtomicPtr and RcPtr,
// supplying push_front/pop_front/find over a chain of cells rather than
// a single one.
//
// # Debug assertions
//
// Programmer contract violations (Get on a null handle, and similar) are
// not reported errors: they panic under the parlay_debug build tag and
// are no-ops otherwise, the usual Go convention for assertions that must
// not cost anything in a production build.
package parlay
