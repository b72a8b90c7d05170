// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import (
	"sync/atomic"
	"unsafe"
)

// handleOrSnapshot is implemented by RcPtr[T] and SnapshotPtr[T] so
// CompareAndSwap can accept either an owning or a snapshot handle as the
// expected value.
type handleOrSnapshot[T any] interface {
	rcIdentity() unsafe.Pointer
}

// AtomicPtr is an atomic slot holding at most one reference to a box. It
// is not copyable and not movable — a single logical memory location —
// so all of its methods take a pointer receiver and it is always used
// via *AtomicPtr[T].
//
// The zero value is a valid empty cell and needs no constructor call: the
// reclamation engine it uses is looked up per T rather than carried as a
// field, see engine.go, so an AtomicPtr embedded as a plain struct field
// (e.g. a linked node's next pointer) works out of the box.
type AtomicPtr[T any] struct {
	cell atomic.Pointer[byte]
}

func (a *AtomicPtr[T]) incrRefs(p unsafe.Pointer) {
	boxFromPtr[T](p).addRefs(1)
}

// Retire hands the cell's current pointer to the shared engine's deferred
// queue without forcing a flush. A releaser cascading into a nested
// AtomicPtr field (see box.go) should call this, not Release: when called
// from inside a release that an enclosing RetireAndFlush pass already has
// reentrancy-guarded, it just enqueues and returns, leaving that enclosing
// pass's own loop (engine.go's RetireAndFlush already loops until a pass
// releases nothing further) to pick the entry up on its next iteration —
// keeping a long chain's teardown iterative regardless of which package
// defines the chain's element type.
func (a *AtomicPtr[T]) Retire() {
	old := a.cell.Swap(nil)
	if old != nil {
		sharedEngine[T]().Retire(unsafe.Pointer(old))
	}
}

// NewAtomicPtr returns a cell holding null.
func NewAtomicPtr[T any]() *AtomicPtr[T] {
	return &AtomicPtr[T]{}
}

// NewAtomicPtrFrom returns a cell that adopts h's refcount unit (no
// atomic op on refs).
func NewAtomicPtrFrom[T any](h RcPtr[T]) *AtomicPtr[T] {
	a := &AtomicPtr[T]{}
	b := h.take()
	if b != nil {
		a.cell.Store((*byte)(b.ptr()))
	}
	return a
}

// Load is the announcement-stabilized read: it returns an owning RcPtr
// with refs incremented by one.
func (a *AtomicPtr[T]) Load() RcPtr[T] {
	var result RcPtr[T]
	sharedEngine[T]().Acquire(&a.cell, func(p unsafe.Pointer) {
		b := boxFromPtr[T](p)
		b.addRefs(1)
		result = fromBox(b)
	})
	return result
}

// GetSnapshot is the snapshot-stabilized read: it returns a SnapshotPtr
// with no refcount change.
func (a *AtomicPtr[T]) GetSnapshot() SnapshotPtr[T] {
	p, slot, _ := sharedEngine[T]().ProtectSnapshot(&a.cell, a.incrRefs)
	if p == nil {
		return SnapshotPtr[T]{}
	}
	return newSnapshot(boxFromPtr[T](p), slot)
}

// Store atomically replaces the cell's contents with h's (adopting h's
// refcount unit, no atomic op on refs) and engine-retires whatever was
// previously stored.
func (a *AtomicPtr[T]) Store(h RcPtr[T]) {
	b := h.take()
	var newP unsafe.Pointer
	if b != nil {
		newP = b.ptr()
	}
	old := a.cell.Swap((*byte)(newP))
	if old != nil {
		sharedEngine[T]().Retire(unsafe.Pointer(old))
	}
}

// Exchange is the symmetric counterpart of Store: it returns the previous
// pointer as an owning RcPtr without touching refs.
func (a *AtomicPtr[T]) Exchange(h RcPtr[T]) RcPtr[T] {
	b := h.take()
	var newP unsafe.Pointer
	if b != nil {
		newP = b.ptr()
	}
	old := a.cell.Swap((*byte)(newP))
	if old == nil {
		return RcPtr[T]{}
	}
	return fromBox(boxFromPtr[T](unsafe.Pointer(old)))
}

// CompareAndSwap atomically replaces the cell's contents with desired's if
// the cell currently holds expected's identity, engine-retiring whatever
// was displaced on success. Equality is pointer identity over box
// addresses, not value equality. expected may be an RcPtr or a
// SnapshotPtr; desired is passed by value and remains valid for the
// caller to keep using (or release) regardless of outcome — CompareAndSwap
// always adds its own refcount unit to desired's box on success rather
// than consuming the caller's, so a move-style transfer is just Clone
// skipped: pass a handle the caller is about to Release anyway, and
// release it right after the call returns.
//
// desired is published in the calling worker's primary announcement slot
// before the CAS and kept announced across the CAS and the subsequent
// increment, closing the otherwise-possible race where a concurrent
// store through another cell holding the same box drives its count to
// zero between the CAS and the increment.
func (a *AtomicPtr[T]) CompareAndSwap(expected handleOrSnapshot[T], desired RcPtr[T]) bool {
	want := expected.rcIdentity()
	var desiredPtr unsafe.Pointer
	if !desired.IsNil() {
		desiredPtr = desired.b.ptr()
	}

	release := sharedEngine[T]().Reserve(desiredPtr)
	defer release()

	ok := a.cell.CompareAndSwap((*byte)(want), (*byte)(desiredPtr))
	if !ok {
		return false
	}
	if desiredPtr != nil {
		boxFromPtr[T](desiredPtr).addRefs(1)
	}
	if want != nil {
		sharedEngine[T]().Retire(want)
	}
	return true
}

// Swap atomically exchanges the cell's pointer with h's, preserving both
// refcounts. This is not thread-safe with respect to h: the caller must
// externally ensure no concurrent access to h while Swap runs.
func (a *AtomicPtr[T]) Swap(h *RcPtr[T]) {
	var hp unsafe.Pointer
	if h.b != nil {
		hp = h.b.ptr()
	}
	old := a.cell.Swap((*byte)(hp))
	if old == nil {
		h.b = nil
	} else {
		h.b = boxFromPtr[T](unsafe.Pointer(old))
	}
}

// Release destroys the cell: if non-null, its stored pointer is retired
// and the calling worker's own deferred queue is immediately forced
// through a reconciliation pass, so the decrement (and any cascading
// decrements it triggers, see box.go's releaser) completes before Release
// returns unless the pointer is still announced elsewhere. This still
// consults every worker's announcement slots — unlike Drain, it never
// forces a decrement past a live announcement, and it only reconciles the
// calling worker's own queue — so it is safe to call on one AtomicPtr[T]
// while an unrelated AtomicPtr[T] of the same T, sharing the same per-T
// engine, is concurrently mid-Load or mid-GetSnapshot.
func (a *AtomicPtr[T]) Release() {
	old := a.cell.Swap(nil)
	if old != nil {
		sharedEngine[T]().RetireAndFlush(unsafe.Pointer(old))
	}
}
