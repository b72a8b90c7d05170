// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import (
	"unsafe"

	"github.com/yunshuwu/parlaylib/internal/reclaim"
)

// SnapshotPtr is a borrowed, non-count-holding view protected by a
// reclamation-engine announcement slot rather than a refcount unit. The
// zero value is a null snapshot.
//
// SnapshotPtr is not copyable (there is no Clone method): taking another
// reference to the same box either means acquiring a fresh slot via
// AtomicPtr.GetSnapshot, or converting to an owning RcPtr via
// AtomicPtr.Load.
type SnapshotPtr[T any] struct {
	b    *box[T]
	slot *reclaim.SnapshotSlot
}

// IsNil reports whether s is the null snapshot.
func (s SnapshotPtr[T]) IsNil() bool {
	return s.b == nil
}

// Get returns the address of the wrapped value. Undefined on a null
// snapshot, see RcPtr.Get.
func (s SnapshotPtr[T]) Get() *T {
	assertf(s.b != nil, "parlay: Get called on a null SnapshotPtr")
	if s.b == nil {
		return nil
	}
	return &s.b.value
}

// Release destroys the snapshot: if the slot still announces this exact
// pointer, the slot is simply cleared (no count change).
// Otherwise the slot has already been kicked to a count-holding state, and
// Release performs the matching decrement now. Releasing a null snapshot
// is a no-op.
func (s *SnapshotPtr[T]) Release() {
	b, slot := s.b, s.slot
	s.b, s.slot = nil, nil
	if b == nil {
		return
	}
	if slot != nil && slot.Release(b.ptr()) {
		return
	}
	if b.releaseRefs(1) == 1 {
		b.destruct()
	}
}

func (s SnapshotPtr[T]) rcIdentity() unsafe.Pointer {
	if s.b == nil {
		return nil
	}
	return s.b.ptr()
}

func newSnapshot[T any](b *box[T], slot *reclaim.SnapshotSlot) SnapshotPtr[T] {
	return SnapshotPtr[T]{b: b, slot: slot}
}
