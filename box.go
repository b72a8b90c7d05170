// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// box is a heap cell wrapping a value of type T plus a monotonically
// mutated atomic reference count. refs is the only synchronized field; the
// value itself is shared-read except for whatever the engine's release
// callback does to it once refs hits zero.
type box[T any] struct {
	refs  atomix.Int64
	value T
}

// newBox allocates a box with refs = 1.
func newBox[T any](value T) *box[T] {
	b := &box[T]{value: value}
	b.refs.StoreRelaxed(1)
	return b
}

// addRefs adds n to refs and returns the value refs held before the add.
func (b *box[T]) addRefs(n int64) int64 {
	return b.refs.AddAcqRel(n) - n
}

// releaseRefs subtracts n from refs and returns the value refs held before
// the subtraction. Release ordering on the decrement and acquire ordering
// observed by whichever caller sees the count reach zero are both
// satisfied by atomix.Int64's AcqRel add.
func (b *box[T]) releaseRefs(n int64) int64 {
	return b.refs.AddAcqRel(-n) + n
}

// useCount is an observational, possibly-stale read of refs.
func (b *box[T]) useCount() int64 {
	return b.refs.LoadAcquire()
}

// releaser is implemented by a value type whose own fields hold further
// handles into this package — typically an AtomicPtr[T] naming the same T,
// as in a linked node's next pointer — that must be released before the
// box zeroes its value. Go's garbage collector reclaims the box struct's
// memory on its own once unreachable, but it has no notion of the manual
// refcount this package keeps on whatever that nested AtomicPtr still
// points at; without this hook that count would never reach zero for a
// chain of boxes each owning the next.
//
// A releaser cascading into a nested AtomicPtr field should call its
// Retire method, not Release: Release blocks until its own forced
// reconciliation pass completes, which would recurse one Go stack frame
// per link of a long chain when called from inside a destructor that a
// RetireAndFlush loop is already running.
type releaser interface {
	Release()
}

// destruct is called once refs has been observed to drop to zero. It
// first runs the value's own release hook, if any (cascading into nested
// handles), then drops whatever T holds so the garbage collector can
// reclaim transitively referenced objects as soon as possible, rather
// than waiting for the box struct itself to become unreachable.
func (b *box[T]) destruct() {
	if r, ok := any(&b.value).(releaser); ok {
		r.Release()
	}
	var zero T
	b.value = zero
}

func (b *box[T]) ptr() unsafe.Pointer {
	return unsafe.Pointer(b)
}

func boxFromPtr[T any](p unsafe.Pointer) *box[T] {
	return (*box[T])(p)
}
