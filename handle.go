// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import "unsafe"

// RcPtr is an owning handle: a value that contributes exactly one unit to
// its referent's refcount, or is null. The zero value is a null handle.
type RcPtr[T any] struct {
	b *box[T]
}

// New allocates a box holding value with refs = 1 and wraps it in an
// RcPtr.
func New[T any](value T) RcPtr[T] {
	return RcPtr[T]{b: newBox(value)}
}

// IsNil reports whether h is the null handle.
func (h RcPtr[T]) IsNil() bool {
	return h.b == nil
}

// Get returns the address of the wrapped value. Calling Get on a null
// handle is a programmer contract violation, not a reported error; debug
// builds assert instead of dereferencing nil, see debug.go.
func (h RcPtr[T]) Get() *T {
	assertf(h.b != nil, "parlay: Get called on a null RcPtr")
	if h.b == nil {
		return nil
	}
	return &h.b.value
}

// UseCount is an observational, possibly-stale read of the referent's
// refcount. It returns 0 for a null handle.
func (h RcPtr[T]) UseCount() int64 {
	if h.b == nil {
		return 0
	}
	return h.b.useCount()
}

// Equal compares box identity, not value equality: two handles to distinct
// boxes holding equal values are not Equal.
func (h RcPtr[T]) Equal(other RcPtr[T]) bool {
	return h.b == other.b
}

// Clone is the copy-construct/copy-assign operation: an atomic fetch-add
// on refs. Cloning a null handle yields another null handle and performs
// no atomic operation.
func (h RcPtr[T]) Clone() RcPtr[T] {
	if h.b == nil {
		return RcPtr[T]{}
	}
	h.b.addRefs(1)
	return RcPtr[T]{b: h.b}
}

// Release is the destroy operation: an atomic fetch-sub on refs, running
// the value's destructor and freeing the box if the decrement brought
// refs to zero. Destroying a null handle is a no-op, and Release leaves h
// null afterward so a second call is also a no-op.
func (h *RcPtr[T]) Release() {
	b := h.b
	h.b = nil
	if b == nil {
		return
	}
	if b.releaseRefs(1) == 1 {
		b.destruct()
	}
}

// take transfers ownership out of h without touching refs, leaving h null.
// This is the move-construct/move-assign operation.
func (h *RcPtr[T]) take() *box[T] {
	b := h.b
	h.b = nil
	return b
}

func fromBox[T any](b *box[T]) RcPtr[T] {
	return RcPtr[T]{b: b}
}

func (h RcPtr[T]) rcIdentity() unsafe.Pointer {
	if h.b == nil {
		return nil
	}
	return h.b.ptr()
}
