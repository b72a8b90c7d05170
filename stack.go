// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay

import "code.hybscloud.com/iox"

// node is one link of Stack's singly-linked list: a value plus an Atomic
// Cell pointing at the next node.
type node[T any] struct {
	value T
	next  AtomicPtr[node[T]]
}

// Release implements box.go's releaser interface: when a node's box is
// destructed, its next link is retired too, cascading the decrement down
// the chain instead of leaving it permanently referenced. It calls
// AtomicPtr.Retire rather than Release so that reconciling a long chain
// stays an iteration of the shared engine's own RetireAndFlush loop rather
// than one further level of Go call-stack recursion per node.
func (n *node[T]) Release() {
	n.next.Retire()
}

// Stack is a lock-free linked stack built on AtomicPtr and RcPtr,
// supplying push_front/pop_front/find over a chain of owned cells.
//
// Stack's own head is itself an atomic cell, so PushFront and PopFront are
// each just a CompareAndSwap loop against head, and Find is a snapshot walk
// from head — the same primitives GetSnapshot and Load consumers of the
// rest of the package use, with no separate locking.
type Stack[T any] struct {
	head AtomicPtr[node[T]]
}

// NewStack returns an empty stack. The zero value of Stack is equally
// usable; NewStack exists for symmetry with New and NewAtomicPtr.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// PushFront links value in at the head.
func (s *Stack[T]) PushFront(value T) {
	n := New(node[T]{value: value})
	backoff := iox.Backoff{}
	for {
		cur := s.head.GetSnapshot()
		if cur.IsNil() {
			n.Get().next.Store(RcPtr[node[T]]{})
		} else {
			n.Get().next.Store(fromBoxSnapshot(cur))
		}
		if s.head.CompareAndSwap(cur, n) {
			// CompareAndSwap has the cell adopt its own unit on n;
			// this local handle's unit is no longer needed.
			n.Release()
			cur.Release()
			return
		}
		cur.Release()
		backoff.Wait()
	}
}

// PopFront unlinks and returns the head value. ok is false on an empty
// stack.
func (s *Stack[T]) PopFront() (value T, ok bool) {
	backoff := iox.Backoff{}
	for {
		cur := s.head.GetSnapshot()
		if cur.IsNil() {
			cur.Release()
			return value, false
		}
		nextOwned := cur.Get().next.Load()
		if s.head.CompareAndSwap(cur, nextOwned) {
			value = cur.Get().value
			nextOwned.Release()
			cur.Release()
			return value, true
		}
		nextOwned.Release()
		cur.Release()
		backoff.Wait()
	}
}

// Find reports whether any node currently in the stack holds a value for
// which pred returns true. It walks a chain of snapshots, never taking a
// refcounted reference, so concurrent PushFront and PopFront calls racing
// with Find cannot be blocked or slowed by it.
func (s *Stack[T]) Find(pred func(T) bool) bool {
	cur := s.head.GetSnapshot()
	defer cur.Release()
	for !cur.IsNil() {
		if pred(cur.Get().value) {
			return true
		}
		next := cur.Get().next.GetSnapshot()
		cur.Release()
		cur = next
	}
	return false
}

// fromBoxSnapshot clones the box a SnapshotPtr observes into an owning
// RcPtr, used internally by PushFront to link a new node's next field to
// the previously observed head without racing the snapshot's own release.
func fromBoxSnapshot[T any](s SnapshotPtr[T]) RcPtr[T] {
	if s.b == nil {
		return RcPtr[T]{}
	}
	s.b.addRefs(1)
	return fromBox(s.b)
}
