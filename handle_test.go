// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parlay_test

import (
	"sync"
	"testing"

	"github.com/yunshuwu/parlaylib"
)

func TestNewHandleUseCount(t *testing.T) {
	h := parlay.New(10)
	defer h.Release()

	if h.IsNil() {
		t.Fatal("New returned a null handle")
	}
	if got := h.UseCount(); got != 1 {
		t.Fatalf("UseCount() = %d, want 1", got)
	}
	if got := *h.Get(); got != 10 {
		t.Fatalf("Get() = %d, want 10", got)
	}
}

// TestCloneConservesCount: cloning adds exactly one unit, and releasing
// each clone subtracts exactly one.
func TestCloneConservesCount(t *testing.T) {
	h := parlay.New(1)
	clones := make([]parlay.RcPtr[int], 0, 4)
	for i := 0; i < 4; i++ {
		clones = append(clones, h.Clone())
	}
	if got := h.UseCount(); got != 5 {
		t.Fatalf("UseCount() after 4 clones = %d, want 5", got)
	}
	for i := range clones {
		clones[i].Release()
	}
	if got := h.UseCount(); got != 1 {
		t.Fatalf("UseCount() after releasing clones = %d, want 1", got)
	}
	h.Release()
}

// TestReleaseIsIdempotent: releasing an already-released handle is a no-op,
// not a double-free, because Release nulls the handle before touching refs.
func TestReleaseIsIdempotent(t *testing.T) {
	h := parlay.New(1)
	h.Release()
	h.Release()
	h.Release()
	if !h.IsNil() {
		t.Fatal("handle is not null after Release")
	}
}

// TestReleaseNullHandle: releasing a handle that was never assigned is a
// no-op.
func TestReleaseNullHandle(t *testing.T) {
	var h parlay.RcPtr[int]
	h.Release()
	if !h.IsNil() {
		t.Fatal("zero-value RcPtr is not null")
	}
}

func TestEqualComparesIdentityNotValue(t *testing.T) {
	a := parlay.New(1)
	defer a.Release()
	b := parlay.New(1)
	defer b.Release()

	if a.Equal(b) {
		t.Fatal("two distinct boxes holding equal values compared Equal")
	}

	clone := a.Clone()
	defer clone.Release()
	if !a.Equal(clone) {
		t.Fatal("a handle and its own clone did not compare Equal")
	}
}

// TestDestructRunsOnce checks that a value's Release hook runs exactly once,
// when the last owning handle is released, not once per handle.
type countingReleaser struct {
	count *int
}

func (c *countingReleaser) Release() {
	*c.count++
}

func TestDestructRunsOnce(t *testing.T) {
	var n int
	h := parlay.New(countingReleaser{count: &n})
	clone := h.Clone()

	h.Release()
	if n != 0 {
		t.Fatalf("release hook ran after only one of two handles was released: n=%d", n)
	}
	clone.Release()
	if n != 1 {
		t.Fatalf("release hook ran %d times, want exactly 1", n)
	}
}

func TestGetSnapshotObservesCurrentValue(t *testing.T) {
	cell := parlay.NewAtomicPtr[int]()
	cell.Store(parlay.New(5))
	defer cell.Release()

	snap := cell.GetSnapshot()
	defer snap.Release()

	if snap.IsNil() {
		t.Fatal("GetSnapshot returned null against a populated cell")
	}
	if got := *snap.Get(); got != 5 {
		t.Fatalf("snapshot Get() = %d, want 5", got)
	}
}

func TestGetSnapshotOnEmptyCell(t *testing.T) {
	cell := parlay.NewAtomicPtr[int]()
	defer cell.Release()

	snap := cell.GetSnapshot()
	if !snap.IsNil() {
		t.Fatal("GetSnapshot on an empty cell returned non-null")
	}
	snap.Release()
}

// TestConcurrentCloneRelease exercises the refcount under contention: many
// goroutines clone and release the same handle, and the box must still be
// alive with use count 1 once they all finish.
func TestConcurrentCloneRelease(t *testing.T) {
	h := parlay.New(1)
	defer h.Release()

	const goroutines = 32
	const iterations = 5000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				c := h.Clone()
				c.Release()
			}
		}()
	}
	wg.Wait()

	if got := h.UseCount(); got != 1 {
		t.Fatalf("UseCount() after concurrent clone/release = %d, want 1", got)
	}
}
