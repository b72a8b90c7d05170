// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reclaim implements an acquire-retire safe-memory-reclamation
// engine: per-worker announcement slots, a per-worker deferred-decrement
// queue, and a chained-hash-table matching pass that reconciles the two.
//
// The engine is deliberately ignorant of the element type T that the parlay
// package's box type wraps: it traffics only in unsafe.Pointer identities plus a release
// callback supplied by the caller. Slots and queue entries hold real
// unsafe.Pointer values (via atomic.Pointer[byte], not uintptr) precisely
// so that Go's garbage collector keeps the referent alive for as long as
// the engine has it announced or queued — a plain atomix.Uintptr slot would
// not root the allocation, silently reintroducing the use-after-free the
// whole scheme exists to prevent. See DESIGN.md.
package reclaim

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"github.com/yunshuwu/parlaylib/internal/pworker"
)

// Config holds the engine's two compile-time levers, delay and K, exposed
// as a small literal rather than a fluent builder: there is exactly one
// setting per lever, so a builder would only add ceremony.
type Config struct {
	// Delay is the retirement amortization factor: a worker only attempts
	// reconciliation once its deferred queue holds at least
	// NumWorkers()*Delay entries.
	Delay int
	// SnapshotSlots is K, the number of snapshot announcement slots each
	// worker keeps before it starts kicking.
	SnapshotSlots int
}

// DefaultConfig returns the recommended constants (delay=5, K=3).
func DefaultConfig() Config {
	return Config{Delay: 5, SnapshotSlots: 3}
}

func (c Config) normalized() Config {
	if c.Delay <= 0 {
		c.Delay = 5
	}
	if c.SnapshotSlots <= 0 {
		c.SnapshotSlots = 3
	}
	return c
}

type slot struct {
	_ pad
	v atomic.Pointer[byte]
}

func (s *slot) load() unsafe.Pointer   { return unsafe.Pointer(s.v.Load()) }
func (s *slot) store(p unsafe.Pointer) { s.v.Store((*byte)(p)) }

func (s *slot) compareAndSwap(old, replacement unsafe.Pointer) bool {
	return s.v.CompareAndSwap((*byte)(old), (*byte)(replacement))
}

type worker struct {
	_         pad
	primary   slot
	_         pad
	snapshots []slot
	rr        atomix.Uint64
	_         pad
	reentrant atomix.Bool
	queue     []unsafe.Pointer
}

// Engine is one acquire-retire reclamation domain. The parlay package
// constructs one Engine per AtomicPtr[T] family and looks it up by type,
// rather than threading a handle through every call — see DESIGN.md for
// why.
type Engine struct {
	cfg        Config
	release    func(unsafe.Pointer)
	workers    []worker
	totalSlots int
}

// New builds an Engine sized for pworker.NumWorkers() workers. release is
// invoked exactly once per logical reference-count unit that the engine
// determines is no longer protected by any announcement.
func New(release func(unsafe.Pointer), cfg Config) *Engine {
	cfg = cfg.normalized()
	n := pworker.NumWorkers()
	e := &Engine{
		cfg:        cfg,
		release:    release,
		workers:    make([]worker, n),
		totalSlots: n * (1 + cfg.SnapshotSlots),
	}
	for i := range e.workers {
		e.workers[i].snapshots = make([]slot, cfg.SnapshotSlots)
	}
	return e
}

// Acquire is the announcement-stabilized read. It announces the cell's
// current value in the calling worker's primary
// slot, re-reads the cell to confirm the announcement landed before the
// value could have been retired, and invokes onValid with the stabilized
// pointer while still holding the announcement. onValid is expected to
// take whatever ownership it needs (e.g. bump a refcount) before
// returning; the slot is cleared immediately afterward.
func (e *Engine) Acquire(cell *atomic.Pointer[byte], onValid func(unsafe.Pointer)) {
	id := pworker.WorkerID()
	defer pworker.Release()

	ws := &e.workers[id]
	sw := spin.Wait{}
	for {
		p := unsafe.Pointer(cell.Load())
		ws.primary.store(p)
		if unsafe.Pointer(cell.Load()) == p {
			if p != nil && onValid != nil {
				onValid(p)
			}
			ws.primary.store(nil)
			return
		}
		sw.Once()
	}
}

// Reserve is the cheap variant for callers (like
// AtomicPtr.CompareAndSwap) that already hold a live pointer and only
// need it announced, with no cell to re-read. The returned function
// clears the slot and releases the worker pin, and must be called
// exactly once. The pin is held for the caller's entire announce-use-clear
// cycle, not just the announce: unpinning early would let another
// goroutine scheduled onto the same P claim the same worker id and
// overwrite ws.primary before the first caller's critical section (a CAS
// plus the refcount increment it protects) has finished with it.
func (e *Engine) Reserve(p unsafe.Pointer) func() {
	id := pworker.WorkerID()
	ws := &e.workers[id]
	ws.primary.store(p)
	return func() {
		ws.primary.store(nil)
		pworker.Release()
	}
}

// ProtectSnapshot picks a free snapshot slot
// among the worker's K slots, or kicks the next one in round-robin order
// if all are occupied. Kicking calls onKick with the pointer being evicted
// from the slot (the caller is expected to bump that pointer's refcount,
// converting the outgoing snapshot into an owning reference) before the
// slot is overwritten with the newly protected pointer.
//
// It returns the stabilized pointer, the slot now protecting it, and
// whether this particular call kicked an occupant.
func (e *Engine) ProtectSnapshot(cell *atomic.Pointer[byte], onKick func(unsafe.Pointer)) (p unsafe.Pointer, handle *SnapshotSlot, kicked bool) {
	id := pworker.WorkerID()
	defer pworker.Release()

	ws := &e.workers[id]
	sw := spin.Wait{}
	for {
		p = unsafe.Pointer(cell.Load())

		var chosen *slot
		kicked = false
		for i := range ws.snapshots {
			if ws.snapshots[i].load() == nil {
				chosen = &ws.snapshots[i]
				break
			}
		}
		if chosen == nil {
			idx := ws.rr.AddAcqRel(1) % uint64(len(ws.snapshots))
			chosen = &ws.snapshots[idx]
			kicked = true
			if prev := chosen.load(); prev != nil && onKick != nil {
				onKick(prev)
			}
		}
		chosen.store(p)

		if unsafe.Pointer(cell.Load()) == p {
			return p, &SnapshotSlot{s: chosen}, kicked
		}
		chosen.store(nil)
		sw.Once()
	}
}

// SnapshotSlot is the handle a SnapshotPtr keeps on its announcement slot.
type SnapshotSlot struct {
	s *slot
}

// Release clears the slot if it still announces p, reporting whether it
// did. A false return means the slot has since been kicked to a
// count-holding state and the caller owes a decrement of p.
func (h *SnapshotSlot) Release(p unsafe.Pointer) bool {
	if h == nil || h.s == nil {
		return false
	}
	return h.s.compareAndSwap(p, nil)
}

// Retire appends p to the calling worker's deferred queue and attempts
// reconciliation.
func (e *Engine) Retire(p unsafe.Pointer) {
	if p == nil {
		return
	}
	id := pworker.WorkerID()
	ws := &e.workers[id]
	ws.queue = append(ws.queue, p)
	e.reconcile(id, ws, false)
	pworker.Release()
}

// RetireAndFlush appends p to the calling worker's deferred queue, then
// forces that worker's reconciliation pass regardless of threshold,
// repeating until a pass releases nothing further — a released box's own
// destructor may retire more pointers into this same queue, see box.go's
// releaser, and those need a further pass too. Everything happens within
// one pin, so every pass reconciles the exact worker queue the entries
// landed in (a second, separate pin could land on a different worker id
// after a P reschedule and force the wrong queue). Unlike Drain, it never
// touches another worker's queue and it still consults every worker's
// announcement slots before releasing anything — only the threshold
// shortcut is bypassed, never the announcement check — so it is safe to
// call on one AtomicPtr[T] while an unrelated AtomicPtr[T] sharing this
// Engine is concurrently mid-Acquire/ProtectSnapshot. A pointer still
// announced elsewhere simply stays queued for a later amortized Retire
// pass to pick up, exactly as if force had never been set.
func (e *Engine) RetireAndFlush(p unsafe.Pointer) {
	if p == nil {
		return
	}
	id := pworker.WorkerID()
	defer pworker.Release()
	ws := &e.workers[id]
	ws.queue = append(ws.queue, p)
	for e.reconcile(id, ws, true) {
	}
}

// reconcile scans all announcement slots and reconciles ws's deferred
// queue against them, reporting whether it released anything. With force
// false it only runs once the queue has reached the threshold (the
// amortized path out of Retire); with force true it always runs
// (RetireAndFlush's single-cell-safe teardown path).
func (e *Engine) reconcile(id int, ws *worker, force bool) bool {
	if !ws.reentrant.CompareAndSwapAcqRel(false, true) {
		return false
	}
	defer ws.reentrant.StoreRelease(false)

	if !force {
		threshold := len(e.workers) * e.cfg.Delay
		if len(ws.queue) < threshold {
			return false
		}
	}

	local := ws.queue
	ws.queue = nil

	table := newChainTable(e.totalSlots)
	for i := range e.workers {
		w := &e.workers[i]
		if p := w.primary.load(); p != nil {
			table.insert(p)
		}
		for j := range w.snapshots {
			if p := w.snapshots[j].load(); p != nil {
				table.insert(p)
			}
		}
	}

	released := false
	survivors := local[:0]
	for _, p := range local {
		if table.removeOne(p) {
			survivors = append(survivors, p)
		} else {
			e.release(p)
			released = true
		}
	}
	ws.queue = append(ws.queue, survivors...)
	return released
}

// Drain is the explicit, whole-Engine teardown entry point: it applies
// every buffered decrement across every worker's queue regardless of
// announcements, looping until no worker's queue refills (destructor side
// effects, where user types trigger further retires, are picked up on the
// next pass). Because it bypasses the announcement check entirely, callers
// must ensure no worker is concurrently active — any AtomicPtr[T] sharing
// this Engine with an in-flight Acquire/ProtectSnapshot is not safe to
// Drain around. It is not the path a single cell's Release should take;
// see RetireAndFlush for that.
func (e *Engine) Drain() {
	for {
		progressed := false
		for i := range e.workers {
			ws := &e.workers[i]
			if len(ws.queue) == 0 {
				continue
			}
			local := ws.queue
			ws.queue = nil
			progressed = true
			for _, p := range local {
				e.release(p)
			}
		}
		if !progressed {
			return
		}
	}
}
