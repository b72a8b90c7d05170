// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reclaim

import "unsafe"

// chainTable is a small chained hash table built from the currently
// announced pointers once per reconciliation pass. It allows duplicates
// (the same pointer announced by two different workers occupies two
// entries) and supports removing exactly one occurrence, which is what
// the matching step needs.
//
// Entries are stored in a flat, index-linked representation (heads/keys/next
// parallel slices) rather than []*list.List-of-pointers, a compact
// per-entry layout that keeps the table in a handful of cache lines
// during the scan.
type chainTable struct {
	heads []int32
	keys  []unsafe.Pointer
	next  []int32
	mask  uint64
}

// newChainTable sizes the bucket array at roughly 4x slotHint, the total
// number of announcement slots across all workers, rounded up to a power
// of two so bucket indexing is a mask instead of a division.
func newChainTable(slotHint int) *chainTable {
	buckets := 4
	for buckets < slotHint*4 {
		buckets <<= 1
	}
	t := &chainTable{
		heads: make([]int32, buckets),
		keys:  make([]unsafe.Pointer, 0, slotHint),
		next:  make([]int32, 0, slotHint),
		mask:  uint64(buckets - 1),
	}
	for i := range t.heads {
		t.heads[i] = -1
	}
	return t
}

// hashPtr mixes a single pointer-sized value. It is a MurmurHash3
// fmix64-style bit mixer (xor-shift, multiply, xor-shift), not a data hash: none of the hash libraries in the example pack
// (xxhash et al.) target single machine words, they target byte slices, so
// reaching for one here would mean hashing a slice view of one word instead
// of just mixing the bits directly.
func hashPtr(p unsafe.Pointer) uint64 {
	x := uint64(uintptr(p))
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return x
}

func (t *chainTable) insert(p unsafe.Pointer) {
	idx := int32(len(t.keys))
	t.keys = append(t.keys, p)
	b := hashPtr(p) & t.mask
	t.next = append(t.next, t.heads[b])
	t.heads[b] = idx
}

// removeOne deletes a single occurrence of p, if present, and reports
// whether it found one.
func (t *chainTable) removeOne(p unsafe.Pointer) bool {
	b := hashPtr(p) & t.mask
	prev := int32(-1)
	cur := t.heads[b]
	for cur != -1 {
		if t.keys[cur] == p {
			if prev == -1 {
				t.heads[b] = t.next[cur]
			} else {
				t.next[prev] = t.next[cur]
			}
			return true
		}
		prev = cur
		cur = t.next[cur]
	}
	return false
}
