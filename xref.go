// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The populating cross-reference table: a dense, growable object store
// owned by the repair engine while reconstruction runs.

package pdf

// maxObjectNumber bounds usable object numbers: valid numbers lie in
// [1, maxObjectNumber). Cross-reference streams encode object numbers
// in three bytes, so anything wider cannot round-trip anyway.
const maxObjectNumber = 1 << 23

// maxGenNumber is the largest representable generation; generation
// 65535 also marks the head of the free list on object 0.
const maxGenNumber = 65535

type entryKind uint8

const (
	// entryUnknown is an object number nothing has claimed yet.
	entryUnknown entryKind = iota
	// entryFree is a free-list entry; ofs holds the next free number.
	entryFree
	// entryNormal is an object at a byte offset in the file.
	entryNormal
	// entryInContainer is an object packed inside an object stream;
	// ofs holds the container's object number, idx the position.
	entryInContainer
)

func (k entryKind) String() string {
	switch k {
	case entryFree:
		return "free"
	case entryNormal:
		return "normal"
	case entryInContainer:
		return "in-container"
	}
	return "unknown"
}

// xrefEntry is one slot of the object store. The meaning of ofs depends
// on kind: a byte offset for entryNormal, the next free object number
// for entryFree, and the container's object number for entryInContainer.
type xrefEntry struct {
	kind   entryKind
	gen    int
	ofs    int64
	idx    uint32 // index within the container, entryInContainer only
	stmOfs int64  // offset of stream data, 0 if not a stream object
	stmLen int64  // recovered stream length, -1 = unknown
	obj    object // cached parsed value, owned by the store
}

// forgetXref discards any previous table state. Repair always starts
// from nothing: partial state from a failed normal load is dropped, not
// merged.
func (d *Document) forgetXref() {
	d.store = nil
	d.trailer = nil
}

// ensureSolidXref guarantees the store has slots 0..maxnum inclusive.
func (d *Document) ensureSolidXref(maxnum uint32) {
	if uint32(len(d.store)) > maxnum {
		return
	}
	grown := make([]xrefEntry, maxnum+1)
	copy(grown, d.store)
	d.store = grown
}

// populatingEntry returns the store slot for num, growing the table as
// needed. Only the repair engine may call this; the store is not
// shared until repair completes.
func (d *Document) populatingEntry(num uint32) *xrefEntry {
	if num >= uint32(len(d.store)) {
		d.ensureSolidXref(num)
	}
	return &d.store[num]
}

// relinkFreeList rebuilds the free chain from scratch. Object 0 heads
// the chain; every free entry points at the next free object number
// and gets its generation bumped. Repair cannot trust any existing
// chain, so the pass is a single backward sweep over the solid table.
func (d *Document) relinkFreeList() {
	if len(d.store) == 0 {
		return
	}
	e := &d.store[0]
	e.kind = entryFree
	e.ofs = 0
	e.gen = maxGenNumber
	e.stmOfs = 0
	e.stmLen = -1

	next := int64(0)
	for i := len(d.store) - 1; i >= 0; i-- {
		e := &d.store[i]
		if e.kind == entryFree || e.kind == entryUnknown {
			e.kind = entryFree
			e.ofs = next
			if e.gen < maxGenNumber {
				e.gen++
			}
			next = int64(i)
		}
	}
}
