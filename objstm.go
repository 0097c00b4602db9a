// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Expansion of object streams: containers whose decoded bytes hold
// further objects, addressed by (container, index) instead of a file
// offset.

package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// expandObjStms registers the members of every /Type /ObjStm container
// found by the scan. A broken container is warned about and skipped;
// the others are still processed.
func (d *Document) expandObjStms() error {
	// Members can only name plain objects, never further containers,
	// so the candidate set is fixed before expansion starts.
	n := uint32(len(d.store))
	for num := uint32(1); num < n; num++ {
		e := &d.store[num]
		if e.kind != entryNormal || e.stmOfs == 0 {
			continue
		}
		obj, err := d.loadObject(num)
		if err != nil {
			if err := d.reportOrRaise(err, fmt.Sprintf("ignoring broken object stream (%d 0 R)", num)); err != nil {
				return err
			}
			continue
		}
		strm, ok := obj.(stream)
		if !ok || strm.hdr["Type"] != name("ObjStm") {
			continue
		}
		if err := d.reportOrRaise(d.repairObjStm(num, strm), fmt.Sprintf("ignoring broken object stream (%d 0 R)", num)); err != nil {
			return err
		}
	}
	return nil
}

// repairObjStm reads the pair table of one container and claims a
// store slot for each member, subject to the later-definition-wins
// conflict rule.
func (d *Document) repairObjStm(cnum uint32, strm stream) error {
	hdr := Value{d, strm.ptr, strm.hdr}
	count := hdr.Key("N").Int64()
	if count <= 0 {
		return repairErrf(KindFormat, "object stream (%d 0 R) has invalid N", cnum)
	}
	data, err := d.readStreamData(strm)
	if err != nil {
		return err
	}

	b := newBuffer(bytes.NewReader(data), 0)
	defer putBuffer(b)
	myOfs := d.entryOffset(cnum, 0)

	for i := int64(0); i < count; i++ {
		tok := b.readToken()
		onum, ok := tok.(int64)
		if !ok {
			if tok == io.EOF {
				return repairErrf(KindFormat, "object stream (%d 0 R) truncated at pair %d", cnum, i)
			}
			return repairErrf(KindFormat, "object stream (%d 0 R) has corrupt pair %d", cnum, i)
		}
		if _, ok := b.readToken().(int64); !ok {
			return repairErrf(KindFormat, "object stream (%d 0 R) has corrupt pair %d", cnum, i)
		}
		if onum <= 0 || onum >= maxObjectNumber {
			d.warnf("ignoring object with invalid object number (%d 0 R)", onum)
			continue
		}

		e := d.populatingEntry(uint32(onum))
		if e.kind == entryNormal || e.kind == entryInContainer {
			// Later definitions in the file supersede earlier ones.
			// An existing entry whose backing offset cannot be
			// resolved is untrustworthy and loses unconditionally.
			exist := d.entryOffset(uint32(onum), 0)
			if exist >= 0 && exist > myOfs {
				continue
			}
		}
		*e = xrefEntry{
			kind:   entryInContainer,
			ofs:    int64(cnum),
			idx:    uint32(i),
			stmLen: -1,
		}
	}
	return nil
}

// entryOffset resolves the file offset backing object num, following
// container indirection. Returns -1 when the chain does not end at a
// Normal entry.
func (d *Document) entryOffset(num uint32, depth int) int64 {
	if depth > 8 || num == 0 || num >= uint32(len(d.store)) {
		return -1
	}
	e := &d.store[num]
	switch e.kind {
	case entryNormal:
		return e.ofs
	case entryInContainer:
		return d.entryOffset(uint32(e.ofs), depth+1)
	}
	return -1
}

// demoteDanglingContainers frees every in-container entry whose
// container did not survive as a Normal entry, so dangling references
// cannot reach the finished document.
func (d *Document) demoteDanglingContainers() {
	for num := uint32(1); num < uint32(len(d.store)); num++ {
		e := &d.store[num]
		if e.kind != entryInContainer {
			continue
		}
		cnum := uint32(e.ofs)
		if cnum == 0 || cnum >= uint32(len(d.store)) || d.store[cnum].kind != entryNormal {
			d.warnf("object (%d 0 R) points at missing container (%d 0 R), freeing it", num, cnum)
			*e = xrefEntry{kind: entryFree, stmLen: -1}
		}
	}
}
