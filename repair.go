// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Cross-reference reconstruction: a single forward scan over the whole
// file rediscovers every object and rebuilds the table the damaged
// xref should have described.

package pdf

import (
	"bytes"
	"io"
)

// scanEntry is one object discovered by the forward scan, recorded
// before any validation. Range and generation checks happen when the
// store is populated, so the scan itself never has to look back.
type scanEntry struct {
	num    int64
	gen    int64
	ofs    int64
	stmOfs int64
	stmLen int64
}

// repairState carries everything the scan harvests besides the entry
// list: trailer candidates and the root candidate list, in discovery
// order.
type repairState struct {
	entries []scanEntry
	encrypt object
	id      object
	info    object
	roots   []object
}

// Repair reconstructs the document's cross-reference table by scanning
// the raw bytes. It may be called exactly once per document: a second
// call fails with a KindRepairFailed error no matter how the first
// attempt ended. On failure all partial state is rolled back.
//
// With opts.ReportRepair set, a successful repair returns a
// KindRepaired informational error instead of nil so callers can show
// a "file was damaged" banner.
func (d *Document) Repair(opts RepairOptions) error {
	if d.repairAttempted {
		return repairErrf(KindRepairFailed, "repair already attempted")
	}
	d.repairAttempted = true
	d.opts = opts

	if err := d.repairXref(); err != nil {
		d.forgetXref()
		d.firstPage = nil
		return err
	}
	d.repaired = true
	if opts.ReportRepair {
		return repairErrf(KindRepaired, "file was repaired")
	}
	return nil
}

func (d *Document) repairXref() error {
	// Any partial state from a failed normal load is dropped, never
	// merged.
	d.forgetXref()
	d.firstPage = nil

	start := d.checkBanner()
	if !d.isFDF {
		d.warnf("repairing PDF document")
	}

	st, err := d.scanObjects(start)
	if err != nil {
		return err
	}
	if len(st.entries) == 0 {
		return repairErrf(KindNoObjects, "no objects found")
	}
	if err := d.populateStore(st); err != nil {
		return err
	}
	if err := d.expandObjStms(); err != nil {
		return err
	}
	d.demoteDanglingContainers()
	d.relinkFreeList()
	return d.synthesizeTrailer(st)
}

// checkBanner locates the %PDF- or %FDF- version marker within the
// first 1024 bytes and returns the offset where scanning should begin.
// The marker is itself a comment, so the lexer skips it (and any
// comment line a producer glued onto it) on the first token read.
func (d *Document) checkBanner() int64 {
	n := int64(1024)
	if n > d.end {
		n = d.end
	}
	buf := make([]byte, n)
	rn, _ := d.f.ReadAt(buf, 0)
	buf = buf[:rn]
	if i := bytes.Index(buf, []byte("%PDF-")); i >= 0 {
		return int64(i)
	}
	if i := bytes.Index(buf, []byte("%FDF-")); i >= 0 {
		d.isFDF = true
		return int64(i)
	}
	d.warnf("version marker not found")
	return 0
}

// scanObjects is the single forward pass over the file. It keeps a
// two-integer sliding window so that when an "obj" keyword appears the
// preceding "num gen" pair and its offset are at hand, hands each
// object body to repairObj, and harvests trailer candidates from bare
// dictionaries.
func (d *Document) scanObjects(start int64) (*repairState, error) {
	st := &repairState{entries: make([]scanEntry, 0, 1024)}

	b := newBuffer(d.f, start)
	defer putBuffer(b)
	b.allowStream = false
	b.skipStrings = true

	var (
		numOfs, genOfs int64 = -1, -1
		num, gen       int64
		tokOfs         int64
		tok            token
	)

scan:
	for {
		tokOfs = b.readOffset()
		tok = b.readToken()
	process:
		if tok == io.EOF {
			if b.readErr != nil {
				return nil, b.readErr
			}
			break
		}
		switch t := tok.(type) {
		case nil:
			if b.readErr != nil {
				return nil, b.readErr
			}
			b.skipToWhitespace()
			numOfs, genOfs = -1, -1
			num, gen = 0, 0

		case int64:
			if t < 0 {
				// Negative integers never start an object header.
				numOfs, genOfs = -1, -1
				num, gen = 0, 0
				break
			}
			numOfs, num = genOfs, gen
			genOfs, gen = tokOfs, t

		case keyword:
			switch t {
			case "obj":
				if numOfs < 0 {
					// "obj" with no preceding num gen pair.
					num, gen = 0, 0
					genOfs = -1
					break
				}
				res, err := d.repairObj(b, num, gen)
				if err != nil {
					if isFatal(err) {
						return nil, err
					}
					if len(st.roots) == 0 {
						return nil, err
					}
					d.warnf("cannot parse object (%d %d R), ignoring rest of file: %v", num, gen, err)
					break scan
				}
				d.harvestObjDict(st, res.dict)
				st.entries = append(st.entries, scanEntry{
					num:    num,
					gen:    gen,
					ofs:    numOfs,
					stmOfs: res.stmOfs,
					stmLen: res.stmLen,
				})
				numOfs, genOfs = -1, -1
				num, gen = 0, 0
				tok, tokOfs = res.tok, res.tokOfs
				goto process

			case "<<":
				d.harvestBareDict(st, b)
				if b.readErr != nil {
					return nil, b.readErr
				}
				numOfs, genOfs = -1, -1
				num, gen = 0, 0

			default:
				// endobj, endstream, xref, trailer, startxref, ...
				numOfs, genOfs = -1, -1
				num, gen = 0, 0
			}

		default:
			// A header is "num gen obj" with nothing in between.
			// Strings, names, reals and booleans all break the
			// pattern.
			numOfs, genOfs = -1, -1
			num, gen = 0, 0
		}
	}

	return st, nil
}

// harvestObjDict collects trailer candidates from an object's own
// dictionary. Only cross-reference stream dictionaries are trusted as
// a source of Encrypt/ID/Root; anything may supply the first page.
func (d *Document) harvestObjDict(st *repairState, dictObj dict) {
	if dictObj == nil {
		return
	}
	if dictObj["Type"] == name("XRef") {
		if v := dictObj["Encrypt"]; v != nil {
			st.encrypt = v
		}
		if v := dictObj["ID"]; v != nil {
			st.id = v
		}
		if v := dictObj["Root"]; v != nil {
			st.roots = append(st.roots, v)
		}
	}
	if d.opts.CaptureFirstPage && d.firstPage == nil && dictObj["Type"] == name("Page") {
		d.firstPage = dictObj
	}
}

// harvestBareDict handles a "<<" seen outside any object: a trailer, a
// broken trailer, or random dictionary junk. It is parsed permissively
// and mined for Encrypt, ID, Info and Root candidates.
func (d *Document) harvestBareDict(st *repairState, b *buffer) {
	b.skipStrings = false
	obj := b.readDict()
	b.skipStrings = true
	dictObj, _ := obj.(dict)
	if dictObj == nil {
		return
	}
	if v := dictObj["Encrypt"]; v != nil {
		st.encrypt = v
		if dictObj["ID"] == nil {
			d.warnf("trailer dictionary has Encrypt but no ID")
		}
	}
	// An ID only replaces an earlier one when it plausibly belongs to
	// the Encrypt dictionary in force: first ID seen, or no Encrypt
	// seen yet, or this same dictionary carries the Encrypt.
	if v := dictObj["ID"]; v != nil && (st.id == nil || st.encrypt == nil || dictObj["Encrypt"] != nil) {
		st.id = v
	}
	if v := dictObj["Info"]; v != nil {
		st.info = v
	}
	if v := dictObj["Root"]; v != nil {
		st.roots = append(st.roots, v)
	}
}

// populateStore bulk-loads the scan entries into a dense table. Scan
// order is file order, so overwriting duplicates as they come
// implements later-definition-wins. Range and generation validation
// happens here, not during the scan.
func (d *Document) populateStore(st *repairState) error {
	var maxnum int64
	for i := range st.entries {
		if n := st.entries[i].num; n > 0 && n < maxObjectNumber && n > maxnum {
			maxnum = n
		}
	}
	if maxnum == 0 {
		return repairErrf(KindNoObjects, "no objects found")
	}
	d.ensureSolidXref(uint32(maxnum))

	for _, se := range st.entries {
		if se.num <= 0 || se.num >= maxObjectNumber {
			d.warnf("ignoring object with invalid object number (%d %d R)", se.num, se.gen)
			continue
		}
		gen := se.gen
		if gen < 0 || gen > maxGenNumber {
			d.warnf("invalid generation number (%d)", gen)
			gen = min(max(gen, 0), maxGenNumber)
		}
		*d.populatingEntry(uint32(se.num)) = xrefEntry{
			kind:   entryNormal,
			gen:    int(gen),
			ofs:    se.ofs,
			stmOfs: se.stmOfs,
			stmLen: se.stmLen,
		}
	}

	if st.encrypt == nil {
		return d.fixStreamLengths(st)
	}
	return nil
}

// fixStreamLengths rewrites /Length on every stream whose real length
// was recovered by the endstream scan. Producers write wrong lengths
// often enough that trusting the recovered value is the safer default.
// Skipped wholesale on encrypted files, where dictionary rewriting
// would need the decryption key first.
func (d *Document) fixStreamLengths(st *repairState) error {
	for _, se := range st.entries {
		if se.num <= 0 || se.num >= maxObjectNumber || se.stmLen < 0 {
			continue
		}
		e := d.entryFor(uint32(se.num))
		if e == nil || e.kind != entryNormal || e.ofs != se.ofs {
			// A later duplicate took this slot.
			continue
		}
		obj, err := d.loadObject(uint32(se.num))
		if err != nil {
			if isFatal(err) {
				return err
			}
			d.warnf("cannot correct stream length (%d %d R): %v", se.num, se.gen, err)
			continue
		}
		switch o := obj.(type) {
		case stream:
			o.hdr["Length"] = se.stmLen
		case dict:
			o["Length"] = se.stmLen
		}
	}
	return nil
}
