// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

// synthesizeTrailer builds the document trailer from what the scan
// harvested. The store must already be solid, expanded and relinked;
// given the same store and harvest this is deterministic, so running
// it again produces an identical trailer.
func (d *Document) synthesizeTrailer(st *repairState) error {
	trailer := dict{
		"Size": int64(len(d.store)),
	}
	if st.encrypt != nil {
		trailer["Encrypt"] = st.encrypt
	}
	if st.id != nil {
		trailer["ID"] = st.id
	}
	if st.info != nil {
		trailer["Info"] = st.info
	}
	d.trailer = trailer

	// Candidates were appended in scan order, and later occurrences in
	// the file represent more recent incremental updates, so walk the
	// list backwards. A candidate must be an indirect reference whose
	// target is a dictionary.
	for i := len(st.roots) - 1; i >= 0; i-- {
		ptr, ok := st.roots[i].(objptr)
		if !ok {
			continue
		}
		obj, err := d.loadObject(ptr.id)
		if err != nil {
			if isFatal(err) {
				return err
			}
			d.warnf("root candidate (%d %d R) does not load: %v", ptr.id, ptr.gen, err)
			continue
		}
		if _, ok := obj.(dict); ok {
			trailer["Root"] = ptr
			break
		}
	}

	if trailer["Root"] == nil || trailer["Info"] == nil {
		if err := d.searchRootInfo(trailer); err != nil {
			return err
		}
	}
	if trailer["Root"] == nil {
		// FDF files and pathological documents can legitimately lack a
		// catalog; the loader decides whether that is acceptable.
		d.warnf("cannot find document root")
	}

	if err := d.cacheRawCryptValues(trailer); err != nil {
		return err
	}
	return nil
}

// searchRootInfo is the fallback for a missing /Root or /Info: walk
// the store backwards from the highest object number, looking for a
// /Type /Catalog dictionary and for something that smells like a
// document information dictionary, and stop once both are settled.
func (d *Document) searchRootInfo(trailer dict) error {
	needRoot := trailer["Root"] == nil
	needInfo := trailer["Info"] == nil
	for i := len(d.store) - 1; i > 0 && (needRoot || needInfo); i-- {
		e := &d.store[i]
		if e.kind != entryNormal && e.kind != entryInContainer {
			continue
		}
		obj, err := d.loadObject(uint32(i))
		if err != nil {
			if isFatal(err) {
				return err
			}
			d.warnf("cannot load object (%d 0 R): %v", i, err)
			continue
		}
		db, ok := obj.(dict)
		if !ok {
			continue
		}
		if needRoot && db["Type"] == name("Catalog") {
			trailer["Root"] = objptr{uint32(i), 0}
			needRoot = false
			continue
		}
		if needInfo && (db["Creator"] != nil || db["Producer"] != nil) {
			trailer["Info"] = objptr{uint32(i), 0}
			needInfo = false
		}
	}
	return nil
}

// cacheRawCryptValues pins /Encrypt and /ID into the trailer in their
// raw, non-decrypted form. These two values feed key derivation and
// must survive in exactly the bytes the file carried, so they are
// resolved with the decryption key scoped out and stored directly
// instead of as references.
func (d *Document) cacheRawCryptValues(trailer dict) error {
	key, useAES := d.key, d.useAES
	d.key, d.useAES = nil, false
	defer func() {
		d.key, d.useAES = key, useAES
	}()

	for _, k := range []name{"Encrypt", "ID"} {
		ptr, ok := trailer[k].(objptr)
		if !ok {
			continue
		}
		obj, err := d.loadObject(ptr.id)
		if err != nil {
			if isFatal(err) {
				return err
			}
			d.warnf("cannot resolve trailer %s (%d %d R): %v", k, ptr.id, ptr.gen, err)
			continue
		}
		trailer[k] = obj
	}
	return nil
}
