// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pdf reconstructs the cross-reference table of damaged PDF
// files.
//
// A PDF names every object it contains in a cross-reference table at
// the end of the file. When that table is missing, truncated, or lies,
// the document cannot be loaded the normal way: the only remaining
// source of truth is the byte stream itself. This package performs that
// recovery: a single fault-tolerant forward scan over the whole file
// that rediscovers every "N G obj" header, rebuilds the object store,
// expands compressed object streams, and synthesizes a trailer with a
// usable document root.
//
// The package exposes the reconstructed structure through the Value
// API. It deliberately does not interpret pages, fonts, or content
// streams; it recovers the object graph that such layers consume.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DebugOn enables warning output on stderr while a file is repaired.
// Warnings are always collected on the Document regardless.
var DebugOn = false

// RepairOptions configures a repair attempt. The zero value is a
// normal, silent repair.
type RepairOptions struct {
	// ReportRepair forces a successful repair to still be reported as
	// an informational KindRepaired error, so callers can surface a
	// "this file was damaged and has been repaired" banner.
	ReportRepair bool

	// CaptureFirstPage records the first /Type /Page dictionary seen
	// during the scan, for showing page one before the rest of the
	// document is usable (linearized reading).
	CaptureFirstPage bool
}

// A Document is a single PDF file whose structure is reconstructed by
// Repair. Before Repair runs the document has no object table and no
// trailer.
type Document struct {
	f      io.ReaderAt
	closer io.Closer
	end    int64

	store   []xrefEntry
	trailer dict

	key    []byte
	useAES bool

	repairAttempted bool
	repaired        bool
	isFDF           bool

	firstPage object
	warnings  []string

	opts RepairOptions
}

// NewDocument prepares a document for repair, reading from f with the
// given total size. No parsing happens until Repair is called.
func NewDocument(f io.ReaderAt, size int64) *Document {
	d := &Document{f: f, end: size}
	if closer, ok := f.(io.Closer); ok {
		d.closer = closer
	}
	return d
}

// Open opens a file for repair.
func Open(file string) (*Document, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat")
	}
	return NewDocument(f, fi.Size()), nil
}

// Close releases the underlying file, if the document owns one.
func (d *Document) Close() error {
	d.clearObjCache()
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Trailer returns the reconstructed trailer dictionary. Before a
// successful Repair it is a null Value.
func (d *Document) Trailer() Value {
	if d.trailer == nil {
		return Value{}
	}
	return Value{d, objptr{}, d.trailer}
}

// Size returns the number of object slots in the reconstructed table,
// including the reserved object 0. Zero before repair.
func (d *Document) Size() int {
	return len(d.store)
}

// Object returns the value stored under the given object number, or a
// null Value if the slot is free or the object cannot be loaded.
func (d *Document) Object(num uint32) Value {
	obj, err := d.loadObject(num)
	if err != nil {
		return Value{}
	}
	return d.resolve(objptr{id: num}, obj)
}

// Repaired reports whether this document went through a successful
// repair.
func (d *Document) Repaired() bool {
	return d.repaired
}

// FirstPage returns the first /Type /Page dictionary captured during a
// scan with CaptureFirstPage set, or a null Value.
func (d *Document) FirstPage() Value {
	if d.firstPage == nil {
		return Value{}
	}
	return Value{d, objptr{}, d.firstPage}
}

// IsFDF reports whether the file carried an %FDF- banner instead of
// %PDF-.
func (d *Document) IsFDF() bool {
	return d.isFDF
}

// Warnings returns the non-fatal problems encountered during repair,
// in the order they were found.
func (d *Document) Warnings() []string {
	return d.warnings
}

func (d *Document) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.warnings = append(d.warnings, msg)
	if DebugOn {
		fmt.Fprintf(os.Stderr, "pdf: warning: %s\n", msg)
	}
}

// reportOrRaise implements the propagation policy: System and TryLater
// errors always bubble up; anything else is demoted to a warning and
// the larger loop continues.
func (d *Document) reportOrRaise(err error, unit string) error {
	if err == nil {
		return nil
	}
	if isFatal(err) {
		return err
	}
	d.warnf("%s: %v", unit, err)
	return nil
}

// clearObjCache drops every cached parsed value in the store. Used
// before re-resolving trailer values without decryption.
func (d *Document) clearObjCache() {
	for i := range d.store {
		d.store[i].obj = nil
	}
}

// resolve walks x to a concrete value, following an indirect reference
// through the object store. Failures resolve to a null Value; repair
// code that needs to distinguish failures uses loadObject directly.
func (d *Document) resolve(parent objptr, x interface{}) Value {
	if ptr, ok := x.(objptr); ok {
		obj, err := d.loadObject(ptr.id)
		if err != nil {
			return Value{}
		}
		parent = ptr
		x = obj
	}
	switch x := x.(type) {
	case nil, bool, int64, float64, name, dict, array, stream, string:
		return Value{d, parent, x}
	default:
		return Value{}
	}
}

// loadObject parses and caches the object with the given number.
func (d *Document) loadObject(num uint32) (object, error) {
	if num == 0 || num >= uint32(len(d.store)) {
		return nil, repairErrf(KindFormat, "object out of range (%d 0 R)", num)
	}
	e := &d.store[num]
	if e.obj != nil {
		return e.obj, nil
	}
	switch e.kind {
	case entryNormal:
		return d.loadNormal(num, e)
	case entryInContainer:
		return d.loadFromContainer(num, e)
	}
	return nil, repairErrf(KindFormat, "object not present (%d 0 R)", num)
}

func (d *Document) loadNormal(num uint32, e *xrefEntry) (object, error) {
	b := newBuffer(d.f, e.ofs)
	defer putBuffer(b)
	b.key = d.key
	b.useAES = d.useAES
	obj := b.readObject()
	if b.readErr != nil {
		return nil, b.readErr
	}
	def, ok := obj.(objdef)
	if !ok {
		return nil, repairErrf(KindFormat, "object not at recorded offset (%d 0 R @%d)", num, e.ofs)
	}
	if def.ptr.id != num {
		// Inconsistent tables happen; use what is actually there.
		d.warnf("object number mismatch at offset %d: want %d, found %d", e.ofs, num, def.ptr.id)
	}
	e.obj = def.obj
	return def.obj, nil
}

func (d *Document) loadFromContainer(num uint32, e *xrefEntry) (object, error) {
	cnum := uint32(e.ofs)
	if cnum == 0 || cnum >= uint32(len(d.store)) || d.store[cnum].kind != entryNormal {
		return nil, repairErrf(KindFormat, "dangling container reference (%d 0 R in %d 0 R)", num, cnum)
	}
	cobj, err := d.loadObject(cnum)
	if err != nil {
		return nil, err
	}
	strm, ok := cobj.(stream)
	if !ok {
		return nil, repairErrf(KindFormat, "container is not a stream (%d 0 R)", cnum)
	}
	data, err := d.readStreamData(strm)
	if err != nil {
		return nil, err
	}

	hdr := Value{d, strm.ptr, strm.hdr}
	n := hdr.Key("N").Int64()
	first := hdr.Key("First").Int64()
	if n <= 0 || first < 0 {
		return nil, repairErrf(KindFormat, "corrupt object stream header (%d 0 R)", cnum)
	}

	b := newBuffer(bytes.NewReader(data), 0)
	defer putBuffer(b)
	var id, off int64
	found := false
	for i := int64(0); i < n; i++ {
		tid, ok1 := b.readToken().(int64)
		toff, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 {
			return nil, repairErrf(KindFormat, "corrupt object stream header (%d 0 R)", cnum)
		}
		if i == int64(e.idx) || uint32(tid) == num {
			id, off = tid, toff
			found = true
			if uint32(tid) == num {
				break
			}
		}
	}
	if !found {
		return nil, repairErrf(KindFormat, "object not in container (%d 0 R in %d 0 R)", num, cnum)
	}
	if uint32(id) != num {
		d.warnf("object stream %d entry %d names object %d, want %d", cnum, e.idx, id, num)
	}

	b.seek(first + off)
	obj := b.readObject()
	e.obj = obj
	return obj, nil
}

// readStreamData returns the decoded bytes of a stream object: raw
// bytes at the recorded offset, decrypted if a key is set, run through
// the declared filter chain.
func (d *Document) readStreamData(strm stream) ([]byte, error) {
	v := Value{d, strm.ptr, strm}
	length := v.Key("Length").Int64()
	if length <= 0 {
		// Fall back to the recovered length from the repair scan.
		if e := d.entryFor(strm.ptr.id); e != nil && e.stmLen > 0 {
			length = e.stmLen
		}
	}
	if length <= 0 || strm.offset+length > d.end {
		length = d.end - strm.offset
	}
	if length <= 0 {
		return nil, repairErrf(KindFormat, "stream without data (%d 0 R)", strm.ptr.id)
	}

	var rd io.Reader = io.NewSectionReader(d.f, strm.offset, length)
	if d.key != nil {
		rd = decryptStream(d.key, d.useAES, strm.ptr, rd)
	}
	filter := v.Key("Filter")
	param := v.Key("DecodeParms")
	switch filter.Kind() {
	case Null:
	case Name:
		if rd = applyFilter(rd, filter.Name(), param); rd == nil {
			return nil, repairErrf(KindFormat, "unsupported filter %s (%d 0 R)", filter.Name(), strm.ptr.id)
		}
	case Array:
		for i := 0; i < filter.Len(); i++ {
			if rd = applyFilter(rd, filter.Index(i).Name(), param.Index(i)); rd == nil {
				return nil, repairErrf(KindFormat, "unsupported filter %s (%d 0 R)", filter.Index(i).Name(), strm.ptr.id)
			}
		}
	default:
		return nil, repairErrf(KindFormat, "invalid filter specification (%d 0 R)", strm.ptr.id)
	}

	data, err := io.ReadAll(rd)
	if err != nil {
		// Decode errors on a damaged file are format problems, not
		// system failures; truncated flate data is the common case.
		if len(data) > 0 {
			return data, nil
		}
		return nil, &RepairError{Kind: KindFormat, Op: fmt.Sprintf("decode stream (%d 0 R)", strm.ptr.id), Err: err}
	}
	return data, nil
}

func (d *Document) entryFor(num uint32) *xrefEntry {
	if num == 0 || num >= uint32(len(d.store)) {
		return nil
	}
	return &d.store[num]
}

// Reader returns the data contained in the stream v, decrypted and
// decoded. If v.Kind() != Stream, Reader returns a ReadCloser that
// responds to all reads with a "stream not present" error.
func (v Value) Reader() io.ReadCloser {
	strm, ok := v.data.(stream)
	if !ok {
		return io.NopCloser(&errorReader{err: repairErrf(KindFormat, "stream not present")})
	}
	data, err := v.d.readStreamData(strm)
	if err != nil {
		return io.NopCloser(&errorReader{err: err})
	}
	return io.NopCloser(bytes.NewReader(data))
}

// errorReader always returns its error.
type errorReader struct {
	err error
}

func (r *errorReader) Read([]byte) (int, error) {
	return 0, r.err
}
