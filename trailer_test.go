// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelinkFreeList(t *testing.T) {
	d := NewDocument(bytes.NewReader(nil), 0)
	d.store = make([]xrefEntry, 5)
	d.store[1] = xrefEntry{kind: entryNormal, ofs: 10}
	d.store[3] = xrefEntry{kind: entryNormal, ofs: 20}
	// 2 and 4 were never claimed.

	d.relinkFreeList()

	require.Equal(t, entryFree, d.store[0].kind)
	assert.Equal(t, maxGenNumber, d.store[0].gen)
	assert.Equal(t, int64(2), d.store[0].ofs)
	assert.Equal(t, int64(4), d.store[2].ofs)
	assert.Equal(t, int64(0), d.store[4].ofs)
	assert.Equal(t, 1, d.store[2].gen)
	assert.Equal(t, 1, d.store[4].gen)
	assert.Equal(t, entryNormal, d.store[1].kind)
	assert.Equal(t, entryNormal, d.store[3].kind)
}

func TestRelinkFreeListGenSaturates(t *testing.T) {
	d := NewDocument(bytes.NewReader(nil), 0)
	d.store = make([]xrefEntry, 2)
	d.store[1] = xrefEntry{kind: entryFree, gen: maxGenNumber}

	d.relinkFreeList()

	assert.Equal(t, maxGenNumber, d.store[1].gen)
	assert.Equal(t, maxGenNumber, d.store[0].gen)
}

func TestSynthesizeTrailerIdempotent(t *testing.T) {
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog >> endobj\n" +
		"2 0 obj << /Producer (acme) >> endobj\n" +
		"trailer << /Root 1 0 R /Info 2 0 R >>\n"
	d := NewDocument(bytes.NewReader([]byte(data)), int64(len(data)))

	st, err := d.scanObjects(d.checkBanner())
	require.NoError(t, err)
	require.NoError(t, d.populateStore(st))
	require.NoError(t, d.expandObjStms())
	d.demoteDanglingContainers()
	d.relinkFreeList()

	require.NoError(t, d.synthesizeTrailer(st))
	first := objfmt(d.trailer)

	d.relinkFreeList()
	require.NoError(t, d.synthesizeTrailer(st))
	assert.Equal(t, first, objfmt(d.trailer))
}

func TestSearchRootFallback(t *testing.T) {
	// No trailer dictionary anywhere: the catalog has to be found by
	// walking the store backwards. The higher-numbered catalog is the
	// one that counts.
	data := "%PDF-1.4\n" +
		"2 0 obj << /Type /Catalog /Marker /Old >> endobj\n" +
		"3 0 obj << /Producer (acme) >> endobj\n" +
		"4 0 obj << /Type /Catalog /Marker /New >> endobj\n"
	d := repairDoc(t, data)

	assert.Equal(t, "New", d.Trailer().Key("Root").Key("Marker").Name())
	assert.Equal(t, "acme", d.Trailer().Key("Info").Key("Producer").RawString())
}

func TestSearchRootInfoByCreator(t *testing.T) {
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog >> endobj\n" +
		"2 0 obj << /Creator (tool) >> endobj\n" +
		"trailer << /Root 1 0 R >>\n"
	d := repairDoc(t, data)

	assert.Equal(t, "tool", d.Trailer().Key("Info").Key("Creator").RawString())
}

func TestTrailerSizeMatchesStore(t *testing.T) {
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog >> endobj\n" +
		"40 0 obj << /A 1 >> endobj\n" +
		"trailer << /Root 1 0 R >>\n"
	d := repairDoc(t, data)

	assert.Equal(t, 41, d.Size())
	assert.Equal(t, int64(41), d.Trailer().Key("Size").Int64())
	// Everything between the two real objects is on the free chain.
	assert.Equal(t, entryFree, d.store[2].kind)
	assert.Equal(t, entryFree, d.store[39].kind)
}

func TestTrailerRootMustBeIndirect(t *testing.T) {
	// A direct /Root value cannot be relocated into the new trailer;
	// the candidate walk must skip it and use the indirect one.
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Marker /Good >> endobj\n" +
		"trailer << /Root 1 0 R >>\n" +
		"trailer << /Root << /Type /Catalog /Marker /Inline >> >>\n"
	d := repairDoc(t, data)

	assert.Equal(t, "Good", d.Trailer().Key("Root").Key("Marker").Name())
}

func TestTrailerRootMustBeDict(t *testing.T) {
	// The newest candidate resolves to a non-dictionary; fall back.
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Marker /Good >> endobj\n" +
		"2 0 obj 17 endobj\n" +
		"trailer << /Root 1 0 R >>\n" +
		"trailer << /Root 2 0 R >>\n"
	d := repairDoc(t, data)

	assert.Equal(t, "Good", d.Trailer().Key("Root").Key("Marker").Name())
}
