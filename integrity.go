// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"io"
)

// IntegrityStatus is the result of a cheap pre-repair triage of a file.
// It reads only the head and tail of the file and never parses objects,
// so it is safe to run on arbitrarily damaged input.
type IntegrityStatus struct {
	// HasBanner indicates a %PDF- or %FDF- version marker was found
	// within the first 1024 bytes.
	HasBanner bool
	// IsFDF indicates the banner was %FDF-.
	IsFDF bool
	// HasEOFMarker indicates a %%EOF marker near the end of the file;
	// its absence usually means truncation.
	HasEOFMarker bool
	// HasStartxref indicates a startxref marker near the end.
	HasStartxref bool
	// HasXref indicates an xref table or cross-reference stream near
	// the end of the file.
	HasXref bool
	// EstimatedObjects is a rough object count from sampling the file
	// for "obj" markers.
	EstimatedObjects int
	// Issues describes everything found wrong, in discovery order.
	Issues []string
}

// NeedsRepair reports whether the file looks unlikely to load through
// a normal xref read and should go straight to Repair.
func (s *IntegrityStatus) NeedsRepair() bool {
	return !s.HasStartxref || !s.HasXref || !s.HasEOFMarker
}

// CheckIntegrity triages a file before deciding how to load it.
func CheckIntegrity(f io.ReaderAt, size int64) *IntegrityStatus {
	status := &IntegrityStatus{}

	if size < 20 {
		status.Issues = append(status.Issues, "file too small to be a PDF")
		return status
	}

	headLen := int64(1024)
	if size < headLen {
		headLen = size
	}
	head := make([]byte, headLen)
	n, _ := f.ReadAt(head, 0)
	head = head[:n]

	switch {
	case bytes.Contains(head, []byte("%PDF-")):
		status.HasBanner = true
	case bytes.Contains(head, []byte("%FDF-")):
		status.HasBanner = true
		status.IsFDF = true
	default:
		status.Issues = append(status.Issues, "missing version marker")
	}

	tailLen := int64(4096)
	if size < tailLen {
		tailLen = size
	}
	tail := make([]byte, tailLen)
	n, _ = f.ReadAt(tail, size-tailLen)
	tail = tail[:n]

	if bytes.Contains(tail, []byte("%%EOF")) {
		status.HasEOFMarker = true
	} else {
		status.Issues = append(status.Issues, "missing %%EOF marker, file may be truncated")
	}
	if bytes.Contains(tail, []byte("startxref")) {
		status.HasStartxref = true
	} else {
		status.Issues = append(status.Issues, "missing startxref marker")
	}
	if bytes.Contains(tail, []byte("xref")) ||
		bytes.Contains(tail, []byte("/Type /XRef")) ||
		bytes.Contains(tail, []byte("/Type/XRef")) {
		status.HasXref = true
	} else {
		status.Issues = append(status.Issues, "no xref table or stream near end of file")
	}

	// Estimate object count by sampling the head of the file.
	sampleLen := int64(512 << 10)
	if size < sampleLen {
		sampleLen = size
	}
	sample := make([]byte, sampleLen)
	n, _ = f.ReadAt(sample, 0)
	count := bytes.Count(sample[:n], []byte(" obj"))
	if size > sampleLen && sampleLen > 0 {
		count = int(float64(count) * float64(size) / float64(sampleLen))
	}
	status.EstimatedObjects = count

	return status
}
