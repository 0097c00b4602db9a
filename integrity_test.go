// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"strings"
	"testing"
)

func TestCheckIntegrityIntact(t *testing.T) {
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog >> endobj\n" +
		"xref\n0 2\n" +
		"trailer << /Root 1 0 R /Size 2 >>\n" +
		"startxref\n45\n%%EOF\n"
	s := CheckIntegrity(bytes.NewReader([]byte(data)), int64(len(data)))

	if !s.HasBanner || s.IsFDF {
		t.Errorf("banner = %v fdf = %v, want banner and not fdf", s.HasBanner, s.IsFDF)
	}
	if !s.HasEOFMarker || !s.HasStartxref || !s.HasXref {
		t.Errorf("tail markers = %v %v %v, want all true", s.HasEOFMarker, s.HasStartxref, s.HasXref)
	}
	if s.NeedsRepair() {
		t.Errorf("NeedsRepair() = true on intact file, issues: %v", s.Issues)
	}
	if s.EstimatedObjects != 1 {
		t.Errorf("EstimatedObjects = %d, want 1", s.EstimatedObjects)
	}
}

func TestCheckIntegrityTruncated(t *testing.T) {
	data := "%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog >> endobj\n" +
		"2 0 obj << /Length 100 >>\nstream\ncut off here"
	s := CheckIntegrity(bytes.NewReader([]byte(data)), int64(len(data)))

	if !s.HasBanner {
		t.Error("HasBanner = false")
	}
	if s.HasEOFMarker || s.HasStartxref {
		t.Errorf("tail markers on truncated file: eof=%v startxref=%v", s.HasEOFMarker, s.HasStartxref)
	}
	if !s.NeedsRepair() {
		t.Error("NeedsRepair() = false on truncated file")
	}
	if len(s.Issues) == 0 {
		t.Error("no issues reported for truncated file")
	}
}

func TestCheckIntegrityTooSmall(t *testing.T) {
	s := CheckIntegrity(strings.NewReader("%PDF-1.4"), 8)
	if len(s.Issues) != 1 || !strings.Contains(s.Issues[0], "too small") {
		t.Errorf("Issues = %v, want single too-small issue", s.Issues)
	}
	if !s.NeedsRepair() {
		t.Error("NeedsRepair() = false on tiny file")
	}
}

func TestCheckIntegrityFDF(t *testing.T) {
	data := "%FDF-1.2\n1 0 obj << /FDF <<>> >> endobj\ntrailer <<>>\nstartxref\n0\nxref\n%%EOF\n"
	s := CheckIntegrity(bytes.NewReader([]byte(data)), int64(len(data)))
	if !s.IsFDF || !s.HasBanner {
		t.Errorf("IsFDF = %v HasBanner = %v, want both true", s.IsFDF, s.HasBanner)
	}
}
