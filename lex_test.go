// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"io"
	"strings"
	"testing"
)

func newTestBuffer(data string) *buffer {
	return newBuffer(strings.NewReader(data), 0)
}

func TestReadToken(t *testing.T) {
	tests := []struct {
		input string
		want  []token
	}{
		{"1 0 obj", []token{int64(1), int64(0), keyword("obj")}},
		{"-42 3.14 -2.5", []token{int64(-42), float64(3.14), float64(-2.5)}},
		{"true false null", []token{true, false, keyword("null")}},
		{"/Name /Two#20words", []token{name("Name"), name("Two words")}},
		{"(hello) (a(b)c)", []token{"hello", "a(b)c"}},
		{"(esc\\n\\(ok\\))", []token{"esc\n(ok)"}},
		{"(octal \\101)", []token{"octal A"}},
		{"<48656C6C6F>", []token{"Hello"}},
		{"<48 65 6C6C 6F>", []token{"Hello"}},
		{"<< /A 1 >>", []token{keyword("<<"), name("A"), int64(1), keyword(">>")}},
		{"[1 2]", []token{keyword("["), int64(1), int64(2), keyword("]")}},
		{"% comment\n7", []token{int64(7)}},
		{"", []token{io.EOF}},
	}
	for _, tt := range tests {
		b := newTestBuffer(tt.input)
		for i, want := range tt.want {
			if got := b.readToken(); got != want {
				t.Errorf("%q token %d = %#v, want %#v", tt.input, i, got, want)
			}
		}
		putBuffer(b)
	}
}

func TestReadTokenSkipStrings(t *testing.T) {
	// In scan mode string bodies are discarded, so string contents can
	// never masquerade as structure.
	b := newTestBuffer("(megabytes of (nested) junk) <DEADBEEF> 5")
	defer putBuffer(b)
	b.skipStrings = true

	if got := b.readToken(); got != "" {
		t.Errorf("skipped literal = %#v, want empty string", got)
	}
	if got := b.readToken(); got != "" {
		t.Errorf("skipped hex = %#v, want empty string", got)
	}
	if got := b.readToken(); got != int64(5) {
		t.Errorf("next token = %#v, want 5", got)
	}
}

func TestSkipToWhitespace(t *testing.T) {
	b := newTestBuffer(")))garbage here")
	defer putBuffer(b)

	if got := b.readToken(); got != nil {
		t.Fatalf("delimiter token = %#v, want nil (lexical error)", got)
	}
	b.skipToWhitespace()
	if got := b.readToken(); got != keyword("here") {
		t.Errorf("token after resync = %#v, want keyword here", got)
	}
}

func TestUnreadToken(t *testing.T) {
	b := newTestBuffer("1 2")
	defer putBuffer(b)

	tok := b.readToken()
	b.unreadToken(tok)
	if got := b.readToken(); got != int64(1) {
		t.Errorf("reread token = %#v, want 1", got)
	}
	if got := b.readToken(); got != int64(2) {
		t.Errorf("next token = %#v, want 2", got)
	}
}

func TestReadOffsetAndSeek(t *testing.T) {
	data := "first second third"
	b := newTestBuffer(data)
	defer putBuffer(b)

	b.readToken()
	if got := b.readOffset(); got != int64(len("first")) {
		t.Errorf("readOffset after first token = %d, want %d", got, len("first"))
	}
	b.seek(int64(strings.Index(data, "third")))
	if got := b.readToken(); got != keyword("third") {
		t.Errorf("token after seek = %#v, want keyword third", got)
	}
	if got := b.readToken(); got != io.EOF {
		t.Errorf("token at end = %#v, want io.EOF", got)
	}
}

func TestReadObjectDefinition(t *testing.T) {
	b := newTestBuffer("7 0 obj << /A [1 2 /X] /Ref 3 0 R >> endobj")
	defer putBuffer(b)

	def, ok := b.readObject().(objdef)
	if !ok {
		t.Fatal("readObject did not return an objdef")
	}
	if def.ptr != (objptr{7, 0}) {
		t.Errorf("ptr = %v, want 7 0", def.ptr)
	}
	d, ok := def.obj.(dict)
	if !ok {
		t.Fatalf("object = %#v, want dict", def.obj)
	}
	a, ok := d["A"].(array)
	if !ok || len(a) != 3 {
		t.Fatalf("A = %#v, want 3-element array", d["A"])
	}
	if d["Ref"] != (objptr{3, 0}) {
		t.Errorf("Ref = %#v, want objptr 3 0", d["Ref"])
	}
}

func TestReadDictUnterminated(t *testing.T) {
	// A dictionary cut off mid-entry still yields what was parsed,
	// with the EOF flag telling the caller the input ran out.
	b := newTestBuffer("<< /A 1 /B")
	defer putBuffer(b)

	if tok := b.readToken(); tok != keyword("<<") {
		t.Fatalf("first token = %#v", tok)
	}
	d, ok := b.readDict().(dict)
	if !ok {
		t.Fatal("readDict did not return a dict")
	}
	if d["A"] != int64(1) {
		t.Errorf("A = %#v, want 1", d["A"])
	}
	if !b.eof {
		t.Error("eof not set after truncated dictionary")
	}
}
