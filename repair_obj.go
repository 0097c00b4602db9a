// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import "io"

var endstreamPat = []byte("endstream")

// objResult is what repairObj reports back to the scanner: the parsed
// header dictionary (nil for non-dictionary objects), recovered stream
// bounds, and the first token it read past the object so the scanner
// can resume without re-lexing.
type objResult struct {
	dict   dict
	stmOfs int64
	stmLen int64 // -1 when the declared /Length checked out
	tok    token
	tokOfs int64
}

// repairObj parses one object with the buffer positioned just past the
// "obj" keyword. It never trusts the declared /Length: the value is
// verified by looking for "endstream" where it claims, and on mismatch
// the real boundary is found by a byte-pattern scan.
func (d *Document) repairObj(b *buffer, num, gen int64) (objResult, error) {
	res := objResult{stmLen: -1}

	tokOfs := b.readOffset()
	tok := b.readToken()
	if tok == io.EOF {
		// A truncated object at end of file must not overwrite a good
		// object recorded earlier under the same number.
		if b.readErr != nil {
			return res, b.readErr
		}
		return res, repairErrf(KindFormat, "truncated object (%d %d R)", num, gen)
	}

	declaredLen := int64(-1)
	if tok == keyword("<<") {
		b.skipStrings = false
		obj := b.readDict()
		b.skipStrings = true
		if b.readErr != nil {
			return res, b.readErr
		}
		if b.eof {
			// The dictionary ran off the end of the file. Failing here
			// keeps a truncated tail object from overwriting a good
			// one recorded earlier under the same number.
			return res, repairErrf(KindFormat, "truncated object (%d %d R)", num, gen)
		}
		res.dict, _ = obj.(dict)
		// Only a direct integer counts; an indirect /Length cannot be
		// resolved while the table is still being built.
		if v, ok := res.dict["Length"].(int64); ok {
			declaredLen = v
		}
		tokOfs = b.readOffset()
		tok = b.readToken()
	}

	// Skip ahead to a resumption anchor: the object's own stream or
	// endobj, or a bare integer that likely starts the next header.
	for {
		if tok == nil || tok == io.EOF ||
			tok == keyword("stream") || tok == keyword("endobj") {
			break
		}
		if _, ok := tok.(int64); ok {
			break
		}
		tokOfs = b.readOffset()
		tok = b.readToken()
	}
	if b.readErr != nil {
		return res, b.readErr
	}

	if tok == keyword("stream") {
		return d.repairStream(b, num, gen, declaredLen, res)
	}
	if tok == keyword("endobj") {
		res.tokOfs = b.readOffset()
		res.tok = b.readToken()
		return res, nil
	}
	// Lex error, EOF, or an integer anchor: hand it straight back.
	if tok != nil && tok != io.EOF {
		d.warnf("object (%d %d R) missing endobj token", num, gen)
	}
	res.tok, res.tokOfs = tok, tokOfs
	return res, nil
}

// repairStream locates the stream data boundaries, with the buffer
// positioned just past the "stream" keyword.
func (d *Document) repairStream(b *buffer, num, gen, declaredLen int64, res objResult) (objResult, error) {
	switch b.readByte() {
	case '\r':
		if b.readByte() != '\n' {
			b.unreadByte()
		}
	case '\n':
		// ok
	default:
		// Missing newline after stream keyword: the byte belongs to
		// the data.
		b.unreadByte()
	}
	res.stmOfs = b.readOffset()

	if declaredLen >= 0 {
		b.seek(res.stmOfs + declaredLen)
		if b.readToken() == keyword("endstream") {
			// Fast path: the declared length is right, no rewrite
			// needed.
			res.stmLen = -1
			return d.atStreamEnd(b, num, gen, res)
		}
		if b.readErr != nil {
			return res, b.readErr
		}
		d.warnf("object (%d %d R): stream length %d is wrong, scanning for endstream", num, gen, declaredLen)
		b.seek(res.stmOfs)
	}

	end := b.scanForward(endstreamPat)
	if b.readErr != nil {
		return res, b.readErr
	}
	if end < 0 {
		// No endstream before EOF: everything left is data.
		res.stmLen = d.end - res.stmOfs - int64(len(endstreamPat))
		if res.stmLen < 0 {
			res.stmLen = 0
		}
		res.tok, res.tokOfs = io.EOF, d.end
		return res, nil
	}
	res.stmLen = end - res.stmOfs - int64(len(endstreamPat))
	return d.atStreamEnd(b, num, gen, res)
}

// atStreamEnd reads past endstream, tolerating a missing endobj, and
// produces the scanner's lookahead token.
func (d *Document) atStreamEnd(b *buffer, num, gen int64, res objResult) (objResult, error) {
	res.tokOfs = b.readOffset()
	res.tok = b.readToken()
	if b.readErr != nil {
		return res, b.readErr
	}
	if res.tok != keyword("endobj") {
		d.warnf("object (%d %d R) missing endobj token", num, gen)
		return res, nil
	}
	res.tokOfs = b.readOffset()
	res.tok = b.readToken()
	return res, nil
}
