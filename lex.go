// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Reading of PDF tokens from a raw, possibly damaged byte stream.

package pdf

import (
	"io"
	"strconv"
)

// A token is a PDF token in the input stream, one of the following Go types:
//
//	bool, a PDF boolean
//	int64, a PDF integer
//	float64, a PDF real
//	string, a PDF string literal
//	keyword, a PDF keyword
//	name, a PDF name without the leading slash
//
// io.EOF is returned as a token at end of input. A nil token signals a
// lexical error: the caller decides whether to resynchronize or give up.
type token interface{}

// A name is a PDF name, without the leading slash.
type name string

// A keyword is a PDF keyword.
// Delimiter tokens used in higher-level syntax,
// such as "<<", ">>", "[", "]", "{", "}", are also treated as keywords.
type keyword string

// A buffer lexes PDF tokens from an io.ReaderAt. Unlike a plain
// io.Reader wrapper it can seek in both directions, which the repair
// engine needs when a declared /Length turns out to be wrong and the
// stream has to be rescanned from its start.
type buffer struct {
	r           io.ReaderAt
	buf         []byte  // buffered data
	pos         int     // read index in buf
	offset      int64   // file offset just past buf; aka offset of next reload
	tmp         []byte  // scratch space for accumulating a token
	unread      []token // queue of read but then unread tokens
	allowObjptr bool
	allowStream bool
	skipStrings bool // scan mode: skip string bodies instead of building them
	eof         bool
	readErr     error // sticky system error from the underlying reader
	key         []byte
	useAES      bool
	objptr      objptr
}

// newBuffer returns a pooled buffer lexing r starting at the given
// file offset.
func newBuffer(r io.ReaderAt, offset int64) *buffer {
	b := getBuffer()
	b.r = r
	b.offset = offset
	return b
}

// seek repositions the buffer at an arbitrary file offset. Any pending
// unread tokens belong to the old position and are dropped.
func (b *buffer) seek(offset int64) {
	b.offset = offset
	b.buf = b.buf[:0]
	b.pos = 0
	b.unread = b.unread[:0]
	b.eof = false
}

func (b *buffer) reload() bool {
	if b.eof || b.readErr != nil {
		b.buf = b.buf[:0]
		b.pos = 0
		return false
	}
	n, err := b.r.ReadAt(b.buf[:cap(b.buf)], b.offset)
	if n == 0 {
		b.buf = b.buf[:0]
		b.pos = 0
		b.eof = true
		b.readErr = systemErr(err, "read")
		return false
	}
	b.offset += int64(n)
	b.buf = b.buf[:n]
	b.pos = 0
	return true
}

// readByte returns the next byte, or '\n' at end of input with b.eof set.
func (b *buffer) readByte() byte {
	if b.pos >= len(b.buf) {
		b.reload()
		if b.pos >= len(b.buf) {
			b.eof = true
			return '\n'
		}
	}
	c := b.buf[b.pos]
	b.pos++
	return c
}

func (b *buffer) unreadByte() {
	if b.pos > 0 {
		b.pos--
	}
}

// readOffset is the file offset of the next byte readByte would return.
func (b *buffer) readOffset() int64 {
	return b.offset - int64(len(b.buf)) + int64(b.pos)
}

func (b *buffer) unreadToken(t token) {
	b.unread = append(b.unread, t)
}

// skipToWhitespace discards bytes up to the next whitespace byte. This
// is the scanner's forward-progress guarantee after a lexical error:
// a corrupt byte run costs at most the current token.
func (b *buffer) skipToWhitespace() {
	for !b.eof {
		if isSpace(b.readByte()) {
			return
		}
	}
}

func (b *buffer) readToken() token {
	if n := len(b.unread); n > 0 {
		t := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return t
	}

	// Find first non-space, non-comment byte.
	c := b.readByte()
	for {
		if isSpace(c) {
			if b.eof {
				return io.EOF
			}
			c = b.readByte()
		} else if c == '%' {
			for c != '\r' && c != '\n' {
				c = b.readByte()
			}
		} else {
			break
		}
	}

	switch c {
	case '<':
		if b.readByte() == '<' {
			return keyword("<<")
		}
		b.unreadByte()
		if b.skipStrings {
			return b.skipHexString()
		}
		return b.readHexString()

	case '(':
		if b.skipStrings {
			return b.skipLiteralString()
		}
		return b.readLiteralString()

	case '[', ']', '{', '}':
		return keyword(string(c))

	case '/':
		return b.readName()

	case '>':
		if b.readByte() == '>' {
			return keyword(">>")
		}
		b.unreadByte()
		fallthrough

	default:
		if isDelim(c) {
			// Unexpected delimiter: lexical error token.
			return nil
		}
		b.unreadByte()
		return b.readKeyword()
	}
}

func (b *buffer) readHexString() token {
	tmp := b.tmp[:0]
	for {
	Loop:
		c := b.readByte()
		if c == '>' || b.eof {
			break
		}
		if isSpace(c) {
			goto Loop
		}
	Loop2:
		c2 := b.readByte()
		if isSpace(c2) {
			goto Loop2
		}
		// Per PDF spec, if there's an odd number of hex digits,
		// the final digit is assumed to be followed by 0.
		if c2 == '>' {
			x := unhex(c)
			if x < 0 {
				break
			}
			tmp = append(tmp, byte(x<<4))
			break
		}
		x1, x2 := unhex(c), unhex(c2)
		if x1 < 0 || x2 < 0 {
			// Invalid hex chars are ignored, the way viewers do.
			continue
		}
		tmp = append(tmp, byte(x1<<4|x2))
	}
	b.tmp = tmp
	return string(tmp)
}

// skipHexString consumes a hex string without building its value.
func (b *buffer) skipHexString() token {
	for !b.eof {
		if b.readByte() == '>' {
			break
		}
	}
	return ""
}

func unhex(b byte) int {
	switch {
	case '0' <= b && b <= '9':
		return int(b) - '0'
	case 'a' <= b && b <= 'f':
		return int(b) - 'a' + 10
	case 'A' <= b && b <= 'F':
		return int(b) - 'A' + 10
	}
	return -1
}

func (b *buffer) readLiteralString() token {
	tmp := b.tmp[:0]
	depth := 1
Loop:
	for !b.eof {
		c := b.readByte()
		switch c {
		default:
			tmp = append(tmp, c)
		case '(':
			depth++
			tmp = append(tmp, c)
		case ')':
			if depth--; depth == 0 {
				break Loop
			}
			tmp = append(tmp, c)
		case '\\':
			switch c = b.readByte(); c {
			case 'n':
				tmp = append(tmp, '\n')
			case 'r':
				tmp = append(tmp, '\r')
			case 'b':
				tmp = append(tmp, '\b')
			case 't':
				tmp = append(tmp, '\t')
			case 'f':
				tmp = append(tmp, '\f')
			case '(', ')', '\\':
				tmp = append(tmp, c)
			case '\r':
				if b.readByte() != '\n' {
					b.unreadByte()
				}
				fallthrough
			case '\n':
				// no append
			case '0', '1', '2', '3', '4', '5', '6', '7':
				x := int(c - '0')
				for i := 0; i < 2; i++ {
					c = b.readByte()
					if c < '0' || c > '7' {
						b.unreadByte()
						break
					}
					x = x*8 + int(c-'0')
				}
				tmp = append(tmp, byte(x&0xFF))
			default:
				// Unrecognized escape: backslash is dropped,
				// the character is kept literally.
				tmp = append(tmp, c)
			}
		}
	}
	b.tmp = tmp
	return string(tmp)
}

// skipLiteralString consumes a literal string without building its
// value. Damaged files sometimes contain megabytes of unterminated
// string data; during the repair scan the contents are never needed.
func (b *buffer) skipLiteralString() token {
	depth := 1
	for !b.eof {
		switch b.readByte() {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				return ""
			}
		case '\\':
			b.readByte()
		}
	}
	return ""
}

func (b *buffer) readName() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		if c == '#' {
			c1 := b.readByte()
			if isDelim(c1) || isSpace(c1) {
				// Malformed: # at end of name. Keep it literally.
				b.unreadByte()
				tmp = append(tmp, '#')
				continue
			}
			c2 := b.readByte()
			if isDelim(c2) || isSpace(c2) {
				b.unreadByte()
				x := unhex(c1)
				if x < 0 {
					tmp = append(tmp, '#', c1)
					continue
				}
				tmp = append(tmp, byte(x<<4))
				continue
			}
			x1, x2 := unhex(c1), unhex(c2)
			if x1 < 0 || x2 < 0 {
				tmp = append(tmp, '#', c1, c2)
				continue
			}
			tmp = append(tmp, byte(x1<<4|x2))
			continue
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	return name(string(tmp))
}

func (b *buffer) readKeyword() token {
	tmp := b.tmp[:0]
	for {
		c := b.readByte()
		if isDelim(c) || isSpace(c) {
			b.unreadByte()
			break
		}
		tmp = append(tmp, c)
	}
	b.tmp = tmp
	s := string(tmp)
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case isInteger(s):
		x, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Overflowing integers in corrupted input degrade to
			// a plain keyword instead of aborting the lex.
			return keyword(s)
		}
		return x
	case isReal(s):
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return keyword(s)
		}
		return x
	}
	return keyword(s)
}

func isInteger(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || '9' < c {
			return false
		}
	}
	return true
}

func isReal(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if len(s) == 0 {
		return false
	}
	ndot := 0
	for _, c := range s {
		if c == '.' {
			ndot++
			continue
		}
		if c < '0' || '9' < c {
			return false
		}
	}
	return ndot == 1
}

func isSpace(b byte) bool {
	switch b {
	case '\x00', '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '<', '>', '(', ')', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
