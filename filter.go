// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bufio"
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

func applyFilter(rd io.Reader, name string, param Value) io.Reader {
	switch name {
	default:
		// Unknown filter, return nil to signal error
		return nil
	case "FlateDecode":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil
		}
		return applyPredictor(zr, param)
	case "LZWDecode":
		early := param.Key("EarlyChange")
		if early.Kind() != Null && early.Int64() != 1 {
			return nil
		}
		lr := lzw.NewReader(rd, lzw.MSB, 8)
		return applyPredictor(lr, param)
	case "ASCIIHexDecode":
		return newASCIIHexDecoder(rd)
	case "ASCII85Decode":
		return ascii85.NewDecoder(newAlphaReader(rd))
	case "DCTDecode":
		// JPEG-compressed data is already suitable for consumers; leave as-is.
		return rd
	case "JPXDecode":
		// JPEG2000-compressed data; passthrough for now.
		return rd
	case "CCITTFaxDecode":
		// CCITT Group 3/4 data is left as-is for callers that understand the encoding.
		return rd
	case "RunLengthDecode":
		return newRunLengthReader(rd)
	}
}

func applyPredictor(rd io.Reader, param Value) io.Reader {
	if param.Kind() != Dict {
		return rd
	}
	pred := param.Key("Predictor")
	if pred.Kind() == Null {
		return rd
	}
	switch pred.Int64() {
	case 1, 2:
		return rd
	case 12:
		columns := param.Key("Columns").Int64()
		if columns <= 0 {
			columns = 1
		}
		return &pngUpReader{r: rd, hist: make([]byte, 1+columns), tmp: make([]byte, 1+columns)}
	default:
		if DebugOn {
			fmt.Println("unknown predictor", pred)
		}
		return rd
	}
}

type pngUpReader struct {
	r    io.Reader
	hist []byte
	tmp  []byte
	pend []byte
}

func (r *pngUpReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.tmp)
		if err != nil {
			return n, err
		}
		if r.tmp[0] != 2 {
			return n, fmt.Errorf("malformed PNG-Up encoding")
		}
		for i, b := range r.tmp {
			r.hist[i] += b
		}
		r.pend = r.hist[1:]
	}
	return n, nil
}

type runLengthReader struct {
	r   *bufio.Reader
	buf []byte
	eod bool
}

func newRunLengthReader(rd io.Reader) io.Reader {
	return &runLengthReader{r: bufio.NewReader(rd)}
}

func (r *runLengthReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for len(p) > 0 {
		if len(r.buf) == 0 {
			if r.eod {
				if n == 0 {
					return 0, io.EOF
				}
				break
			}
			if err := r.fill(); err != nil {
				if err == io.EOF {
					if n == 0 {
						return 0, io.EOF
					}
					break
				}
				return n, err
			}
		}
		m := copy(p, r.buf)
		n += m
		p = p[m:]
		r.buf = r.buf[m:]
	}
	return n, nil
}

func (r *runLengthReader) fill() error {
	b, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	if b == 128 {
		r.eod = true
		return io.EOF
	}
	if b <= 127 {
		count := int(b) + 1
		r.buf = make([]byte, count)
		if _, err := io.ReadFull(r.r, r.buf); err != nil {
			return err
		}
		return nil
	}
	// 129..255 repeat
	count := 257 - int(b)
	val, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	r.buf = bytes.Repeat([]byte{val}, count)
	return nil
}

// hexTable maps a byte to its hex nibble value, -1 for non-hex bytes.
var hexTable = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = int8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		t[c] = int8(c - 'a' + 10)
	}
	for c := 'A'; c <= 'F'; c++ {
		t[c] = int8(c - 'A' + 10)
	}
	return
}()

// asciiHexDecoder decodes ASCIIHexDecode filter data. An odd trailing
// nibble is padded with zero per the spec for this filter; whitespace
// is skipped and '>' ends the data.
type asciiHexDecoder struct {
	r       *bufio.Reader
	err     error
	endSeen bool
}

func newASCIIHexDecoder(rd io.Reader) io.Reader {
	return &asciiHexDecoder{r: bufio.NewReader(rd)}
}

func (d *asciiHexDecoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n := 0
	for n < len(p) && !d.endSeen {
		h1, ok, err := d.nibble()
		if err != nil || !ok {
			d.err = io.EOF
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		h2, ok, err := d.nibble()
		if err != nil || !ok {
			// Odd count: high nibble with implied low zero.
			d.err = io.EOF
			p[n] = byte(h1 << 4)
			n++
			return n, nil
		}
		p[n] = byte(h1<<4 | h2)
		n++
	}
	return n, nil
}

func (d *asciiHexDecoder) nibble() (int8, bool, error) {
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			return 0, false, err
		}
		switch c {
		case ' ', '\t', '\n', '\r', '\f', 0:
			continue
		case '>':
			d.endSeen = true
			return 0, false, nil
		}
		if h := hexTable[c]; h >= 0 {
			return h, true, nil
		}
		// Invalid byte, skip.
	}
}

// checkASCII85 classifies one byte of an ASCII85 stream: the byte
// itself when it may be handed to the decoder, 1 for the '~' that
// begins the "~>" terminator, and 0 for bytes to drop.
func checkASCII85(c byte) byte {
	switch {
	case c >= '!' && c <= 'u':
		return c
	case c == 'z', c == '>':
		return c
	case c == '~':
		return 1
	}
	return 0
}

// alphaReader filters an ASCII85 stream down to the bytes the
// encoding/ascii85 decoder accepts and stops at the "~>" terminator,
// which the decoder does not understand.
type alphaReader struct {
	r    io.Reader
	done bool
}

func newAlphaReader(rd io.Reader) io.Reader {
	return &alphaReader{r: rd}
}

func (r *alphaReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	buf := make([]byte, len(p))
	nr, err := r.r.Read(buf)
	n := 0
	for _, c := range buf[:nr] {
		switch checkASCII85(c) {
		case 0:
			continue
		case 1:
			r.done = true
			if n == 0 && err == nil {
				err = io.EOF
			}
			return n, err
		}
		p[n] = c
		n++
	}
	if n == 0 && err == nil && nr > 0 {
		// Everything in this chunk was filtered out; try again.
		return r.Read(p)
	}
	return n, err
}
