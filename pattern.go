// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"io"
)

// patternScanBlock is the read granularity for forward byte-pattern
// scans. bytes.Index is vectorized on amd64, so wider blocks amortize
// the per-call overhead on CPUs with wide vector units. Variable so
// tests can exercise the block-straddling path with small blocks.
var patternScanBlock = patternBlockSize()

// scanForward searches the file for pat, starting at the buffer's
// current position. On a match the buffer is repositioned just past the
// final byte of pat and the new offset is returned. On EOF without a
// match the buffer is positioned at end of input and -1 is returned.
//
// This is the 9-byte sliding-window "endstream" recovery expressed as a
// block scan: reads carry a len(pat)-1 overlap so a pattern straddling
// two blocks is still found.
func (b *buffer) scanForward(pat []byte) int64 {
	if len(pat) == 0 {
		return b.readOffset()
	}
	blk := make([]byte, patternScanBlock+len(pat)-1)
	overlap := len(pat) - 1
	off := b.readOffset() // file offset of blk[carry]
	carry := 0            // valid tail bytes copied to blk[:carry]
	for {
		n, err := b.r.ReadAt(blk[carry:], off)
		total := carry + n
		if i := bytes.Index(blk[:total], pat); i >= 0 {
			end := off - int64(carry) + int64(i) + int64(len(pat))
			b.seek(end)
			return end
		}
		if err != nil || n == 0 {
			if err != nil && err != io.EOF {
				b.readErr = systemErr(err, "pattern scan")
			}
			b.seek(off + int64(n))
			b.eof = true
			return -1
		}
		if total > overlap {
			copy(blk, blk[total-overlap:total])
			carry = overlap
		} else {
			carry = total
		}
		off += int64(n)
	}
}
