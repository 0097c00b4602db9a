// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import "sync"

// Pool of lex buffers. A repair scan creates and discards buffers for
// every object stream it opens, so reuse keeps GC pressure flat even
// for files with thousands of containers.
var lexBufferPool = sync.Pool{
	New: func() interface{} {
		return &buffer{
			buf:         make([]byte, 0, 65536), // 64KB read chunks
			tmp:         make([]byte, 0, 256),   // token scratch
			unread:      make([]token, 0, 16),
			allowObjptr: true,
			allowStream: true,
		}
	},
}

func getBuffer() *buffer {
	return lexBufferPool.Get().(*buffer)
}

func putBuffer(b *buffer) {
	b.r = nil
	b.buf = b.buf[:0]
	b.pos = 0
	b.offset = 0
	b.tmp = b.tmp[:0]
	b.unread = b.unread[:0]
	b.allowObjptr = true
	b.allowStream = true
	b.skipStrings = false
	b.eof = false
	b.readErr = nil
	b.key = nil
	b.useAES = false
	b.objptr = objptr{}
	lexBufferPool.Put(b)
}
