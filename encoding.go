// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import "unicode/utf16"

// isUTF16 reports whether the string carries the UTF-16BE byte-order
// mark PDF uses for text strings.
func isUTF16(s string) bool {
	return len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff
}

// utf16Decode decodes big-endian UTF-16 text (without the byte-order
// mark). A trailing odd byte is dropped.
func utf16Decode(s string) string {
	u := make([]uint16, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		u = append(u, uint16(s[i])<<8|uint16(s[i+1]))
	}
	return string(utf16.Decode(u))
}
