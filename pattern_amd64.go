//go:build amd64
// +build amd64

package pdf

import "golang.org/x/sys/cpu"

// patternBlockSize picks the block size for forward pattern scans.
// With AVX2 the vectorized bytes.Index dominates, so larger blocks pay
// off; without it, smaller blocks keep the working set cache-friendly.
func patternBlockSize() int {
	if cpu.X86.HasAVX2 {
		return 256 << 10
	}
	return 64 << 10
}
