//go:build !amd64
// +build !amd64

package pdf

func patternBlockSize() int {
	return 64 << 10
}
