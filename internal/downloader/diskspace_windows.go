//go:build windows

package downloader

import (
	"math"
)

// osFreeSpace has no probe on Windows; the preflight check is
// effectively disabled there.
func osFreeSpace(path string) (uint64, error) {
	return math.MaxUint64, nil
}
