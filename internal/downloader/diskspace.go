//go:build !windows

package downloader

import (
	"golang.org/x/sys/unix"
)

// osFreeSpace reports the available bytes on the volume holding path.
func osFreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
