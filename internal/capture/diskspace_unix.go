//go:build unix

package capture

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func freeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	if stat.Bsize <= 0 {
		return 0, fmt.Errorf("invalid block size %d from filesystem", stat.Bsize)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
