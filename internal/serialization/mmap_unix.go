//go:build unix

package serialization

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only. It falls back to reading the file when mmap
// is unavailable (e.g. some network filesystems). release must be called
// once the data is no longer referenced.
func mapFile(f *os.File, size int64) ([]byte, func(), error) {
	if size == 0 {
		return []byte{}, func() {}, nil
	}
	data, err := unix.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		int(size),
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		return data, func() { _ = unix.Munmap(data) }, nil
	}
	return readFile(f, size)
}
