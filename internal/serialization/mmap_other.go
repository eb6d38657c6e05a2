//go:build !unix

package serialization

import (
	"os"
)

func mapFile(f *os.File, size int64) ([]byte, func(), error) {
	return readFile(f, size)
}
