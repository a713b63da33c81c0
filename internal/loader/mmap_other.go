//go:build !unix && !windows

package loader

import (
	"errors"
	"os"
)

func mapFile(*os.File, int64) ([]byte, error) {
	return nil, errors.New("mmap not supported on this platform")
}

func unmapFile([]byte) error { return nil }
