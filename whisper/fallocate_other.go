//go:build !linux

package whisper

import (
	"io"
	"os"
)

// fallocateZero falls back to a buffered zero-write loop on platforms
// without fallocate(2); unlike Truncate, this really allocates the
// archive region's blocks rather than leaving a hole, matching the
// non-sparse contract of §4.1/§4.6.
func fallocateZero(file *os.File, size int64) error {
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	return zeroFillBuffered(file, size-offset)
}
