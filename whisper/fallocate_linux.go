//go:build linux

package whisper

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// fallocateZero really allocates the archive region's blocks, from the
// current write offset (right after the header/descriptors) up to size,
// using Linux's posix_fallocate-equivalent fallocate(2) mode 0 — the
// non-sparse path of §4.1/§4.6. Falls back to a buffered zero-write loop
// if the underlying filesystem doesn't support fallocate (e.g. tmpfs on
// old kernels).
func fallocateZero(file *os.File, size int64) error {
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	err = unix.Fallocate(int(file.Fd()), 0, offset, size-offset)
	if err == nil {
		return nil
	}
	if err == unix.ENOSYS || err == unix.EOPNOTSUPP {
		return zeroFillBuffered(file, size-offset)
	}
	return err
}
