package whisper

import (
	"os"

	"github.com/pkg/errors"
)

// Options configures Create (§4.6): the archive set, aggregation method,
// x-files-factor, and whether the archive bodies should be sparsely
// allocated (a hole-punched file that reads as zero until a page is
// written) rather than eagerly zero-filled.
type Options struct {
	AggregationMethod AggregationMethod
	XFilesFactor      float32
	Sparse            bool
}

// DefaultOptions mirrors the teacher's and carbon's conventional
// defaults: average consolidation, half the window must be known to
// propagate, eagerly-filled files.
func DefaultOptions() Options {
	return Options{
		AggregationMethod: Average,
		XFilesFactor:      0.5,
		Sparse:            false,
	}
}

// Create lays out a new whisper file at path from a list of archive
// definitions (conventionally produced by ParseRetentionDefs), in
// ascending-step order, refusing to overwrite an existing file (§4.6).
func Create(path string, archives []ArchiveInfo, opts Options) (*Whisper, error) {
	if !opts.AggregationMethod.valid() {
		return nil, newKindError(ErrInvalidFormat, "unknown aggregation method %v", opts.AggregationMethod)
	}
	if opts.XFilesFactor < 0 || opts.XFilesFactor > 1 {
		return nil, newKindError(ErrInvalidXFilesFactor, "x-files-factor %v out of range [0,1]", opts.XFilesFactor)
	}

	sorted := sortArchivesByStep(archives)
	if err := validateArchiveList(sorted); err != nil {
		return nil, err
	}

	maxRetention := uint32(0)
	offset := FileHeader{Archives: sorted}.descSize()
	laidOut := make([]ArchiveInfo, len(sorted))
	for i, a := range sorted {
		a.Offset = offset
		laidOut[i] = a
		offset += a.size()
		if r := a.Retention(); r > maxRetention {
			maxRetention = r
		}
	}

	header := FileHeader{
		AggregationMethod: opts.AggregationMethod,
		MaxRetention:      maxRetention,
		XFilesFactor:      opts.XFilesFactor,
		Archives:          laidOut,
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, wrapIO(err, "create", path)
	}

	if err := createFile(file, header, opts.Sparse); err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.Wrapf(err, "whisper: create %s", path)
	}

	return &Whisper{header: header, file: file, path: path}, nil
}

// createFile writes the header and descriptor list, then lays out the
// archive bodies: sparse punches a single-byte hole at file_size-1 so the
// archive region reads as zero without ever being physically allocated;
// non-sparse calls fallocateZero to really allocate those blocks (via
// posix_fallocate on Linux, falling back to buffered zero writes), per
// §4.1/§4.6 and the original's builder.rs/fallocate.rs split.
func createFile(file *os.File, header FileHeader, sparse bool) error {
	if err := header.write(file); err != nil {
		return err
	}

	total := int64(header.fileSize())
	if sparse {
		return punchSparseHole(file, total)
	}
	return fallocateZero(file, total)
}

// punchSparseHole extends file to size total bytes by writing a single
// zero byte at the last offset, leaving the rest of the archive region
// an unallocated hole that reads back as zero.
func punchSparseHole(file *os.File, total int64) error {
	if total == 0 {
		return nil
	}
	if _, err := file.Seek(total-1, 0); err != nil {
		return err
	}
	_, err := file.Write([]byte{0})
	return err
}

// zeroFillBuffered writes n zero bytes to file's current offset in fixed
// chunks, mirroring the teacher's 16 KiB buffered zero-fill loop. It is
// the fallback for platforms/filesystems where the real-allocation
// fallocate call is unavailable.
func zeroFillBuffered(file *os.File, n int64) error {
	const chunkSize = 16384
	buf := make([]byte, chunkSize)
	for n > chunkSize {
		if _, err := file.Write(buf); err != nil {
			return err
		}
		n -= chunkSize
	}
	if n > 0 {
		if _, err := file.Write(buf[:n]); err != nil {
			return err
		}
	}
	return nil
}
