package whisper

import (
	"encoding/binary"
	"io"
	"math"
	"sort"
)

// headerSize is the fixed 16-byte metadata block preceding the archive
// descriptor list, per §6.
const headerSize = 16

// FileHeader is the immutable (outside of set_x_files_factor/
// set_aggregation_method) metadata describing a whisper file: aggregation
// method, global retention, x-files-factor and the ordered archive list
// (§3 FileHeader).
type FileHeader struct {
	AggregationMethod AggregationMethod
	MaxRetention      uint32
	XFilesFactor      float32
	Archives          []ArchiveInfo
}

// descSize is the total byte length of the header plus archive
// descriptor list, i.e. the offset of the first archive body.
func (h FileHeader) descSize() uint32 {
	return headerSize + archiveDescSize*uint32(len(h.Archives))
}

// fileSize is the deterministic total file size implied by this header,
// per §6: 16 + 12*archive_count + sum(12*points_i).
func (h FileHeader) fileSize() uint32 {
	size := h.descSize()
	for _, a := range h.Archives {
		size += a.size()
	}
	return size
}

// archiveByStep returns the archive with the given step, and whether one
// was found.
func (h FileHeader) archiveByStep(step uint32) (ArchiveInfo, bool) {
	for _, a := range h.Archives {
		if a.SecondsPerPoint == step {
			return a, true
		}
	}
	return ArchiveInfo{}, false
}

func readFileHeader(r io.Reader) (FileHeader, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FileHeader{}, err
	}

	aggType := binary.BigEndian.Uint32(buf[0:4])
	maxRetention := binary.BigEndian.Uint32(buf[4:8])
	xff := math.Float32frombits(binary.BigEndian.Uint32(buf[8:12]))
	archiveCount := binary.BigEndian.Uint32(buf[12:16])

	method := AggregationMethod(aggType)
	if !method.valid() {
		return FileHeader{}, newKindError(ErrInvalidFormat, "unknown aggregation method code %d", aggType)
	}
	if xff < 0 || xff > 1 {
		return FileHeader{}, newKindError(ErrInvalidFormat, "x-files-factor %v out of range [0,1]", xff)
	}
	if archiveCount == 0 {
		return FileHeader{}, newKindError(ErrInvalidFormat, "archive count is zero")
	}

	archives := make([]ArchiveInfo, archiveCount)
	for i := range archives {
		a, err := readArchiveInfo(r)
		if err != nil {
			return FileHeader{}, err
		}
		archives[i] = a
	}

	return FileHeader{
		AggregationMethod: method,
		MaxRetention:      maxRetention,
		XFilesFactor:      xff,
		Archives:          archives,
	}, nil
}

// writeMetadata writes only the 16-byte metadata block, used both on
// create and by set_x_files_factor/set_aggregation_method to rewrite
// metadata in place without touching the archive descriptor list.
func (h FileHeader) writeMetadata(w io.Writer) error {
	var buf [headerSize]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.AggregationMethod))
	binary.BigEndian.PutUint32(buf[4:8], h.MaxRetention)
	binary.BigEndian.PutUint32(buf[8:12], math.Float32bits(h.XFilesFactor))
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(h.Archives)))
	_, err := w.Write(buf[:])
	return err
}

func (h FileHeader) write(w io.Writer) error {
	if err := h.writeMetadata(w); err != nil {
		return err
	}
	for _, a := range h.Archives {
		if err := writeArchiveInfo(w, a); err != nil {
			return err
		}
	}
	return nil
}

// validateArchiveList enforces invariants 1-4 of §3 against a list of
// archives that is assumed sorted ascending by SecondsPerPoint. It
// mirrors the teacher's ValidateArchiveList/the original's
// validate_archive_list, generalized to the abstract ErrorKind taxonomy.
func validateArchiveList(archives []ArchiveInfo) error {
	if len(archives) == 0 {
		return newKindError(ErrInvalidRetentionSet, "you must specify at least one retention")
	}

	for i := 0; i < len(archives)-1; i++ {
		archive := archives[i]
		next := archives[i+1]

		// Invariant 1: no two archives share a step.
		if archive.SecondsPerPoint >= next.SecondsPerPoint {
			return newKindError(ErrInvalidRetentionSet,
				"a whisper database may not be configured with duplicate or decreasing precision (archive %d: %d, archive %d: %d)",
				i, archive.SecondsPerPoint, i+1, next.SecondsPerPoint)
		}

		// Invariant 2: finer archive's step must evenly divide the next.
		if next.SecondsPerPoint%archive.SecondsPerPoint != 0 {
			return newKindError(ErrInvalidRetentionSet,
				"higher precision archives' precision must evenly divide all lower precision archives' precision (archive %d: %d does not divide archive %d: %d)",
				i, archive.SecondsPerPoint, i+1, next.SecondsPerPoint)
		}

		// Invariant 3: retention must strictly increase.
		if next.Retention() <= archive.Retention() {
			return newKindError(ErrInvalidRetentionSet,
				"lower precision archives must cover a larger time interval than higher precision archives (archive %d retention %d, archive %d retention %d)",
				i, archive.Retention(), i+1, next.Retention())
		}

		// Invariant 4: finer archive must hold at least one consolidation window.
		pointsPerConsolidation := next.SecondsPerPoint / archive.SecondsPerPoint
		if archive.Points < pointsPerConsolidation {
			return newKindError(ErrInvalidRetentionSet,
				"archive %d must have at least %d points to consolidate into archive %d, but has only %d",
				i, pointsPerConsolidation, i+1, archive.Points)
		}
	}

	return nil
}

// sortArchivesByStep returns a copy of archives sorted ascending by
// SecondsPerPoint.
func sortArchivesByStep(archives []ArchiveInfo) []ArchiveInfo {
	out := make([]ArchiveInfo, len(archives))
	copy(out, archives)
	sort.Sort(byStep(out))
	return out
}
