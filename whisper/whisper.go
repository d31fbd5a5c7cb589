// Package whisper implements the Whisper fixed-size round-robin
// time-series file format: a single-file, self-describing binary
// database storing multiple resolutions of one metric as circular point
// arrays, with in-place update, cross-archive propagation, fetch/
// interpolation, and the composite merge/fill/resize/diff operations
// built on top of those primitives.
package whisper

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Whisper is an open engine instance: it exclusively owns the file
// handle for the duration of any write, per §5. It is not safe for
// concurrent use by multiple goroutines without external synchronization
// — the spec models one writer per file, sequential within that writer.
type Whisper struct {
	header FileHeader
	file   *os.File
	path   string

	// Clock, if set, backs the "Now" convenience wrappers (UpdateNow,
	// FetchNow, ...). The core operations always take `now` explicitly,
	// per §4.1's contract.
	Clock Clock
}

// Info returns an immutable view of the file's header.
func (w *Whisper) Info() FileHeader {
	return w.header
}

// Path returns the filesystem path this engine was opened/created from.
func (w *Whisper) Path() string {
	return w.path
}

// Open reads and validates the header of an existing whisper file.
func Open(path string) (*Whisper, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, wrapIO(err, "open", path)
	}

	header, err := readFileHeader(file)
	if err != nil {
		file.Close()
		if ke, ok := err.(*Error); ok {
			return nil, ke
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, newKindError(ErrInvalidFormat, "truncated header in %s", path)
		}
		return nil, wrapIO(err, "read header", path)
	}

	return &Whisper{header: header, file: file, path: path}, nil
}

// Close releases the underlying file handle.
func (w *Whisper) Close() error {
	return w.file.Close()
}

// SetXFilesFactor rewrites the x-files-factor metadata in place and
// fsyncs the file, per §4.1.
func (w *Whisper) SetXFilesFactor(xff float32) error {
	if xff < 0 || xff > 1 {
		return newKindError(ErrInvalidXFilesFactor, "x-files-factor %v out of range [0,1]", xff)
	}
	w.header.XFilesFactor = xff
	return w.writeMetadataAndSync("set-x-files-factor")
}

// SetAggregationMethod rewrites the aggregation method metadata in place
// and fsyncs the file, per §4.1.
func (w *Whisper) SetAggregationMethod(m AggregationMethod) error {
	if !m.valid() {
		return newKindError(ErrInvalidFormat, "unknown aggregation method %v", m)
	}
	w.header.AggregationMethod = m
	return w.writeMetadataAndSync("set-aggregation-method")
}

func (w *Whisper) writeMetadataAndSync(op string) error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return wrapIO(err, op, w.path)
	}
	if err := w.header.writeMetadata(w.file); err != nil {
		return wrapIO(err, op, w.path)
	}
	if err := w.file.Sync(); err != nil {
		return wrapIO(err, op, w.path)
	}
	logrus.WithFields(logrus.Fields{"path": w.path, "op": op}).Debug("whisper: metadata updated")
	return nil
}

// Dump returns the raw slot sequence of the named archive, starting at
// its on-disk offset (not time-ordered — see §4.1).
func (w *Whisper) Dump(step uint32) ([]Point, error) {
	archive, ok := w.header.archiveByStep(step)
	if !ok {
		return nil, ErrNoSuchArchive
	}
	if _, err := w.file.Seek(int64(archive.Offset), 0); err != nil {
		return nil, wrapIO(err, "dump", w.path)
	}
	points, err := readPoints(w.file, int(archive.Points))
	if err != nil {
		return nil, wrapIO(err, "dump", w.path)
	}
	return points, nil
}

// CheckIntegrity re-validates the on-disk header against §3's invariants
// 1-4 and the deterministic file-size formula of §6, without mutating
// anything. It exists for the (external) corruption-scan tool to reuse
// the engine's own validation instead of duplicating it.
func (w *Whisper) CheckIntegrity() error {
	sorted := sortArchivesByStep(w.header.Archives)
	for i, a := range w.header.Archives {
		if a != sorted[i] {
			return newKindError(ErrInvalidFormat, "archive list is not sorted ascending by step")
		}
	}
	if err := validateArchiveList(sorted); err != nil {
		return err
	}

	maxRetention := uint32(0)
	for _, a := range sorted {
		if a.Retention() > maxRetention {
			maxRetention = a.Retention()
		}
	}
	if maxRetention != w.header.MaxRetention {
		return newKindError(ErrInvalidFormat, "stored max_retention %d does not match archive set %d", w.header.MaxRetention, maxRetention)
	}

	info, err := w.file.Stat()
	if err != nil {
		return wrapIO(err, "stat", w.path)
	}
	if uint32(info.Size()) != w.header.fileSize() {
		return newKindError(ErrInvalidFormat, "file size %d does not match expected size %d", info.Size(), w.header.fileSize())
	}
	return nil
}

// readBase reads the point physically stored at archive.Offset, whose
// Interval anchors the circular mapping from timestamp to slot (§3).
func (w *Whisper) readBase(archive ArchiveInfo) (Point, error) {
	if _, err := w.file.Seek(int64(archive.Offset), 0); err != nil {
		return Point{}, wrapIO(err, "read base", w.path)
	}
	return readPoint(w.file)
}

// instantOffset is the pure function of (base, instant, step, points)
// described in §9: a point's slot never needs a free list or index.
func instantOffset(archive ArchiveInfo, baseInterval, instant uint32) uint32 {
	if baseInterval == 0 {
		return 0
	}
	instantAligned := (instant / archive.SecondsPerPoint) % archive.Points
	baseAligned := (baseInterval / archive.SecondsPerPoint) % archive.Points
	return (archive.Points + instantAligned - baseAligned) % archive.Points
}

// readArchiveSlice reads the half-open slot range [fromIndex, untilIndex)
// of archive, wrapping with two reads if the range crosses the end of
// the circular buffer. Equal indices read the whole archive, one full
// lap starting at fromIndex.
func (w *Whisper) readArchiveSlice(archive ArchiveInfo, fromIndex, untilIndex uint32) ([]Point, error) {
	fromIndex %= archive.Points
	untilIndex %= archive.Points

	count := (archive.Points + untilIndex - fromIndex) % archive.Points
	fromOffset := archive.Offset + fromIndex*pointSize

	if _, err := w.file.Seek(int64(fromOffset), 0); err != nil {
		return nil, wrapIO(err, "read archive", w.path)
	}

	if fromIndex < untilIndex {
		points, err := readPoints(w.file, int(count))
		if err != nil {
			return nil, wrapIO(err, "read archive", w.path)
		}
		return points, nil
	}

	tailCount := archive.Points - fromIndex
	headCount := untilIndex

	tail, err := readPoints(w.file, int(tailCount))
	if err != nil {
		return nil, wrapIO(err, "read archive", w.path)
	}
	if _, err := w.file.Seek(int64(archive.Offset), 0); err != nil {
		return nil, wrapIO(err, "read archive", w.path)
	}
	head, err := readPoints(w.file, int(headCount))
	if err != nil {
		return nil, wrapIO(err, "read archive", w.path)
	}
	return append(tail, head...), nil
}

// writeArchivePoint writes a single point into archive at the slot
// determined by the archive's current base.
func (w *Whisper) writeArchivePoint(archive ArchiveInfo, p Point) error {
	base, err := w.readBase(archive)
	if err != nil {
		return err
	}
	index := instantOffset(archive, base.Interval, p.Interval)
	if _, err := w.file.Seek(int64(archive.Offset+index*pointSize), 0); err != nil {
		return wrapIO(err, "write point", w.path)
	}
	if err := writePoint(w.file, p); err != nil {
		return wrapIO(err, "write point", w.path)
	}
	return nil
}

// writeArchiveRun writes a chronologically contiguous run of points
// (points[i+1].Interval == points[i].Interval + step) starting wherever
// baseInterval says points[0] lands, splitting the physical write at the
// archive's wrap point if necessary (§4.4 step 3).
func (w *Whisper) writeArchiveRun(archive ArchiveInfo, points []Point, baseInterval uint32) error {
	offset := instantOffset(archive, baseInterval, points[0].Interval)
	availableTail := archive.Points - offset

	if uint32(len(points)) > availableTail {
		tail := points[:availableTail]
		head := points[availableTail:]

		if _, err := w.file.Seek(int64(archive.Offset+offset*pointSize), 0); err != nil {
			return wrapIO(err, "write archive run", w.path)
		}
		if err := writePoints(w.file, tail); err != nil {
			return wrapIO(err, "write archive run", w.path)
		}
		if _, err := w.file.Seek(int64(archive.Offset), 0); err != nil {
			return wrapIO(err, "write archive run", w.path)
		}
		if err := writePoints(w.file, head); err != nil {
			return wrapIO(err, "write archive run", w.path)
		}
		return nil
	}

	if _, err := w.file.Seek(int64(archive.Offset+offset*pointSize), 0); err != nil {
		return wrapIO(err, "write archive run", w.path)
	}
	if err := writePoints(w.file, points); err != nil {
		return wrapIO(err, "write archive run", w.path)
	}
	return nil
}
