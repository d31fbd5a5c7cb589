package whisper

import (
	"encoding/binary"
	"io"
)

// archiveDescSize is the on-disk size of an ArchiveInfo record: three u32
// fields, big-endian, per §6.
const archiveDescSize = 12

// ArchiveInfo is the offset/step/point-count triple describing one
// resolution level of a metric (§3 ArchiveDescriptor).
type ArchiveInfo struct {
	Offset          uint32 // byte offset of the archive body within the file
	SecondsPerPoint uint32 // step: seconds represented by one point
	Points          uint32 // slot count
}

// Retention is the length of time, in seconds, this archive can cover.
func (a ArchiveInfo) Retention() uint32 {
	return a.SecondsPerPoint * a.Points
}

// size is the byte length of the archive body.
func (a ArchiveInfo) size() uint32 {
	return a.Points * pointSize
}

// end is the byte offset one past the last point of the archive body.
func (a ArchiveInfo) end() uint32 {
	return a.Offset + a.size()
}

func readArchiveInfo(r io.Reader) (ArchiveInfo, error) {
	var buf [archiveDescSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return ArchiveInfo{}, err
	}
	return ArchiveInfo{
		Offset:          binary.BigEndian.Uint32(buf[0:4]),
		SecondsPerPoint: binary.BigEndian.Uint32(buf[4:8]),
		Points:          binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

func writeArchiveInfo(w io.Writer, a ArchiveInfo) error {
	var buf [archiveDescSize]byte
	binary.BigEndian.PutUint32(buf[0:4], a.Offset)
	binary.BigEndian.PutUint32(buf[4:8], a.SecondsPerPoint)
	binary.BigEndian.PutUint32(buf[8:12], a.Points)
	_, err := w.Write(buf[:])
	return err
}

// byStep sorts ArchiveInfo ascending by SecondsPerPoint, mirroring the
// teacher's bySecondsPerPoint.
type byStep []ArchiveInfo

func (a byStep) Len() int           { return len(a) }
func (a byStep) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byStep) Less(i, j int) bool { return a[i].SecondsPerPoint < a[j].SecondsPerPoint }
