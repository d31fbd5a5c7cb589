package whisper

import (
	"encoding/binary"
	"io"
	"math"
)

// pointSize is the on-disk size of a Point record: a u32 interval plus an
// f64 value, big-endian, per §6.
const pointSize = 12

// Point is a single (timestamp, value) sample. A Point whose Interval is
// zero represents an empty slot; it was never written.
type Point struct {
	Interval uint32
	Value    float64
}

// Empty reports whether this slot has never been written.
func (p Point) Empty() bool {
	return p.Interval == 0
}

// Align returns p with its Interval rounded down to the nearest multiple
// of step.
func (p Point) Align(step uint32) Point {
	return Point{Interval: p.Interval - (p.Interval % step), Value: p.Value}
}

func readPoint(r io.Reader) (Point, error) {
	var buf [pointSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Point{}, err
	}
	return Point{
		Interval: binary.BigEndian.Uint32(buf[0:4]),
		Value:    math.Float64frombits(binary.BigEndian.Uint64(buf[4:12])),
	}, nil
}

func writePoint(w io.Writer, p Point) error {
	var buf [pointSize]byte
	binary.BigEndian.PutUint32(buf[0:4], p.Interval)
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(p.Value))
	_, err := w.Write(buf[:])
	return err
}

func readPoints(r io.Reader, n int) ([]Point, error) {
	points := make([]Point, n)
	for i := range points {
		p, err := readPoint(r)
		if err != nil {
			return nil, err
		}
		points[i] = p
	}
	return points, nil
}

func writePoints(w io.Writer, points []Point) error {
	for _, p := range points {
		if err := writePoint(w, p); err != nil {
			return err
		}
	}
	return nil
}
