package whisper

// sameArchives enforces the precondition shared by Merge/Fill/Diff: both
// files must describe the same archive geometry (§4.7).
func sameArchives(a, b *Whisper) error {
	if len(a.header.Archives) != len(b.header.Archives) {
		return newKindError(ErrInvalidRetentionSet, "archive lists differ: %d archives vs %d", len(a.header.Archives), len(b.header.Archives))
	}
	for i, x := range a.header.Archives {
		y := b.header.Archives[i]
		if x.SecondsPerPoint != y.SecondsPerPoint || x.Points != y.Points {
			return newKindError(ErrInvalidRetentionSet,
				"archive %d differs: %d:%d vs %d:%d", i, x.SecondsPerPoint, x.Points, y.SecondsPerPoint, y.Points)
		}
	}
	return nil
}

// samplesToPoints converts a fetched series back to the sparse point
// list (known entries only) consumed by UpdateMany.
func samplesToPoints(data ArchiveData) []Point {
	points := make([]Point, 0, len(data.Values))
	for j, s := range data.Values {
		if !s.Known {
			continue
		}
		points = append(points, Point{
			Interval: data.From + uint32(j)*data.Step,
			Value:    s.Value,
		})
	}
	return points
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// findGaps returns the maximal runs of consecutive absent slots in data
// that are longer than a single step, as fetch-able intervals.
func findGaps(data ArchiveData) []Interval {
	var gaps []Interval
	n := len(data.Values)
	i := 0
	for i < n {
		if data.Values[i].Known {
			i++
			continue
		}
		j := i
		for j < n && !data.Values[j].Known {
			j++
		}
		if j-i > 1 {
			gaps = append(gaps, Interval{
				From:  data.From + uint32(i)*data.Step,
				Until: data.From + uint32(j)*data.Step,
			})
		}
		i = j
	}
	return gaps
}

// writeArchiveDirect writes a point set into a single archive without
// triggering propagation into coarser archives, the "single-archive
// variant" referenced by §4.7's Fill algorithm.
func (w *Whisper) writeArchiveDirect(archiveIndex int, points []Point) error {
	archive := w.header.Archives[archiveIndex]
	step := archive.SecondsPerPoint

	ordered := make([]Point, len(points))
	copy(ordered, points)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].Interval > ordered[j].Interval; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	aligned := make([]Point, len(ordered))
	for i, p := range ordered {
		aligned[i] = p.Align(step)
	}

	chunks := packRuns(aligned, step)
	if len(chunks) == 0 {
		return nil
	}

	base, err := w.readBase(archive)
	if err != nil {
		return err
	}
	baseInterval := base.Interval
	if baseInterval == 0 {
		baseInterval = chunks[0][0].Interval
	}

	for _, chunk := range chunks {
		if err := w.writeArchiveRun(archive, chunk, baseInterval); err != nil {
			return err
		}
	}
	return nil
}
