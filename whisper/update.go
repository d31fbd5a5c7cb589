package whisper

import "sort"

// Update writes a single point, applying it to the finest archive that
// covers it and propagating the result into each coarser archive while
// propagation continues to fire (§4.2).
func (w *Whisper) Update(p Point, now uint32) error {
	timestamp := p.Interval

	if timestamp > now || timestamp+w.header.MaxRetention <= now {
		return newKindError(ErrTimestampOutOfRange,
			"timestamp %d not covered by any archive relative to now=%d", timestamp, now)
	}

	archiveIndex := -1
	for i, a := range w.header.Archives {
		if timestamp+a.Retention() >= now {
			archiveIndex = i
			break
		}
	}
	if archiveIndex == -1 {
		return newKindError(ErrTimestampOutOfRange,
			"timestamp %d not covered by any archive relative to now=%d", timestamp, now)
	}

	archive := w.header.Archives[archiveIndex]
	interval := timestamp - (timestamp % archive.SecondsPerPoint)

	if err := w.writeArchivePoint(archive, Point{Interval: interval, Value: p.Value}); err != nil {
		return err
	}

	higher := archive
	for _, lower := range w.header.Archives[archiveIndex+1:] {
		fired, err := w.propagate(interval, higher, lower)
		if err != nil {
			return err
		}
		if !fired {
			break
		}
		higher = lower
	}

	return nil
}

// UpdateNow is Update using w.Clock (or the system clock) for now.
func (w *Whisper) UpdateNow(p Point) error {
	return w.Update(p, nowSeconds(w.Clock))
}

// UpdateMany writes a batch of points that may arrive in any order;
// duplicates at the same aligned interval collapse to the last one in
// the (re-sorted) chronological run (§4.4).
func (w *Whisper) UpdateMany(points []Point, now uint32) error {
	if len(points) == 0 {
		return nil
	}

	ordered := make([]Point, len(points))
	copy(ordered, points)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Interval > ordered[j].Interval })

	archiveIndex := 0
	var buffered []Point

	flush := func() error {
		if len(buffered) == 0 {
			return nil
		}
		// buffered accumulated newest-first; archiveUpdateMany wants
		// chronological order.
		reversed := make([]Point, len(buffered))
		for i, p := range buffered {
			reversed[len(buffered)-1-i] = p
		}
		err := w.archiveUpdateMany(archiveIndex, reversed)
		buffered = buffered[:0]
		return err
	}

	for _, p := range ordered {
		for p.Interval+w.header.Archives[archiveIndex].Retention() < now {
			if err := flush(); err != nil {
				return err
			}
			archiveIndex++
			if archiveIndex >= len(w.header.Archives) {
				break
			}
		}
		if archiveIndex >= len(w.header.Archives) {
			break // drop remaining points that don't fit in any archive
		}
		buffered = append(buffered, p)
	}

	if archiveIndex < len(w.header.Archives) {
		if err := flush(); err != nil {
			return err
		}
	}

	return nil
}

// UpdateManyNow is UpdateMany using w.Clock (or the system clock) for now.
func (w *Whisper) UpdateManyNow(points []Point) error {
	return w.UpdateMany(points, nowSeconds(w.Clock))
}

// packRuns splits a chronologically-ordered, step-aligned point slice
// into maximal contiguous runs (each element's interval equals the
// previous plus step), collapsing consecutive duplicate intervals to the
// last occurrence (§4.4 step 2-3).
func packRuns(points []Point, step uint32) [][]Point {
	var chunks [][]Point
	var current []Point
	var previousInterval uint32
	havePrevious := false

	n := len(points)
	for i, p := range points {
		// Collapse duplicate-interval runs to the last occurrence.
		if i+1 < n && points[i+1].Interval == p.Interval {
			continue
		}

		if !havePrevious || p.Interval == previousInterval+step {
			current = append(current, p)
		} else {
			chunks = append(chunks, current)
			current = []Point{p}
		}
		previousInterval = p.Interval
		havePrevious = true
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// archiveUpdateMany writes a chronologically-ordered batch of points into
// the archive at archiveIndex and propagates the distinct covered
// instants into each coarser archive (§4.4 steps 1-5).
func (w *Whisper) archiveUpdateMany(archiveIndex int, points []Point) error {
	archive := w.header.Archives[archiveIndex]
	step := archive.SecondsPerPoint

	aligned := make([]Point, len(points))
	for i, p := range points {
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

	higher := archive
	for _, lower := range w.header.Archives[archiveIndex+1:] {
		seen := make(map[uint32]struct{})
		var intervals []uint32
		for _, p := range aligned {
			t := p.Align(lower.SecondsPerPoint).Interval
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				intervals = append(intervals, t)
			}
		}
		sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })

		firedAny := false
		for _, t := range intervals {
			fired, err := w.propagate(t, higher, lower)
			if err != nil {
				return err
			}
			if fired {
				firedAny = true
			}
		}
		if !firedAny {
			break
		}
		higher = lower
	}

	return nil
}

// propagate is the propagation predicate of §4.3: it reads the k
// higher-resolution points covering the lower archive's interval
// beginning at t, and if enough of them are known writes their
// aggregate into lower, reporting whether it fired.
func (w *Whisper) propagate(t uint32, higher, lower ArchiveInfo) (bool, error) {
	lowerIntervalStart := t - (t % lower.SecondsPerPoint)

	higherBase, err := w.readBase(higher)
	if err != nil {
		return false, err
	}

	k := lower.SecondsPerPoint / higher.SecondsPerPoint
	higherFirstIndex := instantOffset(higher, higherBase.Interval, lowerIntervalStart)
	higherLastIndex := (higherFirstIndex + k) % higher.Points

	series, err := w.readArchiveSlice(higher, higherFirstIndex, higherLastIndex)
	if err != nil {
		return false, err
	}

	window := make([]slot, len(series))
	known := 0
	for i, p := range series {
		expected := lowerIntervalStart + uint32(i)*higher.SecondsPerPoint
		if p.Interval == expected {
			window[i] = slot{value: p.Value, known: true}
			known++
		}
	}

	if known == 0 {
		return false, nil
	}

	knownFraction := float32(known) / float32(len(window))
	if knownFraction < w.header.XFilesFactor {
		return false, nil
	}

	value, err := aggregate(w.header.AggregationMethod, window)
	if err != nil {
		return false, err
	}

	if err := w.writeArchivePoint(lower, Point{Interval: lowerIntervalStart, Value: value}); err != nil {
		return false, err
	}

	return true, nil
}
