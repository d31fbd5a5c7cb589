package whisper

// Interval is a half-open `[From, Until)` request window in epoch
// seconds, mirroring the original's interval.rs helper type.
type Interval struct {
	From  uint32
	Until uint32
}

// Sample is one position of a fetched series: either a known value or
// an absent slot (no point was ever written there, or it hasn't reached
// the requested interval's alignment).
type Sample struct {
	Value float64
	Known bool
}

// ArchiveData is the result of Fetch/FetchAuto: a dense, step-aligned
// series over `[From, Until)` where len(Values) == (Until-From)/Step
// (§4.1, §4.5).
type ArchiveData struct {
	Step   uint32
	From   uint32
	Until  uint32
	Values []Sample
}

// alignInterval implements §4.5 step 3: align from down to the previous
// step boundary, until up to the next one, and widen a zero-length
// window by one step so every request includes at least one tick.
func alignInterval(from, until, step uint32) (uint32, uint32) {
	alignedFrom := from - (from % step)

	alignedUntil := until
	if rem := until % step; rem != 0 {
		alignedUntil = until + (step - rem)
	}

	if alignedFrom == alignedUntil {
		alignedUntil += step
	}
	return alignedFrom, alignedUntil
}

func absentSeries(step, from, until uint32) ArchiveData {
	n := (until - from) / step
	return ArchiveData{Step: step, From: from, Until: until, Values: make([]Sample, n)}
}

// Fetch returns the archive's step-aligned series over interval,
// intersected with the retained window `[now-max_retention, now]`, per
// §4.5.
func (w *Whisper) Fetch(step uint32, interval Interval, now uint32) (ArchiveData, error) {
	archive, ok := w.header.archiveByStep(step)
	if !ok {
		return ArchiveData{}, newKindError(ErrArchiveNotFound, "no archive with step %d", step)
	}

	origFrom, origUntil := alignInterval(interval.From, interval.Until, step)

	lowerBound := uint32(0)
	if now > w.header.MaxRetention {
		lowerBound = now - w.header.MaxRetention
	}

	from, until := interval.From, interval.Until
	if from < lowerBound {
		from = lowerBound
	}
	// The retained window is closed at now, i.e. half-open [lowerBound, now+1).
	if until > now+1 {
		until = now + 1
	}

	if from >= until {
		return absentSeries(step, origFrom, origUntil), nil
	}

	from, until = alignInterval(from, until, step)

	base, err := w.readBase(archive)
	if err != nil {
		return ArchiveData{}, err
	}
	if base.Interval == 0 {
		return absentSeries(step, from, until), nil
	}

	fromIndex := instantOffset(archive, base.Interval, from)
	untilIndex := instantOffset(archive, base.Interval, until)

	// A window of Points or more slots reads the archive once round from
	// fromIndex; position j then maps to slot j mod Points.
	n := (until - from) / step
	if n >= archive.Points {
		untilIndex = fromIndex
	}

	series, err := w.readArchiveSlice(archive, fromIndex, untilIndex)
	if err != nil {
		return ArchiveData{}, err
	}

	values := make([]Sample, n)
	for j := range values {
		p := series[uint32(j)%archive.Points]
		expected := from + uint32(j)*step
		if p.Interval == expected {
			values[j] = Sample{Value: p.Value, Known: true}
		}
	}

	return ArchiveData{Step: step, From: from, Until: until, Values: values}, nil
}

// FetchNow is Fetch using w.Clock (or the system clock) for now.
func (w *Whisper) FetchNow(step uint32, interval Interval) (ArchiveData, error) {
	return w.Fetch(step, interval, nowSeconds(w.Clock))
}

// SuggestArchive returns the finest archive step whose retention fully
// covers interval intersected with `[now-max_retention, now]`, per
// §4.1. ok is false if no archive covers it.
func (w *Whisper) SuggestArchive(interval Interval, now uint32) (step uint32, ok bool) {
	lowerBound := uint32(0)
	if now > w.header.MaxRetention {
		lowerBound = now - w.header.MaxRetention
	}

	from := interval.From
	if from < lowerBound {
		from = lowerBound
	}

	for _, a := range w.header.Archives {
		if now-from <= a.Retention() {
			return a.SecondsPerPoint, true
		}
	}
	return 0, false
}

// FetchAuto composes SuggestArchive and Fetch, per §4.1.
func (w *Whisper) FetchAuto(interval Interval, now uint32) (ArchiveData, error) {
	step, ok := w.SuggestArchive(interval, now)
	if !ok {
		return ArchiveData{}, newKindError(ErrNoCoveringArchive,
			"no archive covers interval [%d, %d) relative to now=%d", interval.From, interval.Until, now)
	}
	return w.Fetch(step, interval, now)
}

// FetchAutoNow is FetchAuto using w.Clock (or the system clock) for now.
func (w *Whisper) FetchAutoNow(interval Interval) (ArchiveData, error) {
	return w.FetchAuto(interval, nowSeconds(w.Clock))
}
