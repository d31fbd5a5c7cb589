package whisper

// Fill copies data from src into the gaps of dst that lie before from,
// processing dst's archives coarse-to-fine and writing directly into
// each archive (bypassing propagation) so that a later, finer-archive
// pass is free to override a value a coarser pass already filled
// (§4.7).
func Fill(src, dst *Whisper, from uint32, now uint32) error {
	if err := sameArchives(src, dst); err != nil {
		return err
	}

	archives := dst.header.Archives // ascending step/retention
	cursor := from

	for i := len(archives) - 1; i >= 0; i-- {
		a := archives[i]

		lower := uint32(0)
		if now > a.Retention() {
			lower = now - a.Retention()
		}
		if lower >= cursor {
			continue
		}

		data, err := dst.Fetch(a.SecondsPerPoint, Interval{From: lower, Until: cursor}, now)
		if err != nil {
			return err
		}

		for _, gap := range findGaps(data) {
			srcData, err := src.Fetch(a.SecondsPerPoint, gap, now)
			if err != nil {
				return err
			}
			points := samplesToPoints(srcData)
			if len(points) == 0 {
				continue
			}
			if err := dst.writeArchiveDirect(i, points); err != nil {
				return err
			}
		}

		cursor = lower
	}

	return nil
}
