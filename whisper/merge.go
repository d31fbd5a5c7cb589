package whisper

// Merge copies points from src into dst over interval, archive by
// archive in ascending-retention order. Coarser archives are processed
// later and may be overwritten by propagation triggered by finer-archive
// writes; that is intentional — source values always win (§4.7).
func Merge(src, dst *Whisper, interval Interval, now uint32) error {
	if err := sameArchives(src, dst); err != nil {
		return err
	}

	for _, a := range src.header.Archives {
		lower := uint32(0)
		if now > a.Retention() {
			lower = now - a.Retention()
		}

		from := interval.From
		if from < lower {
			from = lower
		}
		until := interval.Until
		if until > now {
			until = now
		}
		if from >= until {
			continue
		}

		data, err := src.Fetch(a.SecondsPerPoint, Interval{From: from, Until: until}, now)
		if err != nil {
			return err
		}

		points := samplesToPoints(data)
		if len(points) == 0 {
			continue
		}
		if err := dst.UpdateMany(points, now); err != nil {
			return err
		}
	}

	return nil
}
