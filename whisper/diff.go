package whisper

// ArchiveDiff is the per-archive tally produced by Diff.
type ArchiveDiff struct {
	Step      uint32
	Total     int
	Differing int
}

// DiffResult is the full, ascending-retention-ordered result of Diff.
type DiffResult struct {
	Archives []ArchiveDiff
}

// Diff compares a and b, which must share an archive list, over each
// archive's retained window intersected with `(-inf, until]`. A pair of
// slots counts toward Total if either side is known, or only when both
// are known if ignoreEmpty is set; it counts toward Differing unless
// both sides are known and equal. Each archive's window upper bound
// shrinks to the minimum of its own lower retention edge and the
// previous archive's, so coarser archives only report on the older
// window they exclusively own (§4.7).
func Diff(a, b *Whisper, ignoreEmpty bool, until uint32, now uint32) (DiffResult, error) {
	if err := sameArchives(a, b); err != nil {
		return DiffResult{}, err
	}

	var result DiffResult
	u := until

	for _, arc := range a.header.Archives {
		from := uint32(0)
		if now > arc.Retention() {
			from = now - arc.Retention()
		}

		dataA, err := a.Fetch(arc.SecondsPerPoint, Interval{From: from, Until: u}, now)
		if err != nil {
			return DiffResult{}, err
		}
		dataB, err := b.Fetch(arc.SecondsPerPoint, Interval{From: from, Until: u}, now)
		if err != nil {
			return DiffResult{}, err
		}

		ad := ArchiveDiff{Step: arc.SecondsPerPoint}
		n := len(dataA.Values)
		if len(dataB.Values) < n {
			n = len(dataB.Values)
		}
		for i := 0; i < n; i++ {
			sa, sb := dataA.Values[i], dataB.Values[i]
			bothKnown := sa.Known && sb.Known
			counted := sa.Known || sb.Known
			if ignoreEmpty {
				counted = bothKnown
			}
			if !counted {
				continue
			}
			ad.Total++
			if !(bothKnown && sa.Value == sb.Value) {
				ad.Differing++
			}
		}

		result.Archives = append(result.Archives, ad)
		u = minUint32(from, u)
	}

	return result, nil
}
