package whisper

import (
	"fmt"
	"math"
)

// AggregationMethod is the closed set of reductions a propagation can
// apply when rolling finer-resolution values up into a coarser archive.
// The numeric values are part of the on-disk contract (§6) and must not
// change.
type AggregationMethod uint32

const (
	Average AggregationMethod = iota + 1
	Sum
	Last
	Max
	Min
	AvgZero
	AbsMax
	AbsMin
)

func (m AggregationMethod) String() string {
	switch m {
	case Average:
		return "average"
	case Sum:
		return "sum"
	case Last:
		return "last"
	case Max:
		return "max"
	case Min:
		return "min"
	case AvgZero:
		return "avg_zero"
	case AbsMax:
		return "absmax"
	case AbsMin:
		return "absmin"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(m))
	}
}

// ParseAggregationMethod parses one of the method names accepted on the
// wire ("average", "sum", "last", "max", "min", "avg_zero", "absmax",
// "absmin").
func ParseAggregationMethod(s string) (AggregationMethod, error) {
	switch s {
	case "average":
		return Average, nil
	case "sum":
		return Sum, nil
	case "last":
		return Last, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	case "avg_zero":
		return AvgZero, nil
	case "absmax":
		return AbsMax, nil
	case "absmin":
		return AbsMin, nil
	default:
		return 0, fmt.Errorf("unsupported aggregation method %q", s)
	}
}

// valid reports whether m is one of the eight numeric codes 1..8.
func (m AggregationMethod) valid() bool {
	return m >= Average && m <= AbsMin
}

// slot is one position in a propagation window: either a known value or
// an absent one.
type slot struct {
	value float64
	known bool
}

// cmpF64 totally orders float64 for extremum selection: NaN is never
// greater than, and never less than, any real number. aggregate also
// replaces a NaN running extremum with the next value, so Max/Min and
// AbsMax/AbsMin never select a NaN over a real number (§9 design note).
func cmpF64(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// aggregate reduces the known values in window per method. window is the
// dense, position-ordered sequence of slots covering the propagation
// interval; absent slots are skipped except by AvgZero, which divides by
// the full window length.
func aggregate(method AggregationMethod, window []slot) (float64, error) {
	known := make([]float64, 0, len(window))
	for _, s := range window {
		if s.known {
			known = append(known, s.value)
		}
	}
	if len(known) == 0 && method != Sum && method != AvgZero {
		return 0, fmt.Errorf("whisper: aggregate: no known values in window")
	}

	switch method {
	case Average:
		var sum float64
		for _, v := range known {
			sum += v
		}
		return sum / float64(len(known)), nil

	case Sum:
		var sum float64
		for _, v := range known {
			sum += v
		}
		return sum, nil

	case Last:
		for i := len(window) - 1; i >= 0; i-- {
			if window[i].known {
				return window[i].value, nil
			}
		}
		return 0, fmt.Errorf("whisper: aggregate: no known values in window")

	case Max:
		best := known[0]
		for _, v := range known[1:] {
			if cmpF64(v, best) > 0 || math.IsNaN(best) {
				best = v
			}
		}
		return best, nil

	case Min:
		best := known[0]
		for _, v := range known[1:] {
			if cmpF64(v, best) < 0 || math.IsNaN(best) {
				best = v
			}
		}
		return best, nil

	case AvgZero:
		var sum float64
		for _, v := range known {
			sum += v
		}
		return sum / float64(len(window)), nil

	case AbsMax:
		best := known[0]
		for _, v := range known[1:] {
			if cmpF64(abs(v), abs(best)) > 0 || math.IsNaN(best) {
				best = v
			}
		}
		return best, nil

	case AbsMin:
		best := known[0]
		for _, v := range known[1:] {
			if cmpF64(abs(v), abs(best)) < 0 || math.IsNaN(best) {
				best = v
			}
		}
		return best, nil

	default:
		return 0, fmt.Errorf("whisper: aggregate: unknown aggregation method %v", method)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
