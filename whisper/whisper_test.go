package whisper

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTest(t *testing.T, name string, archives []ArchiveInfo, opts Options) *Whisper {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := Create(path, archives, opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

// Scenario 1 (§8): wrap-around write.
func TestUpdateWrapAroundWrite(t *testing.T) {
	w := createTest(t, "wrap.wsp", []ArchiveInfo{{SecondsPerPoint: 1, Points: 10}}, DefaultOptions())

	require.NoError(t, w.Update(Point{Interval: 1000, Value: 100.0}, 1000))
	require.NoError(t, w.Update(Point{Interval: 1009, Value: 200.0}, 1009))

	dumped, err := w.Dump(1)
	require.NoError(t, err)
	require.Len(t, dumped, 10)

	var found100, found200 bool
	for _, p := range dumped {
		switch p.Interval {
		case 1000:
			assert.Equal(t, 100.0, p.Value)
			found100 = true
		case 1009:
			assert.Equal(t, 200.0, p.Value)
			found200 = true
		}
	}
	assert.True(t, found100)
	assert.True(t, found200)
}

// Scenario 2 (§8): a write that wraps back onto the base slot replaces it,
// and the base interval moves forward with it. The retained window is
// closed at `now`, so the value just written at `now` itself is
// fetchable.
func TestUpdateOverwriteOnWrap(t *testing.T) {
	w := createTest(t, "overwrite.wsp", []ArchiveInfo{{SecondsPerPoint: 1, Points: 10}}, DefaultOptions())

	require.NoError(t, w.Update(Point{Interval: 1000, Value: 100.0}, 1000))
	require.NoError(t, w.Update(Point{Interval: 1009, Value: 200.0}, 1009))
	require.NoError(t, w.Update(Point{Interval: 1010, Value: 300.0}, 1010))

	base, err := w.readBase(w.header.Archives[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1010), base.Interval, "the slot formerly holding t=1000 now holds the new base")
	assert.Equal(t, 300.0, base.Value)

	data, err := w.Fetch(1, Interval{From: 1001, Until: 1011}, 1010)
	require.NoError(t, err)
	require.Len(t, data.Values, 10)
	for i := 0; i < 8; i++ {
		assert.False(t, data.Values[i].Known, "position %d", i)
	}
	assert.True(t, data.Values[8].Known)
	assert.Equal(t, 200.0, data.Values[8].Value)
	assert.True(t, data.Values[9].Known)
	assert.Equal(t, 300.0, data.Values[9].Value)
}

// Scenario 3 (§8): propagation fires when enough of the window is known.
func TestPropagationFires(t *testing.T) {
	w := createTest(t, "propagate-fire.wsp", []ArchiveInfo{
		{SecondsPerPoint: 1, Points: 10},
		{SecondsPerPoint: 2, Points: 10},
	}, Options{AggregationMethod: Average, XFilesFactor: 0.5})

	require.NoError(t, w.UpdateMany([]Point{
		{Interval: 1000, Value: 10.0},
		{Interval: 1001, Value: 20.0},
	}, 1001))

	lower := w.header.Archives[1]
	p, err := w.readArchiveSlice(lower, instantOffset(lower, mustBase(t, w, lower), 1000), instantOffset(lower, mustBase(t, w, lower), 1002))
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, uint32(1000), p[0].Interval)
	assert.Equal(t, 15.0, p[0].Value)
}

// Scenario 4 (§8) inputs: a single known slot out of a 2-slot window is
// exactly at the xff=0.5 threshold (known/k == 0.5 >= x_files_factor), so propagation fires,
// per §4.3 step 6 and original_source/whisper/src/lib.rs's
// `known_percent >= header.x_files_factor` (>=, not >).
func TestPropagationFiresAtExactThreshold(t *testing.T) {
	w := createTest(t, "propagate-threshold.wsp", []ArchiveInfo{
		{SecondsPerPoint: 1, Points: 10},
		{SecondsPerPoint: 2, Points: 10},
	}, Options{AggregationMethod: Average, XFilesFactor: 0.5})

	require.NoError(t, w.Update(Point{Interval: 1000, Value: 10.0}, 1001))

	lower := w.header.Archives[1]
	base, err := w.readBase(lower)
	require.NoError(t, err)
	require.False(t, base.Empty(), "known/k == 0.5 meets xff=0.5, so propagation fires")
	assert.Equal(t, uint32(1000), base.Interval)
	assert.Equal(t, 10.0, base.Value)
}

// Dropping below the xff threshold suppresses propagation: with xff=0.6
// a single known slot out of 2 (known/k == 0.5) is not enough.
func TestPropagationSuppressedBelowThreshold(t *testing.T) {
	w := createTest(t, "propagate-suppress.wsp", []ArchiveInfo{
		{SecondsPerPoint: 1, Points: 10},
		{SecondsPerPoint: 2, Points: 10},
	}, Options{AggregationMethod: Average, XFilesFactor: 0.6})

	require.NoError(t, w.Update(Point{Interval: 1000, Value: 10.0}, 1001))

	lower := w.header.Archives[1]
	base, err := w.readBase(lower)
	require.NoError(t, err)
	assert.True(t, base.Empty(), "known/k == 0.5 is below xff=0.6, so the lower archive stays untouched")
}

func mustBase(t *testing.T, w *Whisper, a ArchiveInfo) uint32 {
	t.Helper()
	base, err := w.readBase(a)
	require.NoError(t, err)
	return base.Interval
}

// Scenario 5 (§8): shrinking resize keeps the newest points.
func TestResizeShrinkKeepsNewest(t *testing.T) {
	now := uint32(100000)
	src := createTest(t, "resize-src.wsp", []ArchiveInfo{{SecondsPerPoint: 60, Points: 10}}, DefaultOptions())

	var points []Point
	for i := uint32(0); i < 10; i++ {
		points = append(points, Point{Interval: now - 60*i, Value: float64(60 * i)})
	}
	require.NoError(t, src.UpdateMany(points, now))

	dst, err := Resize(src, ResizeOptions{
		Archives: []ArchiveInfo{{SecondsPerPoint: 60, Points: 5}},
		Options:  DefaultOptions(),
		NewPath:  filepath.Join(t.TempDir(), "resize-dst.wsp"),
	}, now)
	require.NoError(t, err)
	defer dst.Close()

	data, err := dst.Fetch(60, Interval{From: now - 5*60, Until: now}, now)
	require.NoError(t, err)
	var known int
	for _, s := range data.Values {
		if s.Known {
			known++
		}
	}
	assert.Equal(t, 5, known)
}

// Scenario 6 (§8): merging identical schemas unions the two files'
// points, with source values preserved.
func TestMergeIdenticalSchemas(t *testing.T) {
	// now is a multiple of the 60s step, so the intervals below are slot-aligned.
	now := uint32(100020)
	archives := []ArchiveInfo{{SecondsPerPoint: 60, Points: 100}}

	src := createTest(t, "merge-src.wsp", archives, DefaultOptions())
	dst := createTest(t, "merge-dst.wsp", archives, DefaultOptions())

	require.NoError(t, src.UpdateMany([]Point{
		{Interval: now - 60, Value: 1},
		{Interval: now - 180, Value: 3},
		{Interval: now - 300, Value: 5},
	}, now))
	require.NoError(t, dst.UpdateMany([]Point{
		{Interval: now - 120, Value: 2},
		{Interval: now - 360, Value: 6},
	}, now))

	require.NoError(t, Merge(src, dst, Interval{From: now - 6*60, Until: now}, now))

	data, err := dst.Fetch(60, Interval{From: now - 6*60, Until: now}, now)
	require.NoError(t, err)

	want := map[uint32]float64{
		now - 60:  1,
		now - 120: 2,
		now - 180: 3,
		now - 300: 5,
		now - 360: 6,
	}
	for j, s := range data.Values {
		interval := data.From + uint32(j)*data.Step
		if wantVal, ok := want[interval]; ok {
			assert.True(t, s.Known, "interval %d should be known", interval)
			assert.Equal(t, wantVal, s.Value, "interval %d", interval)
		}
	}
}

func TestResizeRequiresNewPathWhenNotInPlace(t *testing.T) {
	now := uint32(100000)
	src := createTest(t, "resize-nopath-src.wsp", []ArchiveInfo{{SecondsPerPoint: 60, Points: 10}}, DefaultOptions())

	_, err := Resize(src, ResizeOptions{
		Archives: []ArchiveInfo{{SecondsPerPoint: 60, Points: 5}},
		Options:  DefaultOptions(),
	}, now)
	assert.Error(t, err)
}

func TestDiffSameFileIsZero(t *testing.T) {
	now := uint32(100000)
	archives := []ArchiveInfo{{SecondsPerPoint: 60, Points: 100}}
	a := createTest(t, "diff-a.wsp", archives, DefaultOptions())

	require.NoError(t, a.UpdateMany([]Point{
		{Interval: now - 60, Value: 1},
		{Interval: now - 120, Value: 2},
	}, now))

	result, err := Diff(a, a, false, now, now)
	require.NoError(t, err)
	for _, ad := range result.Archives {
		assert.Zero(t, ad.Differing)
	}
}

func TestCheckIntegrity(t *testing.T) {
	w := createTest(t, "integrity.wsp", []ArchiveInfo{
		{SecondsPerPoint: 60, Points: 10},
		{SecondsPerPoint: 300, Points: 12},
	}, DefaultOptions())

	assert.NoError(t, w.CheckIntegrity())
}
