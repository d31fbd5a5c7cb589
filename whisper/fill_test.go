package whisper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillCopiesGapsOnly(t *testing.T) {
	// now is a multiple of the 60s step, so now-180 is slot-aligned.
	now := uint32(100020)
	archives := []ArchiveInfo{{SecondsPerPoint: 60, Points: 100}}

	src := createTest(t, "fill-src.wsp", archives, DefaultOptions())
	dst := createTest(t, "fill-dst.wsp", archives, DefaultOptions())

	var srcPoints []Point
	for i := uint32(1); i <= 10; i++ {
		srcPoints = append(srcPoints, Point{Interval: now - 60*i, Value: float64(i)})
	}
	require.NoError(t, src.UpdateMany(srcPoints, now))

	// dst already has its own value at now-180; Fill must not clobber it.
	require.NoError(t, dst.Update(Point{Interval: now - 180, Value: 999}, now))

	require.NoError(t, Fill(src, dst, now, now))

	data, err := dst.Fetch(60, Interval{From: now - 10*60, Until: now}, now)
	require.NoError(t, err)

	for j, s := range data.Values {
		interval := data.From + uint32(j)*data.Step
		if interval == now-180 {
			require.True(t, s.Known)
			assert.Equal(t, 999.0, s.Value, "Fill must not overwrite an existing dst value")
		}
	}
}
