package whisper

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointAlign(t *testing.T) {
	tests := []struct {
		interval uint32
		step     uint32
		want     uint32
	}{
		{1000, 60, 960},
		{960, 60, 960},
		{0, 60, 0},
		{59, 60, 0},
	}
	for _, tt := range tests {
		got := Point{Interval: tt.interval, Value: 1}.Align(tt.step)
		assert.Equal(t, tt.want, got.Interval)
	}
}

func TestPointEmpty(t *testing.T) {
	assert.True(t, Point{}.Empty())
	assert.False(t, Point{Interval: 1}.Empty())
}

func TestPointRoundTrip(t *testing.T) {
	p := Point{Interval: 1700000000, Value: -12.5}

	var buf bytes.Buffer
	require.NoError(t, writePoint(&buf, p))
	assert.Equal(t, pointSize, buf.Len())

	got, err := readPoint(&buf)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestReadWritePoints(t *testing.T) {
	points := []Point{
		{Interval: 10, Value: 1},
		{Interval: 20, Value: 2},
		{Interval: 30, Value: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, writePoints(&buf, points))

	got, err := readPoints(&buf, len(points))
	require.NoError(t, err)
	assert.Equal(t, points, got)
}
