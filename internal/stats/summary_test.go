package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]int64{10, 10, 10, 10, 100}, 1.5)

	assert.Equal(t, 5, s.Count)
	assert.Equal(t, int64(10), s.First)
	assert.Equal(t, int64(100), s.Last)
	assert.Equal(t, int64(10), s.Min)
	assert.Equal(t, 1, s.MinVolume)
	assert.Equal(t, int64(100), s.Max)
	assert.Equal(t, 5, s.MaxVolume)
	assert.InDelta(t, 28.0, s.Mean, 1e-9)
	assert.InDelta(t, 36.0, s.StdDev, 1e-9)

	require.Len(t, s.Outliers, 1)
	assert.Equal(t, 5, s.Outliers[0].Volume)
	assert.Equal(t, int64(100), s.Outliers[0].SSD)
	assert.InDelta(t, 2.0, s.Outliers[0].ZScore, 1e-9)
}

func TestSummarize_ThresholdDisabled(t *testing.T) {
	s := Summarize([]int64{1, 2, 1000}, 0)
	assert.Empty(t, s.Outliers)
	assert.Equal(t, 3, s.MaxVolume)
}

func TestSummarize_Constant(t *testing.T) {
	s := Summarize([]int64{7, 7, 7}, 1)
	assert.Zero(t, s.StdDev)
	assert.Empty(t, s.Outliers)
	assert.Equal(t, 1, s.MinVolume)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 2)
	assert.Equal(t, Summary{Threshold: 2}, s)
}
