// Package stats summarizes an SSD vector and flags volumes whose
// dissimilarity to the reference stands out from the rest of the series.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Outlier is a source volume whose SSD z-score exceeds the threshold.
type Outlier struct {
	Volume int     `json:"volume"` // source volume index (SSD entry + 1)
	SSD    int64   `json:"ssd"`
	ZScore float64 `json:"zScore"`
}

// Summary describes an SSD vector. Volume indices refer to source volumes,
// so the first entry of the vector is volume 1.
type Summary struct {
	Count     int       `json:"count"`
	First     int64     `json:"first"`
	Last      int64     `json:"last"`
	Min       int64     `json:"min"`
	MinVolume int       `json:"minVolume"`
	Max       int64     `json:"max"`
	MaxVolume int       `json:"maxVolume"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"stdDev"`
	Threshold float64   `json:"threshold"`
	Outliers  []Outlier `json:"outliers,omitempty"`
}

// Summarize computes a Summary of ssd. Volumes with a z-score above
// threshold are reported as outliers; threshold <= 0 disables detection.
// An empty vector yields the zero Summary.
func Summarize(ssd []int64, threshold float64) Summary {
	s := Summary{Count: len(ssd), Threshold: threshold}
	if len(ssd) == 0 {
		return s
	}

	xs := make([]float64, len(ssd))
	for i, v := range ssd {
		xs[i] = float64(v)
	}

	minIdx, maxIdx := floats.MinIdx(xs), floats.MaxIdx(xs)
	s.First, s.Last = ssd[0], ssd[len(ssd)-1]
	s.Min, s.MinVolume = ssd[minIdx], minIdx+1
	s.Max, s.MaxVolume = ssd[maxIdx], maxIdx+1

	// Population statistics: the series is the whole population, not a sample.
	s.Mean, s.StdDev = stat.PopMeanStdDev(xs, nil)

	if threshold <= 0 || s.StdDev == 0 {
		return s
	}
	for i, x := range xs {
		z := stat.StdScore(x, s.Mean, s.StdDev)
		if z > threshold {
			s.Outliers = append(s.Outliers, Outlier{Volume: i + 1, SSD: ssd[i], ZScore: z})
		}
	}
	return s
}
