package engine

import "math"

// --------------------------------------------------------------------------
// Segment distribution statistics
// --------------------------------------------------------------------------

// Stats summarizes a series of per-segment measurements.
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// newStats computes standard deviation, minimum, maximum and mean from a
// series of values.
func newStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	min := values[0]
	max := values[0]

	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	mean := sum / float64(len(values))

	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}
	stdDev := math.Sqrt(sumSquaredDiffs / float64(len(values)))

	minMaxRatio := 1.0
	if max > 0 {
		minMaxRatio = min / max
	}

	return Stats{
		StdDeviation: stdDev,
		Min:          min,
		Max:          max,
		Mean:         mean,
		MinMaxRatio:  minMaxRatio,
	}
}

// DistributionStats extends Stats with a single quality score in [0, 1]
// where 1 means perfectly even distribution across segments.
type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"`
}

// newDistributionStats computes quality metrics for how evenly entries are
// spread over the segments.
func newDistributionStats(segmentLoads []float64) DistributionStats {
	stats := newStats(segmentLoads)

	// coefficient of variation, mapped into a [0, 1] quality score
	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}
	quality := 1.0 / (1.0 + cv)

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: quality,
	}
}
