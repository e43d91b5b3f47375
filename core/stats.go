package core

import (
	"errors"
	"math"
	"sort"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// ErrNoSamples is returned when statistics are requested for an empty stream.
var ErrNoSamples = errors.New("no samples")

// ComputeStats summarises samples with a population standard deviation and
// nearest-rank percentiles taken at index int(q*n) of the sorted samples.
// The input slice is not modified.
func ComputeStats(samples []float64) (model.MetricStats, error) {
	n := len(samples)
	if n == 0 {
		return model.MetricStats{}, ErrNoSamples
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var std float64
	if n > 1 {
		var sq float64
		for _, v := range sorted {
			d := v - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(n))
	}

	return model.MetricStats{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		Max:   sorted[n-1],
		P50:   rank(sorted, 0.50),
		P90:   rank(sorted, 0.90),
		P95:   rank(sorted, 0.95),
		P99:   rank(sorted, 0.99),
	}, nil
}

// SampleStd returns the n-1 standard deviation, or 0 for fewer than two samples.
func SampleStd(samples []float64) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range samples {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

func rank(sorted []float64, q float64) float64 {
	i := int(q * float64(len(sorted)))
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
