package core

import (
	"fmt"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Default NPU speedup bounds over the CPU-only baseline.
const (
	DefaultSpeedupLow  = 8.0
	DefaultSpeedupHigh = 20.0
)

// ProjectedPercentiles are the baseline percentiles carried into NPU projections.
var ProjectedPercentiles = []string{"p50", "p90", "p99"}

// NPUModeler scales CPU latencies by a conservative and an optimistic
// accelerator speedup.
type NPUModeler struct {
	SpeedupLow  float64
	SpeedupHigh float64
}

// NewNPUModeler validates 0 < low <= high.
func NewNPUModeler(low, high float64) (*NPUModeler, error) {
	if low <= 0 || high <= 0 {
		return nil, fmt.Errorf("%w: speedups must be positive (low=%g high=%g)", ErrInvalidConfiguration, low, high)
	}
	if low > high {
		return nil, fmt.Errorf("%w: low speedup %g exceeds high speedup %g", ErrInvalidConfiguration, low, high)
	}
	return &NPUModeler{SpeedupLow: low, SpeedupHigh: high}, nil
}

// Project divides cpuNs by both speedups, truncating to whole nanoseconds.
func (m *NPUModeler) Project(cpuNs float64) model.NPUProjection {
	return model.NPUProjection{
		CPUBaselineNs: cpuNs,
		NPULowNs:      int64(cpuNs / m.SpeedupHigh),
		NPUHighNs:     int64(cpuNs / m.SpeedupLow),
		SpeedupLow:    m.SpeedupLow,
		SpeedupHigh:   m.SpeedupHigh,
	}
}

// ProjectBaseline projects the p50, p90 and p99 latencies of an inference
// baseline, in that order.
func (m *NPUModeler) ProjectBaseline(inference model.MetricStats) []model.NPUProjection {
	out := make([]model.NPUProjection, 0, len(ProjectedPercentiles))
	for _, name := range ProjectedPercentiles {
		v, _ := inference.Percentile(name)
		p := m.Project(v)
		p.Percentile = name
		out = append(out, p)
	}
	return out
}
