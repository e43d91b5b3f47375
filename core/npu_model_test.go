package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func TestNPUModelerProject(t *testing.T) {
	m, err := NewNPUModeler(DefaultSpeedupLow, DefaultSpeedupHigh)
	if err != nil {
		t.Fatalf("NewNPUModeler: %v", err)
	}
	p := m.Project(1_000_001)
	if p.NPULowNs != 50000 {
		t.Fatalf("NPULowNs = %d, want 50000", p.NPULowNs)
	}
	if p.NPUHighNs != 125000 {
		t.Fatalf("NPUHighNs = %d, want 125000", p.NPUHighNs)
	}
	if p.SpeedupLow != 8 || p.SpeedupHigh != 20 {
		t.Fatalf("speedups = %v/%v, want 8/20", p.SpeedupLow, p.SpeedupHigh)
	}
}

func TestNPUModelerProjectBaseline(t *testing.T) {
	m, err := NewNPUModeler(10, 10)
	if err != nil {
		t.Fatalf("NewNPUModeler: %v", err)
	}
	out := m.ProjectBaseline(model.MetricStats{P50: 1000, P90: 2000, P95: 2500, P99: 4000})
	if len(out) != 3 {
		t.Fatalf("len(projections) = %d, want 3", len(out))
	}
	want := []struct {
		name string
		ns   int64
	}{{"p50", 100}, {"p90", 200}, {"p99", 400}}
	for i, w := range want {
		if out[i].Percentile != w.name || out[i].NPULowNs != w.ns || out[i].NPUHighNs != w.ns {
			t.Fatalf("projection[%d] = %+v, want %s/%d", i, out[i], w.name, w.ns)
		}
	}
}

func TestNewNPUModelerValidates(t *testing.T) {
	for _, tc := range []struct{ low, high float64 }{{0, 20}, {8, -1}, {30, 20}} {
		if _, err := NewNPUModeler(tc.low, tc.high); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("NewNPUModeler(%v, %v) error = %v, want ErrInvalidConfiguration", tc.low, tc.high, err)
		}
	}
}
