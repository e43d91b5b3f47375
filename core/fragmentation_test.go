package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func TestFragmentCount(t *testing.T) {
	cases := []struct {
		payload, max, want int
	}{
		{0, 222, 0},
		{1, 222, 1},
		{222, 222, 1},
		{223, 222, 2},
		{444, 222, 2},
		{2000, 222, 10},
		{100, 51, 2},
	}
	for _, tc := range cases {
		got, err := FragmentCount(tc.payload, tc.max)
		if err != nil {
			t.Fatalf("FragmentCount(%d, %d): %v", tc.payload, tc.max, err)
		}
		if got != tc.want {
			t.Fatalf("FragmentCount(%d, %d) = %d, want %d", tc.payload, tc.max, got, tc.want)
		}
	}
}

func TestFragmentCountRejectsInvalidInput(t *testing.T) {
	for _, max := range []int{0, -1, -222} {
		if _, err := FragmentCount(100, max); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("FragmentCount(100, %d) error = %v, want ErrInvalidConfiguration", max, err)
		}
	}
	if _, err := FragmentCount(-5, 222); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("FragmentCount(-5, 222) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestEngineFragmentUsesConfiguredMax(t *testing.T) {
	metrics := &recordingMetrics{}
	e := NewAirtimeEngine(EngineConfig{MaxPayloadPerPacket: 51}, nil, WithMetricsRecorder(metrics))

	perPacket, err := e.ComputeAirtime(model.DefaultRadioConfig(51, 9, model.Bandwidth125kHz))
	if err != nil {
		t.Fatalf("ComputeAirtime: %v", err)
	}
	frag, err := e.Fragment(120, perPacket)
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if frag.FragmentCount != 3 {
		t.Fatalf("FragmentCount = %d, want 3", frag.FragmentCount)
	}
	if frag.MaxPayloadPerPacket != 51 {
		t.Fatalf("MaxPayloadPerPacket = %d, want 51", frag.MaxPayloadPerPacket)
	}
	if !approxEqual(frag.TotalAirtimeS, 3*perPacket.TotalAirtimeS, 1e-12) {
		t.Fatalf("TotalAirtimeS = %v, want %v", frag.TotalAirtimeS, 3*perPacket.TotalAirtimeS)
	}
	if metrics.fragments != 1 {
		t.Fatalf("fragments observed = %d, want 1", metrics.fragments)
	}

	zero := NewAirtimeEngine(EngineConfig{MaxPayloadPerPacket: 0}, nil)
	if _, err := zero.FragmentCount(10); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("FragmentCount with zero max error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestFragmentWithLimitRecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	e := newTestEngine(WithMetricsRecorder(metrics))

	frag, err := e.FragmentWithLimit(250, 100, model.AirtimeResult{})
	if err != nil {
		t.Fatalf("FragmentWithLimit: %v", err)
	}
	if frag.FragmentCount != 3 || frag.MaxPayloadPerPacket != 100 || frag.TotalAirtimeS != 0 {
		t.Fatalf("fragmentation = %+v, want 3 unpriced fragments of 100 B", frag)
	}
	if metrics.fragments != 1 {
		t.Fatalf("fragments observed = %d, want 1", metrics.fragments)
	}

	if _, err := e.FragmentWithLimit(10, -1, model.AirtimeResult{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("FragmentWithLimit(max=-1) error = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := e.FragmentCountWithLimit(-1, 100); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("FragmentCountWithLimit(-1) error = %v, want ErrInvalidConfiguration", err)
	}
	if metrics.rejected != 2 || metrics.fragments != 1 {
		t.Fatalf("rejected = %d fragments = %d, want 2 and 1", metrics.rejected, metrics.fragments)
	}
}
