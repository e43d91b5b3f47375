package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func tableSweep() []model.SweepPoint {
	var points []model.SweepPoint
	for _, payload := range []int{100, 500, 1000, 2000} {
		for _, sf := range []int{7, 9, 12} {
			points = append(points, model.SweepPoint{PayloadBytes: payload, SpreadingFactor: sf, BandwidthHz: model.Bandwidth125kHz})
		}
	}
	return points
}

func TestEnumerateConfigurationsPreservesOrder(t *testing.T) {
	e := newTestEngine()
	points := tableSweep()
	// Duplicates are evaluated, not collapsed.
	points = append(points, points[0])

	results, err := e.EnumerateConfigurations(points)
	if err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	if len(results) != len(points) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(points))
	}
	for i, r := range results {
		if r.Point != points[i] {
			t.Fatalf("results[%d].Point = %+v, want %+v", i, r.Point, points[i])
		}
		if r.Airtime.Config.CodingRate != 1 || r.Airtime.Config.PreambleSymbols != 8 {
			t.Fatalf("results[%d] not evaluated with defaults: %+v", i, r.Airtime.Config)
		}
		if r.Airtime.Config.PayloadBytes != points[i].PayloadBytes {
			t.Fatalf("results[%d] airtime payload = %d, want %d", i, r.Airtime.Config.PayloadBytes, points[i].PayloadBytes)
		}
	}
	if !reflect.DeepEqual(results[0], results[len(results)-1]) {
		t.Fatalf("duplicate point produced different results")
	}

	first := results[0]
	if !approxEqual(first.Airtime.TotalAirtimeS, 0.174336, 1e-12) {
		t.Fatalf("first airtime = %v, want 0.174336", first.Airtime.TotalAirtimeS)
	}
	if first.Fragmentation.FragmentCount != 1 {
		t.Fatalf("first fragments = %d, want 1", first.Fragmentation.FragmentCount)
	}
}

func TestEnumerateConfigurationsFragmentAirtime(t *testing.T) {
	e := newTestEngine()
	results, err := e.EnumerateConfigurations([]model.SweepPoint{{PayloadBytes: 2000, SpreadingFactor: 7, BandwidthHz: model.Bandwidth125kHz}})
	if err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	r := results[0]
	if r.Fragmentation.FragmentCount != 10 {
		t.Fatalf("FragmentCount = %d, want 10", r.Fragmentation.FragmentCount)
	}

	full, err := e.ComputeAirtime(model.DefaultRadioConfig(222, 7, model.Bandwidth125kHz))
	if err != nil {
		t.Fatalf("ComputeAirtime: %v", err)
	}
	if !approxEqual(r.Fragmentation.TotalAirtimeS, 10*full.TotalAirtimeS, 1e-12) {
		t.Fatalf("fragmented airtime = %v, want %v", r.Fragmentation.TotalAirtimeS, 10*full.TotalAirtimeS)
	}
}

func TestEnumerateConfigurationsFailsFast(t *testing.T) {
	e := newTestEngine()
	points := []model.SweepPoint{
		{PayloadBytes: 10, SpreadingFactor: 7, BandwidthHz: model.Bandwidth125kHz},
		{PayloadBytes: 10, SpreadingFactor: 7, BandwidthHz: 0},
	}
	if _, err := e.EnumerateConfigurations(points); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("EnumerateConfigurations error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestEnumerateConcurrentMatchesSequential(t *testing.T) {
	e := newTestEngine()
	var points []model.SweepPoint
	for payload := 0; payload < 600; payload += 13 {
		for sf := 7; sf <= 12; sf++ {
			for _, bw := range []int{model.Bandwidth125kHz, model.Bandwidth250kHz, model.Bandwidth500kHz} {
				points = append(points, model.SweepPoint{PayloadBytes: payload, SpreadingFactor: sf, BandwidthHz: bw})
			}
		}
	}

	want, err := e.EnumerateConfigurations(points)
	if err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	for _, workers := range []int{0, 1, 4, 64} {
		got, err := e.EnumerateConcurrent(context.Background(), points, workers)
		if err != nil {
			t.Fatalf("EnumerateConcurrent(workers=%d): %v", workers, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("EnumerateConcurrent(workers=%d) differs from sequential sweep", workers)
		}
	}
}

func TestEnumerateConcurrentErrorsAndCancellation(t *testing.T) {
	e := newTestEngine()

	bad := tableSweep()
	bad[5].BandwidthHz = -1
	if _, err := e.EnumerateConcurrent(context.Background(), bad, 3); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("EnumerateConcurrent error = %v, want ErrInvalidConfiguration", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.EnumerateConcurrent(ctx, tableSweep(), 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("EnumerateConcurrent on cancelled ctx error = %v, want context.Canceled", err)
	}

	empty, err := e.EnumerateConcurrent(context.Background(), nil, 4)
	if err != nil || len(empty) != 0 {
		t.Fatalf("EnumerateConcurrent(nil) = %v, %v; want empty, nil", empty, err)
	}
}

func TestEnumerateConfigurationsObservesEachPointOnce(t *testing.T) {
	metrics := &recordingMetrics{}
	e := newTestEngine(WithMetricsRecorder(metrics))

	// 2000 B needs a 222 B per-fragment price in addition to the full packet.
	if _, err := e.EnumerateConfigurations([]model.SweepPoint{{PayloadBytes: 2000, SpreadingFactor: 7, BandwidthHz: model.Bandwidth125kHz}}); err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	if metrics.airtimes != 1 {
		t.Fatalf("airtimes observed = %d, want 1", metrics.airtimes)
	}
	if metrics.fragments != 1 {
		t.Fatalf("fragments observed = %d, want 1", metrics.fragments)
	}
}

func TestEnumerateConcurrentTracesEachPoint(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	e := newTestEngine()
	points := tableSweep()
	if _, err := e.EnumerateConcurrent(context.Background(), points, 3); err != nil {
		t.Fatalf("EnumerateConcurrent: %v", err)
	}

	ended := rec.Ended()
	if len(ended) != len(points) {
		t.Fatalf("point spans = %d, want %d", len(ended), len(points))
	}
	seen := map[model.SweepPoint]bool{}
	for _, s := range ended {
		if s.Name() != "AirtimeEngine/evaluatePoint" {
			t.Fatalf("span name = %q", s.Name())
		}
		var p model.SweepPoint
		var symbols int64
		for _, kv := range s.Attributes() {
			switch kv.Key {
			case observability.AttrPayloadBytes:
				p.PayloadBytes = int(kv.Value.AsInt64())
			case observability.AttrSpreadingFactor:
				p.SpreadingFactor = int(kv.Value.AsInt64())
			case observability.AttrBandwidthHz:
				p.BandwidthHz = int(kv.Value.AsInt64())
			case observability.AttrPayloadSymbols:
				symbols = kv.Value.AsInt64()
			}
		}
		if symbols < 8 {
			t.Fatalf("span for %+v has payload symbols %d", p, symbols)
		}
		seen[p] = true
	}
	for _, p := range points {
		if !seen[p] {
			t.Fatalf("no span for %+v", p)
		}
	}

	bad := tableSweep()[:1]
	bad[0].BandwidthHz = 0
	if _, err := e.EnumerateConcurrent(context.Background(), bad, 1); err == nil {
		t.Fatalf("expected error for zero bandwidth")
	}
	last := rec.Ended()[len(rec.Ended())-1]
	if last.Status().Code != codes.Error {
		t.Fatalf("failed point span status = %v, want Error", last.Status())
	}
}
