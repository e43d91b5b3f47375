package core

import (
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func TestPipelineBreakdown(t *testing.T) {
	e := newTestEngine()
	sweep, err := e.EnumerateConfigurations([]model.SweepPoint{
		{PayloadBytes: 100, SpreadingFactor: 7, BandwidthHz: model.Bandwidth125kHz},
		{PayloadBytes: 500, SpreadingFactor: 7, BandwidthHz: model.Bandwidth125kHz},
	})
	if err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	baseline := map[string]model.MetricStats{
		StageInference:   {Mean: 45_200_000},
		StageCompression: {Mean: 12_300_000},
	}

	rows := PipelineBreakdown(baseline, sweep)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Scenario != "100B SF7" || rows[1].Scenario != "500B SF7" {
		t.Fatalf("scenarios = %q, %q", rows[0].Scenario, rows[1].Scenario)
	}
	if !approxEqual(rows[0].InferenceMs, 45.2, 1e-12) || !approxEqual(rows[0].CompressionMs, 12.3, 1e-12) || rows[0].SPIMs != 0 {
		t.Fatalf("stage latencies = %+v", rows[0])
	}
	if !approxEqual(rows[1].AirtimeMs, 1045.248, 1e-9) {
		t.Fatalf("500 B airtime = %v ms, want 1045.248", rows[1].AirtimeMs)
	}
	if !approxEqual(rows[0].TotalMs(), 45.2+12.3+174.336, 1e-9) {
		t.Fatalf("total = %v", rows[0].TotalMs())
	}
}
