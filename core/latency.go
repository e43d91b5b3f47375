package core

import (
	"fmt"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Baseline stream names feeding the pipeline breakdown.
const (
	StageInference   = "inference"
	StageCompression = "compress"
	StageSPI         = "spi_prep"
)

// PipelineBreakdown pairs the mean CPU stage latencies of baseline with the
// fragmented airtime of every sweep row, one scenario per row. Missing
// stages contribute zero.
func PipelineBreakdown(baseline map[string]model.MetricStats, sweep []model.SweepResult) []model.LatencyBreakdown {
	meanMs := func(stage string) float64 {
		return baseline[stage].Mean / 1e6
	}
	out := make([]model.LatencyBreakdown, 0, len(sweep))
	for _, r := range sweep {
		out = append(out, model.LatencyBreakdown{
			Scenario:      fmt.Sprintf("%dB SF%d", r.Point.PayloadBytes, r.Point.SpreadingFactor),
			InferenceMs:   meanMs(StageInference),
			CompressionMs: meanMs(StageCompression),
			SPIMs:         meanMs(StageSPI),
			AirtimeMs:     r.Fragmentation.TotalAirtimeS * 1000,
		})
	}
	return out
}
