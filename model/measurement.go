package model

// MetricStats summarises one named measurement stream.
type MetricStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Percentile returns the named percentile ("p50", "p90", "p95", "p99").
func (s MetricStats) Percentile(name string) (float64, bool) {
	switch name {
	case "p50":
		return s.P50, true
	case "p90":
		return s.P90, true
	case "p95":
		return s.P95, true
	case "p99":
		return s.P99, true
	}
	return 0, false
}

// MeasurementReport is the per-function, control-loop and stack summary
// extracted from one firmware measurement log.
type MeasurementReport struct {
	Baseline map[string]MetricStats `json:"baseline"`
	Control  *MetricStats           `json:"control,omitempty"`
	Stack    map[string]MetricStats `json:"stack"`
}

// NPUProjection is a CPU latency scaled by a low/high NPU speedup range.
// NPULowNs uses the optimistic speedup, NPUHighNs the conservative one.
type NPUProjection struct {
	Percentile    string  `json:"percentile"`
	CPUBaselineNs float64 `json:"cpu_baseline_ns"`
	NPULowNs      int64   `json:"npu_low_ns"`
	NPUHighNs     int64   `json:"npu_high_ns"`
	SpeedupLow    float64 `json:"speedup_low"`
	SpeedupHigh   float64 `json:"speedup_high"`
}

// LoRaAirtimeSummary aggregates measured on-air times for one payload/SF pair.
type LoRaAirtimeSummary struct {
	PayloadBytes    int     `json:"payload"`
	SpreadingFactor int     `json:"sf"`
	AirtimeMeanMs   float64 `json:"airtime_mean_ms"`
	AirtimeStdMs    float64 `json:"airtime_std_ms"`
	Count           int     `json:"count"`
}

// AirtimeComparison sets a measured airtime summary against the modeled
// time on air for the same payload and spreading factor.
type AirtimeComparison struct {
	Measured  LoRaAirtimeSummary `json:"measured"`
	ModeledMs float64            `json:"modeled_ms"`
	// DeltaPct is (measured - modeled) / modeled * 100.
	DeltaPct float64 `json:"delta_pct"`
}

// LatencyBreakdown splits one end-to-end pipeline scenario into its
// stages, in milliseconds.
type LatencyBreakdown struct {
	Scenario      string  `json:"scenario"`
	InferenceMs   float64 `json:"inference_ms"`
	CompressionMs float64 `json:"compression_ms"`
	SPIMs         float64 `json:"spi_ms"`
	AirtimeMs     float64 `json:"airtime_ms"`
}

// TotalMs is the stacked height of the scenario.
func (b LatencyBreakdown) TotalMs() float64 {
	return b.InferenceMs + b.CompressionMs + b.SPIMs + b.AirtimeMs
}
