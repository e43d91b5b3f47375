package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

const sampleLog = `boot: firmware up
===MEASUREMENTS_START===
MEAS,inference,iter,0,ns,1000
MEAS,inference,iter,1,ns,2000
MEAS,inference,iter,2,ns,3000
MEAS,compress,iter,0,ns,500
CTRL,loop,iter,0,ns,100
STACK,thread,perception,free_bytes,2048
MEAS,inference,iter,3,ns,not-a-number
===MEASUREMENTS_END===
`

const sampleLoRaLog = `LORA_TX,payload,100,sf,7,airtime_ms,180.0
LORA_TX,payload,100,sf,7,airtime_ms,180.0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runMeasure(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, logging.Noop())
	return out.String(), err
}

func TestRunJSONSummaryFromStdin(t *testing.T) {
	out, err := runMeasure(t, sampleLog)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	inference, ok := sum.Measurements.Baseline["inference"]
	if !ok {
		t.Fatalf("inference baseline missing: %+v", sum.Measurements.Baseline)
	}
	if inference.Count != 3 || inference.Mean != 2000 {
		t.Fatalf("inference = %+v, want 3 samples with mean 2000", inference)
	}
	if sum.Measurements.Control == nil || sum.Measurements.Control.Mean != 100 {
		t.Fatalf("control = %+v, want mean 100", sum.Measurements.Control)
	}
	if got := sum.Measurements.Stack["perception"].Mean; got != 2048 {
		t.Fatalf("stack perception mean = %v, want 2048", got)
	}
	if len(sum.NPU) != 3 || sum.NPU[0].Percentile != "p50" || sum.NPU[0].SpeedupHigh != 20 {
		t.Fatalf("npu projections = %+v", sum.NPU)
	}
	if len(sum.LoRa) != 0 {
		t.Fatalf("no LoRa log given, got %d comparison rows", len(sum.LoRa))
	}
}

func TestRunWithLoRaComparison(t *testing.T) {
	input := writeFile(t, "qemu.log", sampleLog)
	lora := writeFile(t, "lora.log", sampleLoRaLog)

	out, err := runMeasure(t, "", "-input", input, "-lora", lora, "-speedup-low", "4", "-speedup-high", "10")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.NPU[0].SpeedupLow != 4 || sum.NPU[0].SpeedupHigh != 10 {
		t.Fatalf("speedup flags not applied: %+v", sum.NPU[0])
	}
	if len(sum.LoRa) != 1 {
		t.Fatalf("got %d comparison rows, want 1", len(sum.LoRa))
	}
	row := sum.LoRa[0]
	if row.Measured.Count != 2 || row.Measured.AirtimeMeanMs != 180 {
		t.Fatalf("measured = %+v", row.Measured)
	}
	if math.Abs(row.ModeledMs-174.336) > 1e-9 {
		t.Fatalf("modeled = %v, want 174.336", row.ModeledMs)
	}
	if row.DeltaPct <= 0 {
		t.Fatalf("delta = %v, want positive", row.DeltaPct)
	}
}

func TestRunSkipsUnmodelableLoRaGroup(t *testing.T) {
	lora := writeFile(t, "lora.log", sampleLoRaLog+"LORA_TX,payload,100,sf,0,airtime_ms,12.0\n")
	out, err := runMeasure(t, sampleLog, "-lora", lora)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sum.LoRa) != 1 || sum.LoRa[0].Measured.SpreadingFactor != 7 {
		t.Fatalf("comparison rows = %+v, want only the SF7 group", sum.LoRa)
	}
}

func TestRunCSVSections(t *testing.T) {
	lora := writeFile(t, "lora.log", sampleLoRaLog)
	out, err := runMeasure(t, sampleLog, "-output", "csv", "-lora", lora)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sections := strings.Split(out, report.Separator)
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want baseline, npu and lora", len(sections))
	}
	if !strings.HasPrefix(sections[0], "Function,Mean_ns,Std_ns,p50_ns,p90_ns,p99_ns\n") {
		t.Fatalf("baseline section = %q", sections[0])
	}
	if !strings.HasPrefix(sections[1], "Percentile,CPU_Baseline_ns,") {
		t.Fatalf("npu section = %q", sections[1])
	}
	if !strings.HasPrefix(sections[2], "Payload_B,SF,Count,Measured_ms,") {
		t.Fatalf("lora section = %q", sections[2])
	}
}

func TestRunWithoutInferenceSkipsNPU(t *testing.T) {
	log := "===MEASUREMENTS_START===\nMEAS,compress,iter,0,ns,500\n===MEASUREMENTS_END===\n"
	out, err := runMeasure(t, log, "-output", "text")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, report.Separator) {
		t.Fatalf("expected a single section, got:\n%s", out)
	}
	if !strings.Contains(out, "compress") {
		t.Fatalf("text output missing compress row:\n%s", out)
	}
}

func TestRunWritesResultsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	lora := writeFile(t, "lora.log", sampleLoRaLog)
	if _, err := runMeasure(t, sampleLog, "-results-dir", dir, "-lora", lora); err != nil {
		t.Fatalf("run: %v", err)
	}
	files := []string{
		"baseline.json", "table1_baseline.tex",
		"npu_modeled.json", "table2_npu.tex",
		"lora_airtime.json", "table3_airtime.tex",
		"lora_comparison.json",
		"comparisons.json", "table4_comparison.tex", "table5_comparison.tex", "table6_comparison.tex", "appendix_c_mcu.tex",
		"latency_breakdown.json", "latency_breakdown.pdf", "control_jitter_cdf.pdf",
		"RESULTS_SUMMARY.md",
	}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}

	table3, _ := os.ReadFile(filepath.Join(dir, "table3_airtime.tex"))
	if !strings.Contains(string(table3), "100 & SF7/125kHz & 0.174 & 1") {
		t.Fatalf("table3 missing 100 B SF7 row:\n%s", table3)
	}
	table4, _ := os.ReadFile(filepath.Join(dir, "table4_comparison.tex"))
	if !strings.Contains(string(table4), "STM32N6 & Cortex-M55 & 600 & 2560 & 2048 & Yes & Yes") {
		t.Fatalf("table4 missing STM32N6 row:\n%s", table4)
	}
	cdf, _ := os.ReadFile(filepath.Join(dir, "control_jitter_cdf.pdf"))
	if !bytes.HasPrefix(cdf, []byte("%PDF-")) {
		t.Fatalf("control_jitter_cdf.pdf is not a PDF")
	}

	var breakdown []model.LatencyBreakdown
	data, _ := os.ReadFile(filepath.Join(dir, "latency_breakdown.json"))
	if err := json.Unmarshal(data, &breakdown); err != nil {
		t.Fatalf("decode latency_breakdown.json: %v", err)
	}
	if len(breakdown) != 12 || breakdown[0].Scenario != "100B SF7" || breakdown[0].InferenceMs != 0.002 {
		t.Fatalf("breakdown[0] = %+v (of %d)", breakdown[0], len(breakdown))
	}

	summary, _ := os.ReadFile(filepath.Join(dir, "RESULTS_SUMMARY.md"))
	for _, name := range files[:len(files)-1] {
		if !strings.Contains(string(summary), "`"+name+"`") {
			t.Fatalf("RESULTS_SUMMARY.md does not list %s:\n%s", name, summary)
		}
	}
}

func TestRunWritesSVGFigures(t *testing.T) {
	dir := t.TempDir()
	if _, err := runMeasure(t, sampleLog, "-results-dir", dir, "-figures", "svg"); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"latency_breakdown.svg", "control_jitter_cdf.svg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "<svg") {
			t.Fatalf("%s is not an SVG document", name)
		}
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"-input", "does-not-exist.log"}},
		{"missing lora log", []string{"-lora", "does-not-exist.log"}},
		{"inverted speedups", []string{"-speedup-low", "30", "-speedup-high", "10"}},
		{"unknown format", []string{"-output", "yaml"}},
		{"unknown figure format", []string{"-results-dir", "RESULTS", "-figures", "png"}},
		{"zero bandwidth", []string{"-lora", "LORA", "-bw", "0"}},
	}
	loraPath := writeFile(t, "lora.log", sampleLoRaLog)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string(nil), tc.args...)
			for i, a := range args {
				if a == "LORA" {
					args[i] = loraPath
				}
			}
			if _, err := runMeasure(t, sampleLog, args...); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}
