// Command measure summarizes firmware measurement logs: per-function latency
// baselines, NPU projections of the inference baseline and, when a LoRa TX
// log is given, measured versus modeled time on air.
//
// With -results-dir it also writes the files a paper build consumes: JSON
// and LaTeX for the baseline, NPU, airtime and platform comparison tables,
// the jitter and latency breakdown figures, and a RESULTS_SUMMARY.md index.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/config"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/figures"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logparse"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func main() {
	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error(ctx, "measure failed", logging.Err(err))
		os.Exit(1)
	}
}

// Summary is the combined JSON document printed for -output json.
type Summary struct {
	Measurements model.MeasurementReport   `json:"measurements"`
	NPU          []model.NPUProjection     `json:"npu,omitempty"`
	LoRa         []model.AirtimeComparison `json:"lora,omitempty"`

	// ControlSamplesNs are the raw CTRL latencies behind the jitter CDF.
	ControlSamplesNs []float64 `json:"-"`
}

type options struct {
	input       string
	loraLog     string
	configPath  string
	output      string
	bwKHz       int
	speedupLow  float64
	speedupHigh float64
	resultsDir  string
	figures     string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("measure", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&o.input, "input", "-", "Firmware measurement log (- for stdin)")
	fs.StringVar(&o.loraLog, "lora", "", "Optional LoRa TX log to compare against the airtime model")
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&o.output, "output", "json", "Output format: json, csv, latex, text or all")
	fs.IntVar(&o.bwKHz, "bw", 125, "Bandwidth in kHz the LoRa log was captured at")
	fs.Float64Var(&o.speedupLow, "speedup-low", 0, "Conservative NPU speedup (0 uses the configured value)")
	fs.Float64Var(&o.speedupHigh, "speedup-high", 0, "Optimistic NPU speedup (0 uses the configured value)")
	fs.StringVar(&o.resultsDir, "results-dir", "", "Directory to write result tables, figures and RESULTS_SUMMARY.md into")
	fs.StringVar(&o.figures, "figures", figures.PDF, "Figure format for -results-dir: pdf or svg")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, log logging.Logger) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(o.output)
	if err != nil {
		return err
	}
	if o.figures != figures.PDF && o.figures != figures.SVG {
		return fmt.Errorf("-figures: unsupported format %q", o.figures)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.speedupLow > 0 {
		cfg.NPU.SpeedupLow = o.speedupLow
	}
	if o.speedupHigh > 0 {
		cfg.NPU.SpeedupHigh = o.speedupHigh
	}
	npu, err := core.NewNPUModeler(cfg.NPU.SpeedupLow, cfg.NPU.SpeedupHigh)
	if err != nil {
		return err
	}
	engineCfg, err := cfg.AirtimeEngineConfig()
	if err != nil {
		return err
	}
	engine := core.NewAirtimeEngine(engineCfg, log)

	ctx = logging.ContextWithLogger(ctx, log)
	sum, err := summarize(ctx, o, stdin, npu, engine)
	if err != nil {
		return err
	}

	if o.resultsDir != "" {
		sweep, err := engine.EnumerateConcurrent(ctx, cfg.Sweep, cfg.Engine.Workers)
		if err != nil {
			return err
		}
		written, err := writeResults(ctx, o.resultsDir, o.figures, sum, sweep, cfg.Hardware)
		if err != nil {
			return err
		}
		log.Debug(ctx, "result files", logging.Any("files", written))
		log.Info(ctx, "wrote result files", logging.String("dir", o.resultsDir))
	}
	return writeSummary(stdout, format, sum)
}

func summarize(ctx context.Context, o options, stdin io.Reader, npu *core.NPUModeler, engine *core.AirtimeEngine) (Summary, error) {
	log := logging.FromContext(ctx, nil)

	in, closeIn, err := openInput(o.input, stdin)
	if err != nil {
		return Summary{}, err
	}
	defer closeIn()

	parsed, err := logparse.ParseMeasurements(ctx, in)
	if err != nil {
		return Summary{}, fmt.Errorf("parse %s: %w", o.input, err)
	}
	if parsed.Skipped > 0 {
		log.Warn(ctx, "skipped malformed measurement records", logging.Int("skipped", parsed.Skipped))
	}

	sum := Summary{Measurements: parsed.Report(), ControlSamplesNs: parsed.Control}
	if inference, ok := sum.Measurements.Baseline["inference"]; ok {
		sum.NPU = npu.ProjectBaseline(inference)
	} else {
		log.Warn(ctx, "no inference measurements; skipping NPU projection")
	}

	if o.loraLog != "" {
		f, err := os.Open(o.loraLog)
		if err != nil {
			return Summary{}, err
		}
		defer f.Close()

		samples, err := logparse.ParseLoRaTX(ctx, f)
		if err != nil {
			return Summary{}, fmt.Errorf("parse %s: %w", o.loraLog, err)
		}
		sum.LoRa, err = engine.CompareMeasured(logparse.Summarize(samples), o.bwKHz*1000)
		if err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// writeSummary prints JSON as one document and every other format as
// separated sections.
func writeSummary(w io.Writer, f report.Format, sum Summary) error {
	if f == report.FormatJSON || f == report.FormatProto {
		return report.WriteJSON(w, sum)
	}

	sections := []func() error{
		func() error { return report.WriteMeasurements(w, f, sum.Measurements) },
	}
	if len(sum.NPU) > 0 {
		sections = append(sections, func() error { return report.WriteNPU(w, f, sum.NPU) })
	}
	if len(sum.LoRa) > 0 {
		sections = append(sections, func() error { return report.WriteComparison(w, f, sum.LoRa) })
	}
	for i, section := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, report.Separator); err != nil {
				return err
			}
		}
		if err := section(); err != nil {
			return err
		}
	}
	return nil
}

type resultFile struct {
	name   string
	render func(io.Writer) error
}

const resultsSummaryName = "RESULTS_SUMMARY.md"

// writeResults renders every result file into dir and finishes with the
// RESULTS_SUMMARY.md index. It returns the names written, in order.
func writeResults(ctx context.Context, dir, figureFormat string, sum Summary, sweep []model.SweepResult, hw model.HardwareCatalog) ([]string, error) {
	log := logging.FromContext(ctx, nil)

	files := []resultFile{
		{"baseline.json", func(w io.Writer) error { return report.WriteJSON(w, sum.Measurements) }},
		{"table1_baseline.tex", func(w io.Writer) error { return report.WriteBaselineLaTeX(w, sum.Measurements) }},
		{"lora_airtime.json", func(w io.Writer) error { return report.WriteJSON(w, sweep) }},
		{"table3_airtime.tex", func(w io.Writer) error { return report.WriteAirtimeLaTeX(w, sweep) }},
		{"comparisons.json", func(w io.Writer) error { return report.WriteJSON(w, hw) }},
		{"table4_comparison.tex", func(w io.Writer) error { return report.WriteMCULaTeX(w, hw.MCUs) }},
		{"table5_comparison.tex", func(w io.Writer) error { return report.WriteSBCLaTeX(w, hw.SBCs) }},
		{"table6_comparison.tex", func(w io.Writer) error { return report.WriteLoRaModuleLaTeX(w, hw.LoRaModules) }},
		{"appendix_c_mcu.tex", func(w io.Writer) error { return report.WriteMCUDetailedLaTeX(w, hw.MCUs) }},
	}
	if len(sum.NPU) > 0 {
		files = append(files,
			resultFile{"npu_modeled.json", func(w io.Writer) error { return report.WriteJSON(w, sum.NPU) }},
			resultFile{"table2_npu.tex", func(w io.Writer) error { return report.WriteNPULaTeX(w, sum.NPU) }},
		)
	}
	if len(sum.LoRa) > 0 {
		files = append(files, resultFile{"lora_comparison.json", func(w io.Writer) error { return report.WriteJSON(w, sum.LoRa) }})
	}

	if breakdown := core.PipelineBreakdown(sum.Measurements.Baseline, sweep); len(breakdown) > 0 {
		files = append(files,
			resultFile{"latency_breakdown.json", func(w io.Writer) error { return report.WriteJSON(w, breakdown) }},
			resultFile{"latency_breakdown." + figureFormat, func(w io.Writer) error {
				return figures.LatencyBreakdown(w, breakdown, figureFormat)
			}},
		)
	}
	if len(sum.ControlSamplesNs) > 0 {
		files = append(files, resultFile{"control_jitter_cdf." + figureFormat, func(w io.Writer) error {
			return figures.ControlJitterCDF(w, sum.ControlSamplesNs, figureFormat)
		}})
	} else {
		log.Warn(ctx, "no control loop samples; skipping jitter CDF")
	}

	names := make([]string, 0, len(files)+1)
	for _, f := range files {
		names = append(names, f.name)
	}
	files = append(files, resultFile{resultsSummaryName, func(w io.Writer) error { return report.WriteResultsSummary(w, names) }})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for _, file := range files {
		var buf bytes.Buffer
		if err := file.render(&buf); err != nil {
			return nil, fmt.Errorf("render %s: %w", file.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file.name), buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
	}
	return append(names, resultsSummaryName), nil
}
