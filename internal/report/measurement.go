package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// BaselineFunctions is the row order of the CPU baseline LaTeX table.
var BaselineFunctions = []string{"inference", "event_extract", "compress", "spi_prep", "control"}

var baselineNames = map[string]string{
	"inference":     "Inference (CPU-only)",
	"event_extract": "Event extraction",
	"compress":      "Compression (SW fallback)",
	"spi_prep":      "SPI packet prep",
	"control":       "Control loop handler",
}

// WriteBaselineCSV writes per-function latency statistics, sorted by name.
func WriteBaselineCSV(w io.Writer, rep model.MeasurementReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Function", "Mean_ns", "Std_ns", "p50_ns", "p90_ns", "p99_ns"}); err != nil {
		return err
	}
	for _, name := range sortedKeys(rep.Baseline) {
		s := rep.Baseline[name]
		row := []string{
			name,
			formatFloat(s.Mean, 0),
			formatFloat(s.Std, 0),
			formatFloat(s.P50, 0),
			formatFloat(s.P90, 0),
			formatFloat(s.P99, 0),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBaselineLaTeX writes the CPU-only latency baseline table. Only the
// functions listed in BaselineFunctions appear, in that order.
func WriteBaselineLaTeX(w io.Writer, rep model.MeasurementReport) error {
	var rows []string
	for _, fn := range BaselineFunctions {
		s, ok := rep.Baseline[fn]
		if !ok {
			continue
		}
		rows = append(rows, fmt.Sprintf("%s & %.0f & %.0f & %.0f & %.0f",
			baselineNames[fn], s.Mean, s.Std, s.P90, s.P99))
	}
	return latexTable(w, "Table 1: CPU-only software latency baseline", "lcccc",
		"Function & Mean (ns) & Std (ns) & p90 (ns) & p99 (ns)", rows)
}

// WriteMeasurements renders a measurement report in a single format.
func WriteMeasurements(w io.Writer, f Format, rep model.MeasurementReport) error {
	switch f {
	case FormatJSON, FormatProto:
		return WriteJSON(w, rep)
	case FormatCSV:
		return WriteBaselineCSV(w, rep)
	case FormatLaTeX:
		return WriteBaselineLaTeX(w, rep)
	case FormatText:
		return writeStatsText(w, rep)
	case FormatAll:
		return writeAll(w, f, func(sub Format) error { return WriteMeasurements(w, sub, rep) })
	}
	return fmt.Errorf("unsupported format %q", f)
}

func writeStatsText(w io.Writer, rep model.MeasurementReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Stream\tCount\tMean\tStd\tMin\tMax\tp50\tp90\tp99")
	row := func(name string, s model.MetricStats) {
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\n",
			name, s.Count, s.Mean, s.Std, s.Min, s.Max, s.P50, s.P90, s.P99)
	}
	for _, name := range sortedKeys(rep.Baseline) {
		row(name, rep.Baseline[name])
	}
	if rep.Control != nil {
		row("control_loop", *rep.Control)
	}
	for _, name := range sortedKeys(rep.Stack) {
		row("stack:"+name, rep.Stack[name])
	}
	return tw.Flush()
}

// WriteNPUCSV writes one row per projected percentile.
func WriteNPUCSV(w io.Writer, projections []model.NPUProjection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Percentile", "CPU_Baseline_ns", "NPU_Low_ns", "NPU_High_ns", "Speedup_Low", "Speedup_High"}); err != nil {
		return err
	}
	for _, p := range projections {
		row := []string{
			p.Percentile,
			formatFloat(p.CPUBaselineNs, -1),
			fmt.Sprint(p.NPULowNs),
			fmt.Sprint(p.NPUHighNs),
			formatFloat(p.SpeedupLow, -1),
			formatFloat(p.SpeedupHigh, -1),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNPULaTeX writes the modeled NPU latency table in microseconds.
func WriteNPULaTeX(w io.Writer, projections []model.NPUProjection) error {
	rows := make([]string, 0, len(projections))
	for _, p := range projections {
		rows = append(rows, fmt.Sprintf("%s & %.1f $\\mu$s & %.1f $\\mu$s & %.0f-%.0fx speedup",
			strings.ToUpper(p.Percentile),
			float64(p.NPULowNs)/1000,
			float64(p.NPUHighNs)/1000,
			p.SpeedupLow, p.SpeedupHigh,
		))
	}
	return latexTable(w, "Table 2: Modeled NPU latencies", "lccc",
		"Baseline (percentile) & Modeled NPU (Low) & Modeled NPU (High) & Notes", rows)
}

// WriteNPU renders NPU projections in a single format.
func WriteNPU(w io.Writer, f Format, projections []model.NPUProjection) error {
	switch f {
	case FormatJSON, FormatProto:
		return WriteJSON(w, projections)
	case FormatCSV:
		return WriteNPUCSV(w, projections)
	case FormatLaTeX:
		return WriteNPULaTeX(w, projections)
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Percentile\tCPU (ns)\tNPU low (ns)\tNPU high (ns)\tSpeedup")
		for _, p := range projections {
			fmt.Fprintf(tw, "%s\t%.0f\t%d\t%d\t%g-%gx\n",
				p.Percentile, p.CPUBaselineNs, p.NPULowNs, p.NPUHighNs, p.SpeedupLow, p.SpeedupHigh)
		}
		return tw.Flush()
	case FormatAll:
		return writeAll(w, f, func(sub Format) error { return WriteNPU(w, sub, projections) })
	}
	return fmt.Errorf("unsupported format %q", f)
}

// WriteComparison renders measured versus modeled LoRa airtime.
func WriteComparison(w io.Writer, f Format, rows []model.AirtimeComparison) error {
	switch f {
	case FormatJSON, FormatProto:
		return WriteJSON(w, rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"Payload_B", "SF", "Count", "Measured_ms", "Std_ms", "Modeled_ms", "Delta_pct"}); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write([]string{
				fmt.Sprint(r.Measured.PayloadBytes),
				fmt.Sprint(r.Measured.SpreadingFactor),
				fmt.Sprint(r.Measured.Count),
				formatFloat(r.Measured.AirtimeMeanMs, 2),
				formatFloat(r.Measured.AirtimeStdMs, 2),
				formatFloat(r.ModeledMs, 2),
				formatFloat(r.DeltaPct, 2),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatLaTeX:
		latexRows := make([]string, 0, len(rows))
		for _, r := range rows {
			latexRows = append(latexRows, fmt.Sprintf("%d & SF%d & %.1f $\\pm$ %.1f & %.1f & %+.1f\\%%",
				r.Measured.PayloadBytes, r.Measured.SpreadingFactor,
				r.Measured.AirtimeMeanMs, r.Measured.AirtimeStdMs, r.ModeledMs, r.DeltaPct))
		}
		return latexTable(w, "Measured vs. modeled LoRa airtime", "lcccc",
			"Payload (B) & SF & Measured (ms) & Modeled (ms) & Delta", latexRows)
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Payload (B)\tSF\tCount\tMeasured (ms)\tStd (ms)\tModeled (ms)\tDelta (%)\t")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%+.2f\t\n",
				r.Measured.PayloadBytes, r.Measured.SpreadingFactor, r.Measured.Count,
				r.Measured.AirtimeMeanMs, r.Measured.AirtimeStdMs, r.ModeledMs, r.DeltaPct)
		}
		return tw.Flush()
	case FormatAll:
		return writeAll(w, f, func(sub Format) error { return WriteComparison(w, sub, rows) })
	}
	return fmt.Errorf("unsupported format %q", f)
}

func writeAll(w io.Writer, f Format, render func(Format) error) error {
	for i, sub := range f.Formats() {
		if i > 0 {
			if _, err := io.WriteString(w, Separator); err != nil {
				return err
			}
		}
		if err := render(sub); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]model.MetricStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
