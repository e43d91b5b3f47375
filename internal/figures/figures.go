// Package figures draws the report figures: the control-loop jitter CDF and
// the end-to-end latency breakdown. Output is PDF or SVG.
package figures

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Output formats.
const (
	PDF = "pdf"
	SVG = "svg"
)

// ErrNoData is returned when a figure has nothing to draw.
var ErrNoData = errors.New("figures: no data")

var (
	blue   = color.RGBA{R: 0x2e, G: 0x86, B: 0xab, A: 0xff}
	purple = color.RGBA{R: 0xa2, G: 0x3b, B: 0x72, A: 0xff}
	amber  = color.RGBA{R: 0xf1, G: 0x8f, B: 0x01, A: 0xff}
	rust   = color.RGBA{R: 0xc7, G: 0x3e, B: 0x1d, A: 0xff}
	orange = color.NRGBA{R: 0xff, G: 0xa5, B: 0x00, A: 0xb3}
	red    = color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xb3}
)

var dashed = []vg.Length{vg.Points(4), vg.Points(2)}

// ControlJitterCDF plots the empirical CDF of control-loop latencies given
// in ns, marking P90 and P99 with dashed verticals.
func ControlJitterCDF(w io.Writer, latenciesNs []float64, format string) error {
	n := len(latenciesNs)
	if n == 0 {
		return fmt.Errorf("control jitter CDF: %w", ErrNoData)
	}
	us := make([]float64, n)
	for i, v := range latenciesNs {
		us[i] = v / 1000
	}
	sort.Float64s(us)

	cdf := make(plotter.XYs, n)
	for i, v := range us {
		cdf[i] = plotter.XY{X: v, Y: float64(i+1) / float64(n)}
	}

	p := plot.New()
	p.Title.Text = "Control Loop Jitter Distribution"
	p.X.Label.Text = "Control Loop Latency (µs)"
	p.Y.Label.Text = "CDF"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(cdf)
	if err != nil {
		return err
	}
	line.Color = blue
	line.Width = vg.Points(1.5)
	p.Add(line)

	for _, q := range []struct {
		label  string
		frac   float64
		stroke color.Color
	}{
		{"P90", 0.90, orange},
		{"P99", 0.99, red},
	} {
		x := us[nearestRankIndex(q.frac, n)]
		marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: 1}})
		if err != nil {
			return err
		}
		marker.Color = q.stroke
		marker.Dashes = dashed
		p.Add(marker)
		p.Legend.Add(fmt.Sprintf("%s: %.1f µs", q.label, x), marker)
	}

	return render(w, p, 3.5*vg.Inch, 2.5*vg.Inch, format)
}

// nearestRankIndex is int(frac*n) clamped to the last sample.
func nearestRankIndex(frac float64, n int) int {
	i := int(frac * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// LatencyBreakdown draws one stacked bar per scenario: inference,
// compression, SPI transfer and LoRa airtime, bottom to top.
func LatencyBreakdown(w io.Writer, rows []model.LatencyBreakdown, format string) error {
	if len(rows) == 0 {
		return fmt.Errorf("latency breakdown: %w", ErrNoData)
	}

	p := plot.New()
	p.Title.Text = "End-to-End Pipeline Latency Breakdown"
	p.Y.Label.Text = "Latency (ms)"
	p.Y.Min = 0
	p.Legend.Top = true
	p.Legend.Left = true

	stages := []struct {
		label string
		value func(model.LatencyBreakdown) float64
		fill  color.Color
	}{
		{"Inference", func(r model.LatencyBreakdown) float64 { return r.InferenceMs }, purple},
		{"Compression", func(r model.LatencyBreakdown) float64 { return r.CompressionMs }, amber},
		{"SPI Transfer", func(r model.LatencyBreakdown) float64 { return r.SPIMs }, rust},
		{"LoRa Airtime", func(r model.LatencyBreakdown) float64 { return r.AirtimeMs }, blue},
	}

	var below *plotter.BarChart
	for _, stage := range stages {
		values := make(plotter.Values, len(rows))
		for i, r := range rows {
			values[i] = stage.value(r)
		}
		bars, err := plotter.NewBarChart(values, vg.Points(24))
		if err != nil {
			return err
		}
		bars.Color = stage.fill
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(stage.label, bars)
		below = bars
	}

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Scenario
	}
	p.NominalX(names...)

	return render(w, p, 7*vg.Inch, 3*vg.Inch, format)
}

func render(w io.Writer, p *plot.Plot, width, height vg.Length, format string) error {
	switch format {
	case PDF, SVG:
	default:
		return fmt.Errorf("unsupported figure format %q (want %s or %s)", format, PDF, SVG)
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
