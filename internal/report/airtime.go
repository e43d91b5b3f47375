package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// AirtimeCSVHeader is the column layout of WriteAirtimeCSV.
var AirtimeCSVHeader = []string{"Payload_B", "SF", "BW_kHz", "Airtime_ms", "Airtime_s", "Fragments", "Total_Airtime_s"}

// WriteAirtimeCSV writes one row per sweep result.
func WriteAirtimeCSV(w io.Writer, results []model.SweepResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AirtimeCSVHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Point.PayloadBytes),
			strconv.Itoa(r.Point.SpreadingFactor),
			formatFloat(r.Airtime.Config.BandwidthKHz(), 0),
			formatFloat(r.Airtime.TotalAirtimeMs(), 2),
			formatFloat(r.Airtime.TotalAirtimeS, 3),
			strconv.Itoa(r.Fragmentation.FragmentCount),
			formatFloat(r.Fragmentation.TotalAirtimeS, 3),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAirtimeLaTeX writes the airtime-per-payload table.
func WriteAirtimeLaTeX(w io.Writer, results []model.SweepResult) error {
	rows := make([]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, fmt.Sprintf("%d & SF%d/%.0fkHz & %.3f & %d",
			r.Point.PayloadBytes,
			r.Point.SpreadingFactor,
			r.Airtime.Config.BandwidthKHz(),
			r.Airtime.TotalAirtimeS,
			r.Fragmentation.FragmentCount,
		))
	}
	return latexTable(w, "Table 3: LoRa airtime per payload", "lccc",
		"Payload (B) & SF/BW & Airtime (s) & Fragments", rows)
}

// WriteAirtimeText writes an aligned table including the symbol breakdown.
func WriteAirtimeText(w io.Writer, results []model.SweepResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Payload (B)\tSF\tBW (kHz)\tT_sym (ms)\tSymbols\tAirtime (ms)\tFragments\tTotal (s)\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%.0f\t%.3f\t%d\t%.2f\t%d\t%.3f\t\n",
			r.Point.PayloadBytes,
			r.Point.SpreadingFactor,
			r.Airtime.Config.BandwidthKHz(),
			r.Airtime.SymbolTimeMs(),
			r.Airtime.PayloadSymbolCount,
			r.Airtime.TotalAirtimeMs(),
			r.Fragmentation.FragmentCount,
			r.Fragmentation.TotalAirtimeS,
		)
	}
	return tw.Flush()
}

// WriteAirtime renders results in a single concrete format.
func WriteAirtime(w io.Writer, f Format, results []model.SweepResult) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatCSV:
		return WriteAirtimeCSV(w, results)
	case FormatLaTeX:
		return WriteAirtimeLaTeX(w, results)
	case FormatText:
		return WriteAirtimeText(w, results)
	case FormatProto:
		return WriteSweepProtoJSON(w, results)
	case FormatAll:
		return writeAll(w, f, func(sub Format) error { return WriteAirtime(w, sub, results) })
	}
	return fmt.Errorf("unsupported format %q", f)
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
