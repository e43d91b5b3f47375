package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteMCULaTeX writes the MCU family feature table.
func WriteMCULaTeX(w io.Writer, mcus []model.MCU) error {
	rows := make([]string, 0, len(mcus))
	for _, m := range mcus {
		rows = append(rows, fmt.Sprintf("%s & %s & %d & %d & %d & %s & %s",
			m.Name, m.Core, m.MaxFreqMHz, m.SRAMKB, m.FlashKB, yesNo(m.NPU), yesNo(m.HWVideo)))
	}
	return latexTable(w, "Table 4: MCU family feature comparison", "lcccccc",
		"MCU & Core & Max Freq (MHz) & SRAM (KB) & Flash (KB) & NPU & HW H.264", rows)
}

// WriteMCUDetailedLaTeX writes the appendix variant of the MCU table with
// cache sizes and notes.
func WriteMCUDetailedLaTeX(w io.Writer, mcus []model.MCU) error {
	rows := make([]string, 0, len(mcus))
	for _, m := range mcus {
		rows = append(rows, fmt.Sprintf("%s & %s & %d & %s & %d & %d & %s & %s & %s",
			m.Name, m.Core, m.MaxFreqMHz, m.L1Cache, m.SRAMKB, m.FlashKB, yesNo(m.NPU), yesNo(m.HWVideo), m.Notes))
	}
	return latexTable(w, "Appendix C: detailed MCU specifications", "lcccccccc",
		"MCU & Core & Freq (MHz) & L1 Cache & SRAM (KB) & Flash (KB) & NPU & HW Video & Notes", rows)
}

func WriteSBCLaTeX(w io.Writer, sbcs []model.SBC) error {
	rows := make([]string, 0, len(sbcs))
	for _, s := range sbcs {
		rows = append(rows, fmt.Sprintf("%s & %.1f & %s & %s", s.Device, s.ComputeTOPS, s.PowerW, s.Notes))
	}
	return latexTable(w, "Table 5: SBC comparison", "lccc",
		"Device & Compute (TOPS) & Power (W) & Notes", rows)
}

func WriteLoRaModuleLaTeX(w io.Writer, modules []model.LoRaModule) error {
	rows := make([]string, 0, len(modules))
	for _, m := range modules {
		rows = append(rows, fmt.Sprintf("%s & %s & %d & %d", m.Module, yesNo(m.MCUIntegrated), m.RangeKm, m.TXPowerMW))
	}
	return latexTable(w, "Table 6: LoRa module comparison", "lccc",
		"Module & MCU Integrated & Range (km) & TX Power (mW)", rows)
}

// WriteHardwareCSV writes the three catalog tables as consecutive CSV
// blocks separated by a blank line.
func WriteHardwareCSV(w io.Writer, cat model.HardwareCatalog) error {
	cw := csv.NewWriter(w)
	records := [][]string{{"MCU", "Core", "Max_Freq_MHz", "SRAM_KB", "Flash_KB", "NPU", "HW_H264", "L1_Cache", "Notes"}}
	for _, m := range cat.MCUs {
		records = append(records, []string{m.Name, m.Core, strconv.Itoa(m.MaxFreqMHz), strconv.Itoa(m.SRAMKB),
			strconv.Itoa(m.FlashKB), yesNo(m.NPU), yesNo(m.HWVideo), m.L1Cache, m.Notes})
	}
	records = append(records, nil, []string{"Device", "Compute_TOPS", "Power_W", "Notes"})
	for _, s := range cat.SBCs {
		records = append(records, []string{s.Device, formatFloat(s.ComputeTOPS, 1), s.PowerW, s.Notes})
	}
	records = append(records, nil, []string{"Module", "MCU_Integrated", "Range_km", "TX_Power_mW", "Notes"})
	for _, m := range cat.LoRaModules {
		records = append(records, []string{m.Module, yesNo(m.MCUIntegrated), strconv.Itoa(m.RangeKm), strconv.Itoa(m.TXPowerMW), m.Notes})
	}

	for _, rec := range records {
		if rec == nil {
			cw.Flush()
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeHardwareText(w io.Writer, cat model.HardwareCatalog) error {
	tables := []func(*tabwriter.Writer){
		func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "MCU\tCore\tMHz\tSRAM KB\tFlash KB\tNPU\tH.264")
			for _, m := range cat.MCUs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n", m.Name, m.Core, m.MaxFreqMHz, m.SRAMKB, m.FlashKB, yesNo(m.NPU), yesNo(m.HWVideo))
			}
		},
		func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "Device\tTOPS\tPower W")
			for _, s := range cat.SBCs {
				fmt.Fprintf(tw, "%s\t%.1f\t%s\n", s.Device, s.ComputeTOPS, s.PowerW)
			}
		},
		func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "Module\tMCU\tRange km\tTX mW")
			for _, m := range cat.LoRaModules {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", m.Module, yesNo(m.MCUIntegrated), m.RangeKm, m.TXPowerMW)
			}
		},
	}
	for i, table := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// WriteHardware renders the platform catalog in a single format. LaTeX
// output is tables 4, 5 and 6 in order.
func WriteHardware(w io.Writer, f Format, cat model.HardwareCatalog) error {
	switch f {
	case FormatJSON, FormatProto:
		return WriteJSON(w, cat)
	case FormatCSV:
		return WriteHardwareCSV(w, cat)
	case FormatLaTeX:
		for i, render := range []func() error{
			func() error { return WriteMCULaTeX(w, cat.MCUs) },
			func() error { return WriteSBCLaTeX(w, cat.SBCs) },
			func() error { return WriteLoRaModuleLaTeX(w, cat.LoRaModules) },
		} {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if err := render(); err != nil {
				return err
			}
		}
		return nil
	case FormatText:
		return writeHardwareText(w, cat)
	case FormatAll:
		return writeAll(w, f, func(sub Format) error { return WriteHardware(w, sub, cat) })
	}
	return fmt.Errorf("unsupported format %q", f)
}
