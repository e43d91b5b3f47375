// Package logparse extracts timing samples from firmware console logs: QEMU
// measurement runs (MEAS/CTRL/STACK records) and LoRa hardware TX traces.
package logparse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Markers bracketing the measurement section of a QEMU console log.
const (
	MeasurementsStart = "===MEASUREMENTS_START==="
	MeasurementsEnd   = "===MEASUREMENTS_END==="
)

// Record tags emitted by the measurement firmware.
const (
	TagMeasurement = "MEAS"
	TagControl     = "CTRL"
	TagStack       = "STACK"
)

const maxLineBytes = 1 << 20

// MeasurementLog holds the raw samples collected from one log, keyed the
// way the firmware reports them.
type MeasurementLog struct {
	// Functions maps a measured function name to its latencies in ns.
	Functions map[string][]float64
	// Control holds control-loop handler latencies in ns.
	Control []float64
	// Stack maps a thread name to observed free stack bytes.
	Stack map[string][]float64

	// Skipped counts tagged lines inside the measurement section that
	// could not be decoded.
	Skipped int
}

func newMeasurementLog() *MeasurementLog {
	return &MeasurementLog{
		Functions: make(map[string][]float64),
		Stack:     make(map[string][]float64),
	}
}

// FunctionNames returns the measured function names in lexical order.
func (m *MeasurementLog) FunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report summarises every stream. Streams without samples are omitted and
// Control is nil when no CTRL record was seen.
func (m *MeasurementLog) Report() model.MeasurementReport {
	report := model.MeasurementReport{
		Baseline: make(map[string]model.MetricStats, len(m.Functions)),
		Stack:    make(map[string]model.MetricStats, len(m.Stack)),
	}
	for name, samples := range m.Functions {
		if stats, err := core.ComputeStats(samples); err == nil {
			report.Baseline[name] = stats
		}
	}
	if stats, err := core.ComputeStats(m.Control); err == nil {
		report.Control = &stats
	}
	for thread, samples := range m.Stack {
		if stats, err := core.ComputeStats(samples); err == nil {
			report.Stack[thread] = stats
		}
	}
	return report
}

// ParseMeasurements reads a QEMU console log. Only lines between
// MeasurementsStart and MeasurementsEnd are considered; a log may contain
// several such sections. Undecodable records are counted and skipped.
func ParseMeasurements(ctx context.Context, r io.Reader) (*MeasurementLog, error) {
	log := logging.FromContext(ctx, nil)
	out := newMeasurementLog()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	inSection := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.Contains(line, MeasurementsStart):
			inSection = true
			continue
		case strings.Contains(line, MeasurementsEnd):
			inSection = false
			continue
		case !inSection:
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		if err := out.add(parts); err != nil {
			out.Skipped++
			log.Debug(ctx, "skipping measurement record",
				logging.Int("line", lineNo),
				logging.Err(err),
			)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read measurement log: %w", err)
	}
	return out, nil
}

// add decodes one record:
//
//	MEAS,<func>,iter,<n>,ns,<value>
//	CTRL,loop,iter,<n>,ns,<value>
//	STACK,thread,<name>,free_bytes,<value>
func (m *MeasurementLog) add(parts []string) error {
	switch parts[0] {
	case TagMeasurement:
		v, err := fieldAt(parts, 5)
		if err != nil {
			return err
		}
		m.Functions[parts[1]] = append(m.Functions[parts[1]], v)
	case TagControl:
		v, err := fieldAt(parts, 5)
		if err != nil {
			return err
		}
		m.Control = append(m.Control, v)
	case TagStack:
		v, err := stackFreeBytes(parts)
		if err != nil {
			return err
		}
		m.Stack[parts[2]] = append(m.Stack[parts[2]], v)
	}
	return nil
}

// stackFreeBytes reads the value following the free_bytes key, falling back
// to the sixth field for logs with an extra column.
func stackFreeBytes(parts []string) (float64, error) {
	for i := 3; i+1 < len(parts); i++ {
		if parts[i] == "free_bytes" {
			return parseInteger(parts[i+1])
		}
	}
	return fieldAt(parts, 5)
}

func fieldAt(parts []string, i int) (float64, error) {
	if i >= len(parts) {
		return 0, fmt.Errorf("%s record has %d fields, want at least %d", parts[0], len(parts), i+1)
	}
	return parseInteger(parts[i])
}

// parseInteger accepts integer counters only; fractional values are
// rejected like any other malformed field.
func parseInteger(s string) (float64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}
