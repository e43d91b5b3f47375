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

// TagLoRaTX marks a transmit record in LoRa hardware traces.
const TagLoRaTX = "LORA_TX"

// TXSample is one measured transmission.
type TXSample struct {
	PayloadBytes    int
	SpreadingFactor int
	AirtimeMs       float64
}

// ParseLoRaTX collects transmit records of the form
//
//	LORA_TX,payload,<bytes>,sf,<sf>,airtime_ms,<ms>
//
// Any line containing the tag is split on commas, so console prefixes in
// front of the tag are tolerated. Records with missing or non-numeric
// fields are skipped.
func ParseLoRaTX(ctx context.Context, r io.Reader) ([]TXSample, error) {
	log := logging.FromContext(ctx, nil)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var samples []TXSample
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !strings.Contains(line, TagLoRaTX) {
			continue
		}
		s, err := parseTXRecord(strings.Split(strings.TrimSpace(line), ","))
		if err != nil {
			log.Debug(ctx, "skipping LoRa TX record", logging.Int("line", lineNo), logging.Err(err))
			continue
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read LoRa log: %w", err)
	}
	return samples, nil
}

func parseTXRecord(parts []string) (TXSample, error) {
	if len(parts) < 7 {
		return TXSample{}, fmt.Errorf("LORA_TX record has %d fields, want 7", len(parts))
	}
	payload, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return TXSample{}, fmt.Errorf("payload: %w", err)
	}
	sf, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return TXSample{}, fmt.Errorf("sf: %w", err)
	}
	airtime, err := strconv.ParseFloat(strings.TrimSpace(parts[6]), 64)
	if err != nil {
		return TXSample{}, fmt.Errorf("airtime: %w", err)
	}
	return TXSample{PayloadBytes: payload, SpreadingFactor: sf, AirtimeMs: airtime}, nil
}

type txKey struct {
	payload int
	sf      int
}

// Summarize groups samples by payload and spreading factor, ordered by
// payload then SF. The deviation is the sample (n-1) standard deviation,
// zero for a single transmission.
func Summarize(samples []TXSample) []model.LoRaAirtimeSummary {
	groups := make(map[txKey][]float64)
	for _, s := range samples {
		k := txKey{payload: s.PayloadBytes, sf: s.SpreadingFactor}
		groups[k] = append(groups[k], s.AirtimeMs)
	}

	keys := make([]txKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].payload != keys[j].payload {
			return keys[i].payload < keys[j].payload
		}
		return keys[i].sf < keys[j].sf
	})

	out := make([]model.LoRaAirtimeSummary, 0, len(keys))
	for _, k := range keys {
		vals := groups[k]
		stats, err := core.ComputeStats(vals)
		if err != nil {
			continue
		}
		out = append(out, model.LoRaAirtimeSummary{
			PayloadBytes:    k.payload,
			SpreadingFactor: k.sf,
			AirtimeMeanMs:   stats.Mean,
			AirtimeStdMs:    core.SampleStd(vals),
			Count:           len(vals),
		})
	}
	return out
}
