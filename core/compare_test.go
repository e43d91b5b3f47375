package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func TestCompareMeasured(t *testing.T) {
	e := newTestEngine()
	measured := []model.LoRaAirtimeSummary{
		{PayloadBytes: 100, SpreadingFactor: 7, AirtimeMeanMs: 180, Count: 5},
		{PayloadBytes: 100, SpreadingFactor: 12, AirtimeMeanMs: 3448.832, Count: 1},
	}

	got, err := e.CompareMeasured(measured, model.Bandwidth125kHz)
	if err != nil {
		t.Fatalf("CompareMeasured: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if !approxEqual(got[0].ModeledMs, 174.336, 1e-9) {
		t.Fatalf("modeled ms = %v, want 174.336", got[0].ModeledMs)
	}
	if !approxEqual(got[0].DeltaPct, (180-174.336)/174.336*100, 1e-9) {
		t.Fatalf("delta = %v", got[0].DeltaPct)
	}
	if got[0].Measured.Count != 5 {
		t.Fatalf("measured summary not carried through: %+v", got[0].Measured)
	}
	if !approxEqual(got[1].DeltaPct+1, 1, 1e-9) {
		t.Fatalf("exact match delta = %v, want 0", got[1].DeltaPct)
	}
}

func TestCompareMeasuredRejectsBadBandwidth(t *testing.T) {
	e := newTestEngine()
	_, err := e.CompareMeasured([]model.LoRaAirtimeSummary{{PayloadBytes: 10, SpreadingFactor: 7}}, 0)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestCompareMeasuredSkipsUnmodelableGroups(t *testing.T) {
	metrics := &recordingMetrics{}
	e := newTestEngine(WithMetricsRecorder(metrics))
	measured := []model.LoRaAirtimeSummary{
		{PayloadBytes: 100, SpreadingFactor: 0, AirtimeMeanMs: 50, Count: 1},
		{PayloadBytes: 100, SpreadingFactor: 7, AirtimeMeanMs: 180, Count: 2},
		{PayloadBytes: -4, SpreadingFactor: 9, AirtimeMeanMs: 10, Count: 1},
	}

	got, err := e.CompareMeasured(measured, model.Bandwidth125kHz)
	if err != nil {
		t.Fatalf("CompareMeasured: %v", err)
	}
	if len(got) != 1 || got[0].Measured.SpreadingFactor != 7 {
		t.Fatalf("rows = %+v, want only the SF7 group", got)
	}
	if metrics.rejected != 2 {
		t.Fatalf("rejected = %d, want 2", metrics.rejected)
	}
}
