package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airtime.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine.MaxPayloadPerPacket != 222 {
		t.Errorf("Expected max payload 222, got %d", cfg.Engine.MaxPayloadPerPacket)
	}
	if cfg.Engine.RangePolicy != "permissive" {
		t.Errorf("Expected permissive range policy, got %q", cfg.Engine.RangePolicy)
	}
	if cfg.NPU.SpeedupLow != 8 || cfg.NPU.SpeedupHigh != 20 {
		t.Errorf("Expected speedups 8-20, got %v-%v", cfg.NPU.SpeedupLow, cfg.NPU.SpeedupHigh)
	}
	if len(cfg.Sweep) != 12 {
		t.Fatalf("Expected 12 sweep points, got %d", len(cfg.Sweep))
	}
	if cfg.Sweep[0] != (model.SweepPoint{PayloadBytes: 100, SpreadingFactor: 7, BandwidthHz: 125000}) {
		t.Errorf("Unexpected first sweep point %+v", cfg.Sweep[0])
	}
	if cfg.Sweep[11] != (model.SweepPoint{PayloadBytes: 2000, SpreadingFactor: 12, BandwidthHz: 125000}) {
		t.Errorf("Unexpected last sweep point %+v", cfg.Sweep[11])
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  maxPayloadPerPacket: 51
  rangePolicy: strict
sweep:
  - {payload_bytes: 20, sf: 10, bw_hz: 250000}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxPayloadPerPacket != 51 || cfg.Engine.RangePolicy != "strict" {
		t.Fatalf("engine section not applied: %+v", cfg.Engine)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Engine.Workers != 1 || cfg.NPU.SpeedupHigh != 20 {
		t.Fatalf("defaults lost: %+v %+v", cfg.Engine, cfg.NPU)
	}
	want := []model.SweepPoint{{PayloadBytes: 20, SpreadingFactor: 10, BandwidthHz: 250000}}
	if !reflect.DeepEqual(cfg.Sweep, want) {
		t.Fatalf("Sweep = %+v, want %+v", cfg.Sweep, want)
	}

	ec, err := cfg.AirtimeEngineConfig()
	if err != nil {
		t.Fatalf("AirtimeEngineConfig: %v", err)
	}
	if ec.RangePolicy != core.RangeStrict || ec.MaxPayloadPerPacket != 51 {
		t.Fatalf("AirtimeEngineConfig = %+v", ec)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "airtime.yaml"))
	if err != nil {
		t.Fatalf("Load shipped config: %v", err)
	}
	if !reflect.DeepEqual(cfg.Sweep, DefaultSweep()) {
		t.Fatalf("shipped sweep differs from DefaultSweep")
	}
	if !reflect.DeepEqual(cfg.Hardware, DefaultHardware()) {
		t.Fatalf("shipped hardware catalog differs from DefaultHardware:\n%+v", cfg.Hardware)
	}
}

func TestLoadHardwareOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, "hardware:\n  sbcs:\n    - {device: Orin Nano, compute_tops: 40, power_w: \"7-15\", notes: Ampere GPU}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Hardware.SBCs) != 1 || cfg.Hardware.SBCs[0].ComputeTOPS != 40 || cfg.Hardware.SBCs[0].PowerW != "7-15" {
		t.Fatalf("sbcs = %+v", cfg.Hardware.SBCs)
	}
	if len(cfg.Hardware.MCUs) != 5 {
		t.Fatalf("mcus replaced by an sbcs-only override: %+v", cfg.Hardware.MCUs)
	}

	if _, err := Load(writeConfig(t, "hardware:\n  mcus:\n    - {mcu: X, max_freq_mhz: 0}\n")); err == nil {
		t.Fatalf("expected error for zero MCU frequency")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "engine:\n  unknownKey: 1\n")); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	cases := map[string]string{
		"zero max payload": "engine:\n  maxPayloadPerPacket: 0\n",
		"bad policy":       "engine:\n  rangePolicy: lenient\n",
		"inverted npu":     "npu:\n  speedupLow: 30\n  speedupHigh: 10\n",
		"zero bandwidth":   "sweep:\n  - {payload_bytes: 1, sf: 7, bw_hz: 0}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if err == nil || !strings.Contains(err.Error(), "validation failed") {
				t.Fatalf("Load error = %v, want validation failure", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIRTIME_MAX_PAYLOAD", "115")
	t.Setenv("AIRTIME_RANGE_POLICY", "strict")
	t.Setenv("AIRTIME_WORKERS", "8")
	t.Setenv("NPU_SPEEDUP_LOW", "4")
	t.Setenv("NPU_SPEEDUP_HIGH", "12.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxPayloadPerPacket != 115 || cfg.Engine.RangePolicy != "strict" || cfg.Engine.Workers != 8 {
		t.Fatalf("engine overrides not applied: %+v", cfg.Engine)
	}
	if cfg.NPU.SpeedupLow != 4 || cfg.NPU.SpeedupHigh != 12.5 {
		t.Fatalf("npu overrides not applied: %+v", cfg.NPU)
	}

	t.Setenv("AIRTIME_WORKERS", "many")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for non-numeric AIRTIME_WORKERS")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	cfg, err := Load(writeConfig(t, string(data)))
	if err != nil {
		t.Fatalf("Load marshalled config: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("round-tripped config differs: %+v", cfg)
	}
}
