// Package config loads the analysis toolkit's YAML configuration: airtime
// engine options, NPU speedup bounds, the comparison-table sweep and the
// hardware catalog behind the platform comparison tables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Config is the complete toolkit configuration.
type Config struct {
	Engine   EngineConfig          `yaml:"engine"`
	NPU      NPUConfig             `yaml:"npu"`
	Sweep    []model.SweepPoint    `yaml:"sweep"`
	Hardware model.HardwareCatalog `yaml:"hardware"`
}

// EngineConfig holds airtime engine settings.
type EngineConfig struct {
	MaxPayloadPerPacket int    `yaml:"maxPayloadPerPacket"`
	RangePolicy         string `yaml:"rangePolicy"` // permissive | strict
	Workers             int    `yaml:"workers"`
}

// NPUConfig holds the speedup range applied to CPU baselines.
type NPUConfig struct {
	SpeedupLow  float64 `yaml:"speedupLow"`
	SpeedupHigh float64 `yaml:"speedupHigh"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, then validates it. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration, sweeping payloads of 100, 500,
// 1000 and 2000 bytes at SF7, SF9 and SF12 on 125 kHz.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxPayloadPerPacket: model.DefaultMaxPayloadPerPacket,
			RangePolicy:         core.RangePermissive.String(),
			Workers:             1,
		},
		NPU: NPUConfig{
			SpeedupLow:  core.DefaultSpeedupLow,
			SpeedupHigh: core.DefaultSpeedupHigh,
		},
		Sweep:    DefaultSweep(),
		Hardware: DefaultHardware(),
	}
}

// DefaultSweep is the payload/SF comparison table used in reports.
func DefaultSweep() []model.SweepPoint {
	points := make([]model.SweepPoint, 0, 12)
	for _, payload := range []int{100, 500, 1000, 2000} {
		for _, sf := range []int{7, 9, 12} {
			points = append(points, model.SweepPoint{
				PayloadBytes:    payload,
				SpreadingFactor: sf,
				BandwidthHz:     model.Bandwidth125kHz,
			})
		}
	}
	return points
}

// DefaultHardware is the platform catalog compared in the report tables.
func DefaultHardware() model.HardwareCatalog {
	return model.HardwareCatalog{
		MCUs: []model.MCU{
			{Name: "STM32F4", Core: "Cortex-M4", MaxFreqMHz: 180, SRAMKB: 256, FlashKB: 2048, L1Cache: "16KB I + 16KB D", Notes: "General purpose MCU"},
			{Name: "STM32U5", Core: "Cortex-M33", MaxFreqMHz: 160, SRAMKB: 2560, FlashKB: 4096, L1Cache: "16KB I + 16KB D", Notes: "Ultra-low-power with TrustZone"},
			{Name: "STM32H7", Core: "Cortex-M7", MaxFreqMHz: 550, SRAMKB: 1024, FlashKB: 2048, HWVideo: true, L1Cache: "16KB I + 16KB D", Notes: "High-performance with JPEG/H.264"},
			{Name: "STM32N6", Core: "Cortex-M55", MaxFreqMHz: 600, SRAMKB: 2560, FlashKB: 2048, NPU: true, HWVideo: true, L1Cache: "32KB I + 32KB D", Notes: "Neural-ART accelerator, Helium"},
			{Name: "ESP32-S3", Core: "Xtensa LX7", MaxFreqMHz: 240, SRAMKB: 512, FlashKB: 384, L1Cache: "32KB I + 32KB D", Notes: "Dual-core with WiFi/BLE"},
		},
		SBCs: []model.SBC{
			{Device: "Raspberry Pi 5", ComputeTOPS: 0.1, PowerW: "5-8", Notes: "BCM2712 quad-core, no dedicated NPU"},
			{Device: "Jetson Nano", ComputeTOPS: 0.5, PowerW: "5-10", Notes: "Maxwell GPU, 128 CUDA cores"},
			{Device: "Coral TPU", ComputeTOPS: 4.0, PowerW: "2", Notes: "Edge TPU accelerator, USB/PCIe/M.2"},
		},
		LoRaModules: []model.LoRaModule{
			{Module: "STM32WL", MCUIntegrated: true, RangeKm: 15, TXPowerMW: 15, Notes: "Cortex-M4 + sub-GHz radio"},
			{Module: "LoRa-E5", MCUIntegrated: true, RangeKm: 10, TXPowerMW: 20, Notes: "STM32WLE5JC module"},
			{Module: "RAK3172", MCUIntegrated: true, RangeKm: 15, TXPowerMW: 22, Notes: "STM32WLE5CC based"},
		},
	}
}

// AirtimeEngineConfig converts the YAML engine section into a core.EngineConfig.
func (c *Config) AirtimeEngineConfig() (core.EngineConfig, error) {
	policy, err := core.ParseRangePolicy(c.Engine.RangePolicy)
	if err != nil {
		return core.EngineConfig{}, err
	}
	return core.EngineConfig{
		MaxPayloadPerPacket: c.Engine.MaxPayloadPerPacket,
		RangePolicy:         policy,
	}, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Engine.MaxPayloadPerPacket <= 0 {
		return fmt.Errorf("engine.maxPayloadPerPacket must be positive, got %d", c.Engine.MaxPayloadPerPacket)
	}
	if _, err := core.ParseRangePolicy(c.Engine.RangePolicy); err != nil {
		return fmt.Errorf("engine.rangePolicy: %w", err)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	if _, err := core.NewNPUModeler(c.NPU.SpeedupLow, c.NPU.SpeedupHigh); err != nil {
		return fmt.Errorf("npu: %w", err)
	}
	for i, m := range c.Hardware.MCUs {
		if m.Name == "" {
			return fmt.Errorf("hardware.mcus[%d]: mcu name is required", i)
		}
		if m.MaxFreqMHz <= 0 {
			return fmt.Errorf("hardware.mcus[%d]: max_freq_mhz must be positive, got %d", i, m.MaxFreqMHz)
		}
	}
	for i, s := range c.Hardware.SBCs {
		if s.Device == "" || s.ComputeTOPS < 0 {
			return fmt.Errorf("hardware.sbcs[%d]: device name and non-negative compute_tops are required", i)
		}
	}
	for i, p := range c.Sweep {
		if p.BandwidthHz <= 0 {
			return fmt.Errorf("sweep[%d]: bandwidth must be positive, got %d", i, p.BandwidthHz)
		}
		if p.PayloadBytes < 0 {
			return fmt.Errorf("sweep[%d]: payload must be non-negative, got %d", i, p.PayloadBytes)
		}
	}
	return nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides honours AIRTIME_MAX_PAYLOAD, AIRTIME_RANGE_POLICY,
// AIRTIME_WORKERS, NPU_SPEEDUP_LOW and NPU_SPEEDUP_HIGH.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AIRTIME_MAX_PAYLOAD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AIRTIME_MAX_PAYLOAD: %w", err)
		}
		cfg.Engine.MaxPayloadPerPacket = n
	}
	if v := os.Getenv("AIRTIME_RANGE_POLICY"); v != "" {
		cfg.Engine.RangePolicy = v
	}
	if v := os.Getenv("AIRTIME_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AIRTIME_WORKERS: %w", err)
		}
		cfg.Engine.Workers = n
	}
	if v := os.Getenv("NPU_SPEEDUP_LOW"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NPU_SPEEDUP_LOW: %w", err)
		}
		cfg.NPU.SpeedupLow = f
	}
	if v := os.Getenv("NPU_SPEEDUP_HIGH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("NPU_SPEEDUP_HIGH: %w", err)
		}
		cfg.NPU.SpeedupHigh = f
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
