package model

// MCU is one row of the microcontroller family comparison.
type MCU struct {
	Name       string `json:"mcu" yaml:"mcu"`
	Core       string `json:"core" yaml:"core"`
	MaxFreqMHz int    `json:"max_freq_mhz" yaml:"max_freq_mhz"`
	SRAMKB     int    `json:"sram_kb" yaml:"sram_kb"`
	FlashKB    int    `json:"flash_kb" yaml:"flash_kb"`
	NPU        bool   `json:"npu" yaml:"npu"`
	HWVideo    bool   `json:"hw_h264" yaml:"hw_h264"`
	L1Cache    string `json:"l1_cache" yaml:"l1_cache"`
	Notes      string `json:"notes" yaml:"notes"`
}

// SBC is a single-board computer considered as an alternative to an MCU.
type SBC struct {
	Device      string  `json:"device" yaml:"device"`
	ComputeTOPS float64 `json:"compute_tops" yaml:"compute_tops"`
	// PowerW is a range such as "5-8".
	PowerW string `json:"power_w" yaml:"power_w"`
	Notes  string `json:"notes" yaml:"notes"`
}

// LoRaModule is a radio module with or without an integrated MCU.
type LoRaModule struct {
	Module        string `json:"module" yaml:"module"`
	MCUIntegrated bool   `json:"mcu_integrated" yaml:"mcu_integrated"`
	RangeKm       int    `json:"range_km" yaml:"range_km"`
	TXPowerMW     int    `json:"tx_power_mw" yaml:"tx_power_mw"`
	Notes         string `json:"notes" yaml:"notes"`
}

// HardwareCatalog holds the static platform comparison tables.
type HardwareCatalog struct {
	MCUs        []MCU        `json:"mcu_comparison" yaml:"mcus"`
	SBCs        []SBC        `json:"sbc_comparison" yaml:"sbcs"`
	LoRaModules []LoRaModule `json:"lora_comparison" yaml:"loraModules"`
}
