package model

// Standard LoRa channel bandwidths in Hz.
const (
	Bandwidth125kHz = 125000
	Bandwidth250kHz = 250000
	Bandwidth500kHz = 500000
)

// Defaults applied by DefaultRadioConfig.
const (
	DefaultPreambleSymbols = 8
	DefaultCodingRate      = 1 // 4/5
)

// DefaultMaxPayloadPerPacket is the LoRaWAN-class practical maximum
// application payload carried by a single packet.
const DefaultMaxPayloadPerPacket = 222

// RadioConfig is one LoRa physical-layer configuration for a single packet.
// Values are not range checked here; see core.AirtimeEngine.
type RadioConfig struct {
	PayloadBytes    int `json:"payload_bytes" yaml:"payload_bytes"`
	SpreadingFactor int `json:"sf" yaml:"sf"`
	BandwidthHz     int `json:"bw_hz" yaml:"bw_hz"`

	// CodingRate is the cr in 4/(4+cr), 1..4.
	CodingRate      int `json:"cr" yaml:"cr"`
	PreambleSymbols int `json:"preamble_symbols" yaml:"preamble_symbols"`

	ExplicitHeader bool `json:"explicit_header" yaml:"explicit_header"`
	CRCEnabled     bool `json:"crc" yaml:"crc"`

	// LowDataRateOptimization is never switched on implicitly, even when
	// the symbol time calls for it.
	LowDataRateOptimization bool `json:"low_data_rate_optimization" yaml:"low_data_rate_optimization"`
}

// DefaultRadioConfig returns a config with an 8 symbol preamble, explicit
// header, CRC on, coding rate 4/5 and LDRO off.
func DefaultRadioConfig(payloadBytes, sf, bandwidthHz int) RadioConfig {
	return RadioConfig{
		PayloadBytes:    payloadBytes,
		SpreadingFactor: sf,
		BandwidthHz:     bandwidthHz,
		CodingRate:      DefaultCodingRate,
		PreambleSymbols: DefaultPreambleSymbols,
		ExplicitHeader:  true,
		CRCEnabled:      true,
	}
}

// BandwidthKHz returns the bandwidth in kHz.
func (c RadioConfig) BandwidthKHz() float64 {
	return float64(c.BandwidthHz) / 1000
}

// AirtimeResult is the timing breakdown for one packet. All durations are
// seconds; the Ms helpers scale them for presentation only.
type AirtimeResult struct {
	Config RadioConfig `json:"config"`

	SymbolTimeS        float64 `json:"t_sym_s"`
	PreambleTimeS      float64 `json:"t_preamble_s"`
	PayloadSymbolCount int     `json:"n_payload_symbols"`
	PayloadTimeS       float64 `json:"t_payload_s"`
	TotalAirtimeS      float64 `json:"t_air_s"`
}

func (r AirtimeResult) SymbolTimeMs() float64   { return r.SymbolTimeS * 1000 }
func (r AirtimeResult) PreambleTimeMs() float64 { return r.PreambleTimeS * 1000 }
func (r AirtimeResult) PayloadTimeMs() float64  { return r.PayloadTimeS * 1000 }
func (r AirtimeResult) TotalAirtimeMs() float64 { return r.TotalAirtimeS * 1000 }

// FragmentationResult describes how an application payload is split into
// packets of at most MaxPayloadPerPacket bytes. TotalAirtimeS assumes every
// fragment costs the same airtime as a single packet.
type FragmentationResult struct {
	PayloadBytes        int     `json:"payload_bytes"`
	MaxPayloadPerPacket int     `json:"max_payload_per_packet"`
	FragmentCount       int     `json:"fragments"`
	TotalAirtimeS       float64 `json:"total_airtime_s"`
}

// SweepPoint is one row of a comparison table sweep.
type SweepPoint struct {
	PayloadBytes    int `json:"payload_bytes" yaml:"payload_bytes"`
	SpreadingFactor int `json:"sf" yaml:"sf"`
	BandwidthHz     int `json:"bw_hz" yaml:"bw_hz"`
}

// SweepResult pairs the airtime and fragmentation of one SweepPoint.
type SweepResult struct {
	Point         SweepPoint          `json:"point"`
	Airtime       AirtimeResult       `json:"airtime"`
	Fragmentation FragmentationResult `json:"fragmentation"`
}
