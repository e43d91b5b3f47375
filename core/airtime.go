package core

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// ErrInvalidConfiguration is returned for inputs the airtime formula cannot
// evaluate (non-positive bandwidth, zero symbol-count denominator, ...) and,
// under RangeStrict, for values outside the standard LoRa set.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ldroSymbolThresholdS is the symbol duration above which the LoRa
// datasheets mandate low data rate optimisation.
const ldroSymbolThresholdS = 0.016

// formulaParamLimit bounds |sf| and |cr| so the symbol count numerator
// stays within int even under RangePermissive.
const formulaParamLimit = 1 << 16

// MaxPayloadBytes is the largest payload whose 8*payload numerator term
// fits in an int alongside the sf term.
const MaxPayloadBytes = (math.MaxInt - 1<<20) / 8

// RangePolicy selects how out-of-range spreading factors, bandwidths and
// coding rates are treated.
type RangePolicy int

const (
	// RangePermissive logs a warning and evaluates the formula anyway.
	RangePermissive RangePolicy = iota
	// RangeStrict rejects the configuration with ErrInvalidConfiguration.
	RangeStrict
)

func (p RangePolicy) String() string {
	switch p {
	case RangeStrict:
		return "strict"
	default:
		return "permissive"
	}
}

// ParseRangePolicy maps "strict" / "permissive" (case-sensitive, empty means
// permissive) onto a RangePolicy.
func ParseRangePolicy(s string) (RangePolicy, error) {
	switch s {
	case "", "permissive":
		return RangePermissive, nil
	case "strict":
		return RangeStrict, nil
	}
	return RangePermissive, fmt.Errorf("unknown range policy %q", s)
}

// EngineConfig holds the values that callers may override per engine.
type EngineConfig struct {
	MaxPayloadPerPacket int
	RangePolicy         RangePolicy
}

// DefaultEngineConfig returns a permissive engine fragmenting at 222 bytes.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxPayloadPerPacket: model.DefaultMaxPayloadPerPacket,
		RangePolicy:         RangePermissive,
	}
}

// AirtimeRecorder receives per-computation observations. Implementations
// must be safe for concurrent use.
type AirtimeRecorder interface {
	ObserveAirtime(res model.AirtimeResult)
	ObserveFragments(res model.FragmentationResult)
	IncRejected(reason string)
	IncOutOfRange(field string)
}

// EngineOption configures optional AirtimeEngine collaborators.
type EngineOption func(*AirtimeEngine)

// WithMetricsRecorder attaches a recorder for computation metrics.
func WithMetricsRecorder(r AirtimeRecorder) EngineOption {
	return func(e *AirtimeEngine) {
		e.metrics = r
	}
}

// AirtimeEngine evaluates the Semtech LoRa time-on-air formula. It holds no
// mutable state and is safe for concurrent use.
type AirtimeEngine struct {
	cfg     EngineConfig
	log     logging.Logger
	metrics AirtimeRecorder
}

// NewAirtimeEngine builds an engine. A non-positive MaxPayloadPerPacket is
// kept as is so FragmentCount reports it instead of silently defaulting.
func NewAirtimeEngine(cfg EngineConfig, log logging.Logger, opts ...EngineOption) *AirtimeEngine {
	if log == nil {
		log = logging.Noop()
	}
	e := &AirtimeEngine{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *AirtimeEngine) Config() EngineConfig { return e.cfg }

// ComputeAirtime returns the on-air timing breakdown for a single packet.
func (e *AirtimeEngine) ComputeAirtime(cfg model.RadioConfig) (model.AirtimeResult, error) {
	if err := e.validate(cfg); err != nil {
		e.reject(err)
		return model.AirtimeResult{}, err
	}
	res, err := timeOnAir(cfg)
	if err != nil {
		e.reject(err)
		return model.AirtimeResult{}, err
	}

	if !cfg.LowDataRateOptimization && res.SymbolTimeS > ldroSymbolThresholdS {
		e.log.Warn(context.Background(), "low data rate optimisation required but disabled",
			logging.Int("sf", cfg.SpreadingFactor),
			logging.Int("bw_hz", cfg.BandwidthHz),
			logging.Any("symbol_time_s", res.SymbolTimeS),
		)
	}
	if e.metrics != nil {
		e.metrics.ObserveAirtime(res)
	}
	return res, nil
}

// timeOnAir evaluates the formula for an already validated cfg. It neither
// logs nor records metrics.
func timeOnAir(cfg model.RadioConfig) (model.AirtimeResult, error) {
	symbolTime := SymbolTime(cfg.SpreadingFactor, cfg.BandwidthHz)
	preambleTime := (float64(cfg.PreambleSymbols) + 4.25) * symbolTime

	de := boolToInt(cfg.LowDataRateOptimization)
	ih := boolToInt(!cfg.ExplicitHeader)
	crc := boolToInt(cfg.CRCEnabled)

	numerator := 8*cfg.PayloadBytes - 4*cfg.SpreadingFactor + 28 + 16*crc - 20*ih
	denominator := 4 * (cfg.SpreadingFactor - 2*de)
	if denominator == 0 {
		return model.AirtimeResult{}, fmt.Errorf("%w: symbol count denominator is zero (sf=%d, ldro=%t)",
			ErrInvalidConfiguration, cfg.SpreadingFactor, cfg.LowDataRateOptimization)
	}

	blocks := ceilDiv(numerator, denominator)
	factor := cfg.CodingRate + 4
	if factor != 0 && absInt(blocks) > (math.MaxInt-8)/absInt(factor) {
		return model.AirtimeResult{}, fmt.Errorf("%w: payload symbol count overflows (payload=%d sf=%d cr=%d)",
			ErrInvalidConfiguration, cfg.PayloadBytes, cfg.SpreadingFactor, cfg.CodingRate)
	}
	extra := blocks * factor
	if extra < 0 {
		extra = 0
	}
	symbols := 8 + extra
	payloadTime := float64(symbols) * symbolTime

	return model.AirtimeResult{
		Config:             cfg,
		SymbolTimeS:        symbolTime,
		PreambleTimeS:      preambleTime,
		PayloadSymbolCount: symbols,
		PayloadTimeS:       payloadTime,
		TotalAirtimeS:      preambleTime + payloadTime,
	}, nil
}

// SymbolTime returns 2^sf / bandwidthHz in seconds. The caller is
// responsible for a positive bandwidth.
func SymbolTime(sf, bandwidthHz int) float64 {
	return math.Ldexp(1, sf) / float64(bandwidthHz)
}

// RequiresLowDataRateOptimization reports whether the symbol duration of cfg
// exceeds 16 ms.
func RequiresLowDataRateOptimization(cfg model.RadioConfig) bool {
	if cfg.BandwidthHz <= 0 {
		return false
	}
	return SymbolTime(cfg.SpreadingFactor, cfg.BandwidthHz) > ldroSymbolThresholdS
}

func (e *AirtimeEngine) validate(cfg model.RadioConfig) error {
	if cfg.BandwidthHz <= 0 {
		return fmt.Errorf("%w: bandwidth must be positive, got %d Hz", ErrInvalidConfiguration, cfg.BandwidthHz)
	}
	if cfg.PayloadBytes < 0 {
		return fmt.Errorf("%w: payload must be non-negative, got %d bytes", ErrInvalidConfiguration, cfg.PayloadBytes)
	}
	if cfg.PayloadBytes > MaxPayloadBytes {
		return fmt.Errorf("%w: payload of %d bytes exceeds the evaluable maximum %d", ErrInvalidConfiguration, cfg.PayloadBytes, MaxPayloadBytes)
	}
	if cfg.PreambleSymbols < 0 {
		return fmt.Errorf("%w: preamble must be non-negative, got %d symbols", ErrInvalidConfiguration, cfg.PreambleSymbols)
	}
	if absInt(cfg.SpreadingFactor) > formulaParamLimit || absInt(cfg.CodingRate) > formulaParamLimit {
		return fmt.Errorf("%w: sf=%d cr=%d cannot be evaluated", ErrInvalidConfiguration, cfg.SpreadingFactor, cfg.CodingRate)
	}

	var outOfRange []string
	if cfg.SpreadingFactor < 7 || cfg.SpreadingFactor > 12 {
		outOfRange = append(outOfRange, "sf")
	}
	if !IsStandardBandwidth(cfg.BandwidthHz) {
		outOfRange = append(outOfRange, "bw_hz")
	}
	if cfg.CodingRate < 1 || cfg.CodingRate > 4 {
		outOfRange = append(outOfRange, "cr")
	}
	for _, field := range outOfRange {
		if e.cfg.RangePolicy == RangeStrict {
			return fmt.Errorf("%w: %s outside the standard LoRa range (sf=%d bw=%d cr=%d)",
				ErrInvalidConfiguration, field, cfg.SpreadingFactor, cfg.BandwidthHz, cfg.CodingRate)
		}
		if e.metrics != nil {
			e.metrics.IncOutOfRange(field)
		}
		e.log.Warn(context.Background(), "radio parameter outside standard LoRa range",
			logging.String("event", "OutOfRangeWarning"),
			logging.String("field", field),
			logging.Int("sf", cfg.SpreadingFactor),
			logging.Int("bw_hz", cfg.BandwidthHz),
			logging.Int("cr", cfg.CodingRate),
		)
	}
	return nil
}

func (e *AirtimeEngine) reject(err error) {
	if e.metrics != nil {
		e.metrics.IncRejected("invalid_configuration")
	}
	e.log.Debug(context.Background(), "rejected radio configuration", logging.String("error", err.Error()))
}

// IsStandardBandwidth reports whether bw is one of 125, 250 or 500 kHz.
func IsStandardBandwidth(bw int) bool {
	switch bw {
	case model.Bandwidth125kHz, model.Bandwidth250kHz, model.Bandwidth500kHz:
		return true
	}
	return false
}

// ceilDiv returns ceil(a/b) for b != 0 using exact integer arithmetic.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
