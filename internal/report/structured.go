package report

import (
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// Struct field names shared by the encoders and decoders below. They match
// the JSON tags on the model types.
const (
	fieldConfig        = "config"
	fieldPayloadBytes  = "payload_bytes"
	fieldSF            = "sf"
	fieldBandwidthHz   = "bw_hz"
	fieldCodingRate    = "cr"
	fieldPreamble      = "preamble_symbols"
	fieldExplicitHdr   = "explicit_header"
	fieldCRC           = "crc"
	fieldLDRO          = "low_data_rate_optimization"
	fieldSymbolTime    = "t_sym_s"
	fieldPreambleTime  = "t_preamble_s"
	fieldSymbols       = "n_payload_symbols"
	fieldPayloadTime   = "t_payload_s"
	fieldTotalAirtime  = "t_air_s"
	fieldMaxPerPacket  = "max_payload_per_packet"
	fieldFragments     = "fragments"
	fieldTotalFragment = "total_airtime_s"
	fieldPoint         = "point"
	fieldAirtime       = "airtime"
	fieldFragmentation = "fragmentation"
	fieldResults       = "results"
	fieldPoints        = "points"
	fieldWorkers       = "workers"
)

// RadioConfigToStruct encodes every field of cfg.
func RadioConfigToStruct(cfg model.RadioConfig) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPayloadBytes: structpb.NewNumberValue(float64(cfg.PayloadBytes)),
		fieldSF:           structpb.NewNumberValue(float64(cfg.SpreadingFactor)),
		fieldBandwidthHz:  structpb.NewNumberValue(float64(cfg.BandwidthHz)),
		fieldCodingRate:   structpb.NewNumberValue(float64(cfg.CodingRate)),
		fieldPreamble:     structpb.NewNumberValue(float64(cfg.PreambleSymbols)),
		fieldExplicitHdr:  structpb.NewBoolValue(cfg.ExplicitHeader),
		fieldCRC:          structpb.NewBoolValue(cfg.CRCEnabled),
		fieldLDRO:         structpb.NewBoolValue(cfg.LowDataRateOptimization),
	}}
}

// RadioConfigFromStruct decodes a radio configuration. Absent fields take
// the DefaultRadioConfig values; payload, sf and bw_hz default to zero.
func RadioConfigFromStruct(s *structpb.Struct) (model.RadioConfig, error) {
	cfg := model.DefaultRadioConfig(0, 0, 0)
	if s == nil {
		return cfg, nil
	}
	d := decoder{fields: s.GetFields()}
	d.int(fieldPayloadBytes, &cfg.PayloadBytes)
	d.int(fieldSF, &cfg.SpreadingFactor)
	d.int(fieldBandwidthHz, &cfg.BandwidthHz)
	d.int(fieldCodingRate, &cfg.CodingRate)
	d.int(fieldPreamble, &cfg.PreambleSymbols)
	d.bool(fieldExplicitHdr, &cfg.ExplicitHeader)
	d.bool(fieldCRC, &cfg.CRCEnabled)
	d.bool(fieldLDRO, &cfg.LowDataRateOptimization)
	return cfg, d.err
}

// AirtimeToStruct encodes res, including its input configuration.
func AirtimeToStruct(res model.AirtimeResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldConfig:       structpb.NewStructValue(RadioConfigToStruct(res.Config)),
		fieldSymbolTime:   structpb.NewNumberValue(res.SymbolTimeS),
		fieldPreambleTime: structpb.NewNumberValue(res.PreambleTimeS),
		fieldSymbols:      structpb.NewNumberValue(float64(res.PayloadSymbolCount)),
		fieldPayloadTime:  structpb.NewNumberValue(res.PayloadTimeS),
		fieldTotalAirtime: structpb.NewNumberValue(res.TotalAirtimeS),
	}}
}

// AirtimeFromStruct is the inverse of AirtimeToStruct. All result fields
// are required.
func AirtimeFromStruct(s *structpb.Struct) (model.AirtimeResult, error) {
	var res model.AirtimeResult
	if s == nil {
		return res, fmt.Errorf("airtime: nil struct")
	}
	d := decoder{fields: s.GetFields(), required: true}
	cfg, err := RadioConfigFromStruct(d.structField(fieldConfig))
	if err != nil {
		return res, fmt.Errorf("airtime config: %w", err)
	}
	res.Config = cfg
	d.float(fieldSymbolTime, &res.SymbolTimeS)
	d.float(fieldPreambleTime, &res.PreambleTimeS)
	d.int(fieldSymbols, &res.PayloadSymbolCount)
	d.float(fieldPayloadTime, &res.PayloadTimeS)
	d.float(fieldTotalAirtime, &res.TotalAirtimeS)
	if d.err != nil {
		return model.AirtimeResult{}, fmt.Errorf("airtime: %w", d.err)
	}
	return res, nil
}

// FragmentationToStruct encodes res.
func FragmentationToStruct(res model.FragmentationResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPayloadBytes:  structpb.NewNumberValue(float64(res.PayloadBytes)),
		fieldMaxPerPacket:  structpb.NewNumberValue(float64(res.MaxPayloadPerPacket)),
		fieldFragments:     structpb.NewNumberValue(float64(res.FragmentCount)),
		fieldTotalFragment: structpb.NewNumberValue(res.TotalAirtimeS),
	}}
}

// FragmentationFromStruct is the inverse of FragmentationToStruct.
func FragmentationFromStruct(s *structpb.Struct) (model.FragmentationResult, error) {
	var res model.FragmentationResult
	d := decoder{fields: s.GetFields(), required: true}
	d.int(fieldPayloadBytes, &res.PayloadBytes)
	d.int(fieldMaxPerPacket, &res.MaxPayloadPerPacket)
	d.int(fieldFragments, &res.FragmentCount)
	d.float(fieldTotalFragment, &res.TotalAirtimeS)
	if d.err != nil {
		return model.FragmentationResult{}, fmt.Errorf("fragmentation: %w", d.err)
	}
	return res, nil
}

// SweepPointToStruct encodes p.
func SweepPointToStruct(p model.SweepPoint) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPayloadBytes: structpb.NewNumberValue(float64(p.PayloadBytes)),
		fieldSF:           structpb.NewNumberValue(float64(p.SpreadingFactor)),
		fieldBandwidthHz:  structpb.NewNumberValue(float64(p.BandwidthHz)),
	}}
}

// SweepPointFromStruct decodes a sweep point; every field is required.
func SweepPointFromStruct(s *structpb.Struct) (model.SweepPoint, error) {
	var p model.SweepPoint
	d := decoder{fields: s.GetFields(), required: true}
	d.int(fieldPayloadBytes, &p.PayloadBytes)
	d.int(fieldSF, &p.SpreadingFactor)
	d.int(fieldBandwidthHz, &p.BandwidthHz)
	return p, d.err
}

// SweepResultToStruct encodes one sweep row.
func SweepResultToStruct(r model.SweepResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPoint:         structpb.NewStructValue(SweepPointToStruct(r.Point)),
		fieldAirtime:       structpb.NewStructValue(AirtimeToStruct(r.Airtime)),
		fieldFragmentation: structpb.NewStructValue(FragmentationToStruct(r.Fragmentation)),
	}}
}

// SweepResultFromStruct is the inverse of SweepResultToStruct.
func SweepResultFromStruct(s *structpb.Struct) (model.SweepResult, error) {
	var (
		r   model.SweepResult
		err error
	)
	d := decoder{fields: s.GetFields(), required: true}
	if r.Point, err = SweepPointFromStruct(d.structField(fieldPoint)); err != nil {
		return r, fmt.Errorf("point: %w", err)
	}
	if r.Airtime, err = AirtimeFromStruct(d.structField(fieldAirtime)); err != nil {
		return r, err
	}
	if r.Fragmentation, err = FragmentationFromStruct(d.structField(fieldFragmentation)); err != nil {
		return r, err
	}
	return r, d.err
}

// SweepToStruct wraps results as {"results": [...]}.
func SweepToStruct(results []model.SweepResult) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(results))
	for _, r := range results {
		values = append(values, structpb.NewStructValue(SweepResultToStruct(r)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldResults: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

// SweepFromStruct is the inverse of SweepToStruct.
func SweepFromStruct(s *structpb.Struct) ([]model.SweepResult, error) {
	list := s.GetFields()[fieldResults].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("missing %q list", fieldResults)
	}
	out := make([]model.SweepResult, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		r, err := SweepResultFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteSweepProtoJSON writes the protojson rendering of SweepToStruct.
func WriteSweepProtoJSON(w io.Writer, results []model.SweepResult) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(SweepToStruct(results))
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// FragmentRequest asks for the fragmentation of PayloadBytes. Zero
// MaxPayloadPerPacket means the server default; a zero SpreadingFactor
// skips the airtime estimate.
type FragmentRequest struct {
	PayloadBytes        int
	MaxPayloadPerPacket int
	SpreadingFactor     int
	BandwidthHz         int
}

// FragmentRequestToStruct encodes r, omitting zero optional fields.
func FragmentRequestToStruct(r FragmentRequest) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldPayloadBytes: structpb.NewNumberValue(float64(r.PayloadBytes)),
	}
	if r.MaxPayloadPerPacket != 0 {
		fields[fieldMaxPerPacket] = structpb.NewNumberValue(float64(r.MaxPayloadPerPacket))
	}
	if r.SpreadingFactor != 0 {
		fields[fieldSF] = structpb.NewNumberValue(float64(r.SpreadingFactor))
		fields[fieldBandwidthHz] = structpb.NewNumberValue(float64(r.BandwidthHz))
	}
	return &structpb.Struct{Fields: fields}
}

// FragmentRequestFromStruct decodes a fragment request; only payload_bytes
// is required. bw_hz defaults to 125 kHz when sf is given.
func FragmentRequestFromStruct(s *structpb.Struct) (FragmentRequest, error) {
	var r FragmentRequest
	d := decoder{fields: s.GetFields(), required: true}
	d.int(fieldPayloadBytes, &r.PayloadBytes)
	d.required = false
	d.int(fieldMaxPerPacket, &r.MaxPayloadPerPacket)
	d.int(fieldSF, &r.SpreadingFactor)
	d.int(fieldBandwidthHz, &r.BandwidthHz)
	if r.SpreadingFactor != 0 && r.BandwidthHz == 0 {
		r.BandwidthHz = model.Bandwidth125kHz
	}
	return r, d.err
}

// SweepRequest lists the points to evaluate. Empty Points selects the
// server's configured sweep.
type SweepRequest struct {
	Points  []model.SweepPoint
	Workers int
}

// SweepRequestToStruct encodes r as {"points": [...], "workers": n}.
func SweepRequestToStruct(r SweepRequest) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(r.Points))
	for _, p := range r.Points {
		values = append(values, structpb.NewStructValue(SweepPointToStruct(p)))
	}
	fields := map[string]*structpb.Value{
		fieldPoints: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}
	if r.Workers > 0 {
		fields[fieldWorkers] = structpb.NewNumberValue(float64(r.Workers))
	}
	return &structpb.Struct{Fields: fields}
}

// SweepRequestFromStruct is the inverse of SweepRequestToStruct. Both
// fields are optional.
func SweepRequestFromStruct(s *structpb.Struct) (SweepRequest, error) {
	var r SweepRequest
	d := decoder{fields: s.GetFields()}
	d.int(fieldWorkers, &r.Workers)
	if d.err != nil {
		return r, d.err
	}
	v, ok := d.fields[fieldPoints]
	if !ok || v == nil {
		return r, nil
	}
	list := v.GetListValue()
	if list == nil {
		return r, fmt.Errorf("field %q must be a list", fieldPoints)
	}
	for i, item := range list.GetValues() {
		obj := item.GetStructValue()
		if obj == nil {
			return r, fmt.Errorf("points[%d] must be an object", i)
		}
		p, err := SweepPointFromStruct(obj)
		if err != nil {
			return r, fmt.Errorf("points[%d]: %w", i, err)
		}
		r.Points = append(r.Points, p)
	}
	return r, nil
}

// decoder reads typed fields from a Struct, keeping the first error.
type decoder struct {
	fields   map[string]*structpb.Value
	required bool
	err      error
}

func (d *decoder) lookup(key string) *structpb.Value {
	if d.err != nil {
		return nil
	}
	v, ok := d.fields[key]
	if !ok || v == nil {
		if d.required {
			d.err = fmt.Errorf("missing field %q", key)
		}
		return nil
	}
	return v
}

func (d *decoder) float(key string, dst *float64) {
	v := d.lookup(key)
	if v == nil {
		return
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		d.err = fmt.Errorf("field %q must be a number", key)
		return
	}
	*dst = n.NumberValue
}

func (d *decoder) int(key string, dst *int) {
	var f float64
	d.float(key, &f)
	if d.err != nil || d.fields[key] == nil {
		return
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		d.err = fmt.Errorf("field %q must be an integer, got %v", key, f)
		return
	}
	*dst = int(f)
}

func (d *decoder) bool(key string, dst *bool) {
	v := d.lookup(key)
	if v == nil {
		return
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		d.err = fmt.Errorf("field %q must be a bool", key)
		return
	}
	*dst = b.BoolValue
}

func (d *decoder) structField(key string) *structpb.Struct {
	v := d.lookup(key)
	if v == nil {
		return nil
	}
	s := v.GetStructValue()
	if s == nil {
		d.err = fmt.Errorf("field %q must be an object", key)
	}
	return s
}
