package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

const tracerName = "github.com/signalsfoundry/lora-pipeline-analysis"

// Span attribute keys shared by the engine, the RPC layer and the CLIs.
const (
	AttrPayloadBytes      = attribute.Key("lora.payload_bytes")
	AttrSpreadingFactor   = attribute.Key("lora.sf")
	AttrBandwidthHz       = attribute.Key("lora.bw_hz")
	AttrCodingRate        = attribute.Key("lora.cr")
	AttrPayloadSymbols    = attribute.Key("lora.payload_symbols")
	AttrAirtimeS          = attribute.Key("lora.t_air_s")
	AttrMaxPayload        = attribute.Key("lora.max_payload_per_packet")
	AttrFragments         = attribute.Key("lora.fragments")
	AttrFragmentedAirtime = attribute.Key("lora.fragmented_t_air_s")
	AttrSweepPoints       = attribute.Key("sweep.points")
	AttrSweepWorkers      = attribute.Key("sweep.workers")
	AttrSweepRows         = attribute.Key("sweep.rows")
)

// StartSpan starts an internal span on the global tracer provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RadioAttributes describes the packet being priced.
func RadioAttributes(cfg model.RadioConfig) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPayloadBytes.Int(cfg.PayloadBytes),
		AttrSpreadingFactor.Int(cfg.SpreadingFactor),
		AttrBandwidthHz.Int(cfg.BandwidthHz),
		AttrCodingRate.Int(cfg.CodingRate),
	}
}

func SweepPointAttributes(p model.SweepPoint) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPayloadBytes.Int(p.PayloadBytes),
		AttrSpreadingFactor.Int(p.SpreadingFactor),
		AttrBandwidthHz.Int(p.BandwidthHz),
	}
}

func SweepAttributes(points, workers int) []attribute.KeyValue {
	return []attribute.KeyValue{AttrSweepPoints.Int(points), AttrSweepWorkers.Int(workers)}
}

// AirtimeAttributes carries the computed single-packet result.
func AirtimeAttributes(res model.AirtimeResult) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPayloadSymbols.Int(res.PayloadSymbolCount),
		AttrAirtimeS.Float64(res.TotalAirtimeS),
	}
}

func FragmentAttributes(res model.FragmentationResult) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrMaxPayload.Int(res.MaxPayloadPerPacket),
		AttrFragments.Int(res.FragmentCount),
		AttrFragmentedAirtime.Float64(res.TotalAirtimeS),
	}
}
