package airtimesvc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
)

const tracerName = "github.com/signalsfoundry/lora-pipeline-analysis/internal/airtimesvc"

// TracingUnaryServerInterceptor tags the RPC span with the radio parameters
// of the request and the airtime it produced. It opens its own server span
// when no stats handler has started one.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		_, method := observability.SplitMethod(info.FullMethod)
		name := ServiceName + "/" + method

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.SetName(name)
		} else {
			ctx, span = otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
		}

		span.SetAttributes(attribute.String("rpc.system", "grpc"), attribute.String("rpc.method", method))
		if id := logging.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if in, ok := req.(*structpb.Struct); ok {
			span.SetAttributes(requestAttributes(info.FullMethod, in)...)
		}

		resp, err := handler(ctx, req)
		if err != nil {
			code := status.Code(err)
			span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, code.String())
			return resp, err
		}
		if out, ok := resp.(*structpb.Struct); ok {
			span.SetAttributes(responseAttributes(info.FullMethod, out)...)
		}
		return resp, nil
	}
}

// requestAttributes decodes what it can of the request. Malformed requests
// get no attributes; the handler reports them.
func requestAttributes(fullMethod string, in *structpb.Struct) []attribute.KeyValue {
	switch fullMethod {
	case ComputeAirtimeFullMethodName:
		if cfg, err := report.RadioConfigFromStruct(in); err == nil {
			return observability.RadioAttributes(cfg)
		}
	case FragmentCountFullMethodName:
		if r, err := report.FragmentRequestFromStruct(in); err == nil {
			attrs := []attribute.KeyValue{observability.AttrPayloadBytes.Int(r.PayloadBytes)}
			if r.SpreadingFactor != 0 {
				attrs = append(attrs,
					observability.AttrSpreadingFactor.Int(r.SpreadingFactor),
					observability.AttrBandwidthHz.Int(r.BandwidthHz),
				)
			}
			return attrs
		}
	case EnumerateConfigurationsFullMethodName:
		if r, err := report.SweepRequestFromStruct(in); err == nil {
			return observability.SweepAttributes(len(r.Points), r.Workers)
		}
	}
	return nil
}

func responseAttributes(fullMethod string, out *structpb.Struct) []attribute.KeyValue {
	switch fullMethod {
	case ComputeAirtimeFullMethodName:
		if res, err := report.AirtimeFromStruct(out); err == nil {
			return observability.AirtimeAttributes(res)
		}
	case FragmentCountFullMethodName:
		if res, err := report.FragmentationFromStruct(out); err == nil {
			return observability.FragmentAttributes(res)
		}
	case EnumerateConfigurationsFullMethodName:
		if rows := out.GetFields()["results"].GetListValue(); rows != nil {
			return []attribute.KeyValue{observability.AttrSweepRows.Int(len(rows.GetValues()))}
		}
	}
	return nil
}
