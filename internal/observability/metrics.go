package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// AirtimeCollector bundles Prometheus metrics for airtime computations and
// the RPC surface. It satisfies core.AirtimeRecorder.
type AirtimeCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Computations  *prometheus.CounterVec
	Airtime       *prometheus.HistogramVec
	Fragments     prometheus.Histogram
	Rejected      *prometheus.CounterVec
	OutOfRange    *prometheus.CounterVec
	SweepDuration prometheus.Histogram
}

// NewAirtimeCollector registers the metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewAirtimeCollector(reg prometheus.Registerer) (*AirtimeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airtime_rpc_requests_total",
		Help: "Total number of handled airtime RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "airtime_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airtime_rpc_duration_seconds",
		Help:    "Airtime RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "airtime_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	computations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airtime_computations_total",
		Help: "Airtime computations performed, labeled by spreading factor and bandwidth.",
	}, []string{"sf", "bw_hz"}), "airtime_computations_total")
	if err != nil {
		return nil, err
	}

	airtime, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "airtime_total_seconds",
		Help: "Computed single-packet time on air in seconds.",
		// 10 ms .. ~10 s
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 11),
	}, []string{"sf"}), "airtime_total_seconds")
	if err != nil {
		return nil, err
	}

	fragments, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "airtime_fragments",
		Help:    "Fragments required per application payload.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	}), "airtime_fragments")
	if err != nil {
		return nil, err
	}

	rejected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airtime_rejected_total",
		Help: "Configurations rejected by the airtime engine, labeled by reason.",
	}, []string{"reason"}), "airtime_rejected_total")
	if err != nil {
		return nil, err
	}

	outOfRange, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airtime_out_of_range_total",
		Help: "Radio parameters outside the standard LoRa set that were still evaluated.",
	}, []string{"field"}), "airtime_out_of_range_total")
	if err != nil {
		return nil, err
	}

	sweep, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "airtime_sweep_duration_seconds",
		Help:    "Wall time spent evaluating a configuration sweep.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "airtime_sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &AirtimeCollector{
		gatherer:      gatherer,
		RPCRequests:   requests,
		RPCDurations:  durations,
		Computations:  computations,
		Airtime:       airtime,
		Fragments:     fragments,
		Rejected:      rejected,
		OutOfRange:    outOfRange,
		SweepDuration: sweep,
	}, nil
}

// ObserveAirtime records one successful computation.
func (c *AirtimeCollector) ObserveAirtime(res model.AirtimeResult) {
	if c == nil {
		return
	}
	sf := strconv.Itoa(res.Config.SpreadingFactor)
	c.Computations.WithLabelValues(sf, strconv.Itoa(res.Config.BandwidthHz)).Inc()
	c.Airtime.WithLabelValues(sf).Observe(res.TotalAirtimeS)
}

// ObserveFragments records the fragment count of one payload.
func (c *AirtimeCollector) ObserveFragments(res model.FragmentationResult) {
	if c == nil {
		return
	}
	c.Fragments.Observe(float64(res.FragmentCount))
}

// IncRejected counts a rejected configuration.
func (c *AirtimeCollector) IncRejected(reason string) {
	if c == nil {
		return
	}
	c.Rejected.WithLabelValues(reason).Inc()
}

// IncOutOfRange counts a non-standard parameter that was evaluated anyway.
func (c *AirtimeCollector) IncOutOfRange(field string) {
	if c == nil {
		return
	}
	c.OutOfRange.WithLabelValues(field).Inc()
}

// ObserveSweep records how long a sweep took.
func (c *AirtimeCollector) ObserveSweep(d time.Duration) {
	if c == nil {
		return
	}
	c.SweepDuration.Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *AirtimeCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AirtimeCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components, returning "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
