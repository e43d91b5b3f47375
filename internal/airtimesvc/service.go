// Package airtimesvc serves the LoRa airtime engine over gRPC so that table
// and plot generators can query it remotely.
package airtimesvc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// SweepObserver records sweep wall time.
type SweepObserver interface {
	ObserveSweep(d time.Duration)
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultSweep sets the points evaluated when a sweep request lists none.
func WithDefaultSweep(points []model.SweepPoint) Option {
	return func(s *Service) {
		s.defaultSweep = append([]model.SweepPoint(nil), points...)
	}
}

// WithWorkers bounds sweep concurrency when the request does not.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithSweepObserver attaches a sweep duration recorder.
func WithSweepObserver(o SweepObserver) Option {
	return func(s *Service) {
		s.sweeps = o
	}
}

// Service implements AirtimeServiceServer on top of a core.AirtimeEngine.
type Service struct {
	UnimplementedAirtimeServiceServer

	engine       *core.AirtimeEngine
	log          logging.Logger
	defaultSweep []model.SweepPoint
	workers      int
	sweeps       SweepObserver
}

// NewService wires a Service to engine. A nil log is replaced by a no-op logger.
func NewService(engine *core.AirtimeEngine, log logging.Logger, opts ...Option) *Service {
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{engine: engine, log: log, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeAirtime evaluates one radio configuration.
func (s *Service) ComputeAirtime(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)

	cfg, err := report.RadioConfigFromStruct(in)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	res, err := s.engine.ComputeAirtime(cfg)
	if err != nil {
		log.Debug(ctx, "ComputeAirtime rejected", logging.Err(err))
		return nil, ToStatusError(err)
	}
	log.Debug(ctx, "ComputeAirtime",
		logging.Int("payload_bytes", cfg.PayloadBytes),
		logging.Int("sf", cfg.SpreadingFactor),
		logging.Float("t_air_s", res.TotalAirtimeS),
	)
	return report.AirtimeToStruct(res), nil
}

// FragmentCount splits a payload into packets. When the request carries a
// spreading factor, the total airtime of all fragments is estimated too.
func (s *Service) FragmentCount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := report.FragmentRequestFromStruct(in)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	limit := req.MaxPayloadPerPacket
	if limit == 0 {
		limit = s.engine.Config().MaxPayloadPerPacket
	}
	if _, err := s.engine.FragmentCountWithLimit(req.PayloadBytes, limit); err != nil {
		return nil, ToStatusError(err)
	}

	var perFragment model.AirtimeResult
	if req.SpreadingFactor != 0 {
		perFragment, err = s.engine.ComputeAirtime(model.DefaultRadioConfig(min(req.PayloadBytes, limit), req.SpreadingFactor, req.BandwidthHz))
		if err != nil {
			return nil, ToStatusError(err)
		}
	}
	res, err := s.engine.FragmentWithLimit(req.PayloadBytes, limit, perFragment)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return report.FragmentationToStruct(res), nil
}

// EnumerateConfigurations evaluates a sweep, falling back to the configured
// default sweep when the request lists no points.
func (s *Service) EnumerateConfigurations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)

	req, err := report.SweepRequestFromStruct(in)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	points := req.Points
	if len(points) == 0 {
		points = s.defaultSweep
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.workers
	}

	ctx, span := observability.StartSpan(ctx, "AirtimeEngine/EnumerateConfigurations", observability.SweepAttributes(len(points), workers)...)
	defer span.End()

	start := time.Now()
	results, err := s.engine.EnumerateConcurrent(ctx, points, workers)
	if s.sweeps != nil {
		s.sweeps.ObserveSweep(time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		log.Warn(ctx, "sweep failed", logging.Int("points", len(points)), logging.Err(err))
		return nil, ToStatusError(err)
	}
	log.Debug(ctx, "sweep complete",
		logging.Int("points", len(points)),
		logging.Int("workers", workers),
		logging.Any("elapsed", time.Since(start)),
	)
	return report.SweepToStruct(results), nil
}
