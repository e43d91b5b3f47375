package core

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// EnumerateConfigurations evaluates each point with DefaultRadioConfig
// (coding rate 4/5) and returns one result per point, in input order.
// The first invalid point aborts the sweep.
func (e *AirtimeEngine) EnumerateConfigurations(points []model.SweepPoint) ([]model.SweepResult, error) {
	results := make([]model.SweepResult, len(points))
	for i, p := range points {
		res, err := e.evaluatePoint(context.Background(), p)
		if err != nil {
			return nil, fmt.Errorf("sweep point %d: %w", i, err)
		}
		results[i] = res
	}
	return results, nil
}

// EnumerateConcurrent produces the same output as EnumerateConfigurations,
// spreading the points over at most workers goroutines. Cancelling ctx stops
// dispatching new points and returns ctx.Err().
func (e *AirtimeEngine) EnumerateConcurrent(ctx context.Context, points []model.SweepPoint, workers int) ([]model.SweepResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(points) {
		workers = len(points)
	}
	results := make([]model.SweepResult, len(points))
	if len(points) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := e.evaluatePoint(ctx, points[i])
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("sweep point %d: %w", i, err)
					}
					errMu.Unlock()
					cancel()
					continue
				}
				results[i] = res
			}
		}()
	}

dispatch:
	for i := range points {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluatePoint records one airtime observation for the point itself. The
// per-fragment packet is priced with timeOnAir so it is not counted twice.
func (e *AirtimeEngine) evaluatePoint(ctx context.Context, p model.SweepPoint) (model.SweepResult, error) {
	_, span := observability.StartSpan(ctx, "AirtimeEngine/evaluatePoint", observability.SweepPointAttributes(p)...)
	defer span.End()

	res, err := e.pricePoint(p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SweepResult{}, err
	}
	span.SetAttributes(observability.AirtimeAttributes(res.Airtime)...)
	span.SetAttributes(observability.FragmentAttributes(res.Fragmentation)...)
	return res, nil
}

func (e *AirtimeEngine) pricePoint(p model.SweepPoint) (model.SweepResult, error) {
	cfg := model.DefaultRadioConfig(p.PayloadBytes, p.SpreadingFactor, p.BandwidthHz)
	airtime, err := e.ComputeAirtime(cfg)
	if err != nil {
		return model.SweepResult{}, err
	}

	perFragment := airtime
	if limit := e.cfg.MaxPayloadPerPacket; limit > 0 && p.PayloadBytes > limit {
		cfg.PayloadBytes = limit
		if perFragment, err = timeOnAir(cfg); err != nil {
			e.reject(err)
			return model.SweepResult{}, err
		}
	}
	frag, err := e.Fragment(p.PayloadBytes, perFragment)
	if err != nil {
		return model.SweepResult{}, err
	}
	return model.SweepResult{Point: p, Airtime: airtime, Fragmentation: frag}, nil
}
