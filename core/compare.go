package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// CompareMeasured models each measured summary with DefaultRadioConfig at
// bandwidthHz and reports the relative deviation, in input order. Groups the
// model cannot evaluate (a corrupt sf field, say) are logged and left out;
// a non-positive bandwidth fails the whole comparison.
func (e *AirtimeEngine) CompareMeasured(measured []model.LoRaAirtimeSummary, bandwidthHz int) ([]model.AirtimeComparison, error) {
	if bandwidthHz <= 0 {
		err := fmt.Errorf("%w: bandwidth must be positive, got %d Hz", ErrInvalidConfiguration, bandwidthHz)
		e.reject(err)
		return nil, err
	}

	out := make([]model.AirtimeComparison, 0, len(measured))
	for _, m := range measured {
		res, err := e.ComputeAirtime(model.DefaultRadioConfig(m.PayloadBytes, m.SpreadingFactor, bandwidthHz))
		if err != nil {
			e.log.Warn(context.Background(), "skipping LoRa group the model cannot evaluate",
				logging.Int("payload_bytes", m.PayloadBytes),
				logging.Int("sf", m.SpreadingFactor),
				logging.Int("samples", m.Count),
				logging.Err(err),
			)
			continue
		}
		modeled := res.TotalAirtimeMs()
		out = append(out, model.AirtimeComparison{
			Measured:  m,
			ModeledMs: modeled,
			DeltaPct:  (m.AirtimeMeanMs - modeled) / modeled * 100,
		})
	}
	return out, nil
}
