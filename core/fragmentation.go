package core

import (
	"fmt"

	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

// FragmentCount returns ceil(payloadBytes / maxPerPacket).
func FragmentCount(payloadBytes, maxPerPacket int) (int, error) {
	if maxPerPacket <= 0 {
		return 0, fmt.Errorf("%w: max payload per packet must be positive, got %d", ErrInvalidConfiguration, maxPerPacket)
	}
	if payloadBytes < 0 {
		return 0, fmt.Errorf("%w: payload must be non-negative, got %d bytes", ErrInvalidConfiguration, payloadBytes)
	}
	return ceilDiv(payloadBytes, maxPerPacket), nil
}

// FragmentCount splits payloadBytes using the engine's MaxPayloadPerPacket.
func (e *AirtimeEngine) FragmentCount(payloadBytes int) (int, error) {
	return e.FragmentCountWithLimit(payloadBytes, e.cfg.MaxPayloadPerPacket)
}

// FragmentCountWithLimit is FragmentCount with a per-call packet limit.
// Rejections are recorded like any other invalid configuration.
func (e *AirtimeEngine) FragmentCountWithLimit(payloadBytes, maxPerPacket int) (int, error) {
	n, err := FragmentCount(payloadBytes, maxPerPacket)
	if err != nil {
		e.reject(err)
	}
	return n, err
}

// Fragment computes the fragment count for payloadBytes and scales the
// single-packet airtime by it. The per-fragment airtime is taken as is;
// fragments are not resized.
func (e *AirtimeEngine) Fragment(payloadBytes int, perPacket model.AirtimeResult) (model.FragmentationResult, error) {
	return e.FragmentWithLimit(payloadBytes, e.cfg.MaxPayloadPerPacket, perPacket)
}

// FragmentWithLimit is Fragment with a per-call packet limit. A zero
// perPacket yields a zero total airtime.
func (e *AirtimeEngine) FragmentWithLimit(payloadBytes, maxPerPacket int, perPacket model.AirtimeResult) (model.FragmentationResult, error) {
	n, err := e.FragmentCountWithLimit(payloadBytes, maxPerPacket)
	if err != nil {
		return model.FragmentationResult{}, err
	}
	res := model.FragmentationResult{
		PayloadBytes:        payloadBytes,
		MaxPayloadPerPacket: maxPerPacket,
		FragmentCount:       n,
		TotalAirtimeS:       float64(n) * perPacket.TotalAirtimeS,
	}
	if e.metrics != nil {
		e.metrics.ObserveFragments(res)
	}
	return res, nil
}
