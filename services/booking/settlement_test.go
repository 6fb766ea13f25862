package booking

import (
	"testing"

	"servly/models"

	"github.com/stretchr/testify/assert"
)

func rate(v float64) *float64 { return &v }

func TestResolveCommissionRatePrecedence(t *testing.T) {
	b := &models.Booking{}

	// Platform default when nothing else is set.
	assert.Equal(t, 10.0, resolveCommissionRate(b, nil, nil, 10.0))

	// Service rate beats the default.
	assert.Equal(t, 8.0, resolveCommissionRate(b, nil, rate(8), 10.0))

	// Provider rate beats the service rate.
	assert.Equal(t, 15.0, resolveCommissionRate(b, rate(15), rate(8), 10.0))

	// Per-booking override beats everything.
	b.RateOverride = rate(5)
	assert.Equal(t, 5.0, resolveCommissionRate(b, rate(15), rate(8), 10.0))
}

func TestComputeSettlement(t *testing.T) {
	commission, net := computeSettlement(500, 10)
	assert.Equal(t, 50.0, commission)
	assert.Equal(t, 450.0, net)
}

func TestComputeSettlementRounding(t *testing.T) {
	commission, net := computeSettlement(333.33, 12.5)
	assert.Equal(t, 41.67, commission)
	assert.InDelta(t, 291.66, net, 1e-9)
	// Conservation: amounts always sum back to the total.
	assert.InDelta(t, 333.33, commission+net, 1e-9)
}

func TestComputeSettlementZeroRate(t *testing.T) {
	commission, net := computeSettlement(120, 0)
	assert.Equal(t, 0.0, commission)
	assert.Equal(t, 120.0, net)
}
