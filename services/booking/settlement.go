package booking

import (
	"math"

	"servly/models"
)

// resolveCommissionRate picks the applicable rate with the documented
// precedence: per-booking override > provider rate > service rate >
// platform default.
func resolveCommissionRate(b *models.Booking, providerRate, serviceRate *float64, platformDefault float64) float64 {
	if b.RateOverride != nil {
		return *b.RateOverride
	}
	if providerRate != nil {
		return *providerRate
	}
	if serviceRate != nil {
		return *serviceRate
	}
	return platformDefault
}

// computeSettlement derives commission and net amounts from the total
// and a percentage rate. The commission is rounded to two decimals;
// the net amount is the exact complement so the two always sum to the
// total.
func computeSettlement(totalAmount, rate float64) (commission, net float64) {
	commission = round2(totalAmount * rate / 100)
	net = totalAmount - commission
	return commission, net
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
