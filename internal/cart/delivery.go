package cart

import (
	"math"

	"github.com/veldmarket/farmcart-backend/pkg/config"
)

// ComputeDeliveryFee prices delivery in cents from the buyer's distance.
// Distances inside the base radius pay the flat base fee; beyond it every
// started kilometre adds one surcharge step.
func ComputeDeliveryFee(cfg config.DeliveryConfig, distanceKM float64) int {
	if distanceKM < 0 {
		distanceKM = 0
	}
	if distanceKM <= cfg.BaseRadiusKM {
		return cfg.BaseFeeCents
	}
	extraKM := int(math.Ceil(distanceKM - cfg.BaseRadiusKM))
	return cfg.BaseFeeCents + extraKM*cfg.SurchargeCents
}
