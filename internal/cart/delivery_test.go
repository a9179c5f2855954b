package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veldmarket/farmcart-backend/pkg/config"
)

func feeConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		BaseFeeCents:   3500,
		SurchargeCents: 500,
		BaseRadiusKM:   5,
	}
}

func TestComputeDeliveryFeeWithinBaseRadius(t *testing.T) {
	cfg := feeConfig()

	assert.Equal(t, 3500, ComputeDeliveryFee(cfg, 0))
	assert.Equal(t, 3500, ComputeDeliveryFee(cfg, 2.4))
	assert.Equal(t, 3500, ComputeDeliveryFee(cfg, 5))
}

func TestComputeDeliveryFeeTiered(t *testing.T) {
	cfg := feeConfig()

	// Every started kilometre beyond the radius adds one surcharge step.
	assert.Equal(t, 4000, ComputeDeliveryFee(cfg, 5.1))
	assert.Equal(t, 4000, ComputeDeliveryFee(cfg, 6))
	assert.Equal(t, 4500, ComputeDeliveryFee(cfg, 6.5))
	assert.Equal(t, 7000, ComputeDeliveryFee(cfg, 12))
}

func TestComputeDeliveryFeeNegativeDistance(t *testing.T) {
	assert.Equal(t, 3500, ComputeDeliveryFee(feeConfig(), -3))
}

func TestComputeDeliveryFeeStrictlyIncreasing(t *testing.T) {
	cfg := feeConfig()

	prev := ComputeDeliveryFee(cfg, cfg.BaseRadiusKM)
	for km := cfg.BaseRadiusKM + 1; km <= 30; km++ {
		fee := ComputeDeliveryFee(cfg, km)
		assert.Greater(t, fee, prev, "fee must increase at %v km", km)
		prev = fee
	}
}
