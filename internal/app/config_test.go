package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingConfig_ShippingPolicy(t *testing.T) {
	p, err := PricingConfig{FreeShippingThreshold: "28000", FlatShippingFee: "2800.50"}.ShippingPolicy()
	require.NoError(t, err)
	assert.Equal(t, "28000", p.FreeThreshold.String())
	assert.Equal(t, "2800.5", p.FlatFee.String())

	_, err = PricingConfig{FreeShippingThreshold: "lots", FlatShippingFee: "1"}.ShippingPolicy()
	assert.Error(t, err)

	_, err = PricingConfig{FreeShippingThreshold: "1", FlatShippingFee: "-1"}.ShippingPolicy()
	assert.Error(t, err)
}

func TestConfig_applyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:1234", DatabaseURL: "postgres://explicit"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:1234", cfg.Addr)
}
