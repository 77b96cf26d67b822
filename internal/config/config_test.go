package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SHIPPING_FEE", "")
	t.Setenv("CHECKOUT_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "50", cfg.ShippingFee.String())
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Contains(t, cfg.DSN(), "dbname=")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	t.Setenv("SHIPPING_FEE", "12.50")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PORT", ":9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.DSN())
	assert.Equal(t, "12.5", cfg.ShippingFee.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, ":9000", cfg.Addr())
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("SHIPPING_FEE", "-1")
	_, err := Load()
	assert.ErrorContains(t, err, "SHIPPING_FEE")

	t.Setenv("SHIPPING_FEE", "")
	t.Setenv("CHECKOUT_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "CHECKOUT_TIMEOUT")
}
