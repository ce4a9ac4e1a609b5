package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	assert.Equal(t, 15, cfg.DueDays)
	assert.Equal(t, 6, cfg.OTPLength)
	assert.Equal(t, 300, cfg.OTPTTLSeconds)
	assert.Equal(t, 60, cfg.OTPResendSeconds)
	require.NoError(t, validateBillingConfig(cfg))
}

func TestValidateBillingConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*BillingConfig)
		ok     bool
	}{
		{"defaults", func(*BillingConfig) {}, true},
		{"zero due days", func(c *BillingConfig) { c.DueDays = 0 }, false},
		{"otp too short", func(c *BillingConfig) { c.OTPLength = 3 }, false},
		{"otp too long", func(c *BillingConfig) { c.OTPLength = 11 }, false},
		{"zero ttl", func(c *BillingConfig) { c.OTPTTLSeconds = 0 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultBillingConfig()
			tc.mutate(&cfg)
			err := validateBillingConfig(cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.DueDays = 30
	holder := NewStaticBillingConfigHolder(cfg)
	assert.Equal(t, 30, holder.Get().DueDays)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("ENVIRONMENT", "")

	cfg := Load()
	assert.Equal(t, "hisaab", cfg.AppName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.False(t, cfg.IsProduction())

	t.Setenv("ENVIRONMENT", "production")
	assert.True(t, Load().IsProduction())
}
