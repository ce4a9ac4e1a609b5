package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds billing tunables that operators may change without a redeploy.
type BillingConfig struct {
	// DueDays is the number of days after issuance an invoice falls due.
	DueDays int `mapstructure:"dueDays"`
	// OTPLength is the number of digits in a one-time login code.
	OTPLength int `mapstructure:"otpLength"`
	// OTPTTLSeconds is how long an issued OTP stays valid.
	OTPTTLSeconds int `mapstructure:"otpTtlSeconds"`
	// OTPResendSeconds is the minimum gap between OTP sends to one recipient.
	OTPResendSeconds int `mapstructure:"otpResendSeconds"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DueDays:          15,
		OTPLength:        6,
		OTPTTLSeconds:    300,
		OTPResendSeconds: 60,
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/hisaab/config")
	v.AddConfigPath("/etc/hisaab")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HISAAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.dueDays", defaults.DueDays)
	v.SetDefault("billing.otpLength", defaults.OTPLength)
	v.SetDefault("billing.otpTtlSeconds", defaults.OTPTTLSeconds)
	v.SetDefault("billing.otpResendSeconds", defaults.OTPResendSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config with no file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DueDays <= 0 {
		return errors.New("billing.dueDays must be positive")
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		return errors.New("billing.otpLength must be between 4 and 10")
	}
	if cfg.OTPTTLSeconds <= 0 {
		return errors.New("billing.otpTtlSeconds must be positive")
	}
	return nil
}
