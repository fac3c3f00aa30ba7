package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RetryPolicy tunes the durable sync queue. It lives in a config file so
// operators can back off a struggling LMS without a redeploy.
type RetryPolicy struct {
	MaxAttempts              int   `mapstructure:"maxAttempts"`
	BackoffBaseMinutes       int64 `mapstructure:"backoffBaseMinutes"`
	ProcessingTimeoutMinutes int64 `mapstructure:"processingTimeoutMinutes"`
	BatchSize                int   `mapstructure:"batchSize"`
	InlineRetryDelaySeconds  int64 `mapstructure:"inlineRetryDelaySeconds"`
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:              5,
		BackoffBaseMinutes:       2,
		ProcessingTimeoutMinutes: 5,
		BatchSize:                50,
		InlineRetryDelaySeconds:  2,
	}
}

type RetryPolicyHolder struct {
	current atomic.Value // holds RetryPolicy
}

func NewRetryPolicyHolder() (*RetryPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fulfillment/config") // Volume-mounted config
	v.AddConfigPath("/etc/fulfillment")            // System config
	v.AddConfigPath(".")                           // Current directory (dev mode)

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultRetryPolicy()
		v.SetDefault("retry.maxAttempts", defaults.MaxAttempts)
		v.SetDefault("retry.backoffBaseMinutes", defaults.BackoffBaseMinutes)
		v.SetDefault("retry.processingTimeoutMinutes", defaults.ProcessingTimeoutMinutes)
		v.SetDefault("retry.batchSize", defaults.BatchSize)
		v.SetDefault("retry.inlineRetryDelaySeconds", defaults.InlineRetryDelaySeconds)
	}

	var cfg RetryPolicy
	if err := v.UnmarshalKey("retry", &cfg); err != nil {
		return nil, err
	}
	if err := validateRetryPolicy(cfg); err != nil {
		return nil, err
	}

	holder := &RetryPolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RetryPolicy
		if err := v.UnmarshalKey("retry", &updated); err != nil {
			log.Printf("[retry-policy] reload failed: %v", err)
			return
		}
		if err := validateRetryPolicy(updated); err != nil {
			log.Printf("[retry-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[retry-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RetryPolicyHolder) Get() RetryPolicy {
	return h.current.Load().(RetryPolicy)
}

func validateRetryPolicy(cfg RetryPolicy) error {
	if cfg.MaxAttempts <= 0 {
		return errors.New("retry.maxAttempts must be positive")
	}
	if cfg.BackoffBaseMinutes <= 0 {
		return errors.New("retry.backoffBaseMinutes must be positive")
	}
	if cfg.ProcessingTimeoutMinutes <= 0 {
		return errors.New("retry.processingTimeoutMinutes must be positive")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("retry.batchSize must be positive")
	}
	return nil
}
