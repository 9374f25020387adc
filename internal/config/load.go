package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "CARDSTRATEGY"

// boundKeys lists every key that may come from the environment without a default.
// viper's AutomaticEnv only resolves keys it already knows about.
var boundKeys = []string{
	"llm.gemini_api_key",
	"database.url",
	"kafka.brokers",
	"kafka.alert_topic",
	"kafka.event_topic",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scheduler.max_concurrent", 5)
	v.SetDefault("scheduler.max_queue_size", 1000)
	v.SetDefault("scheduler.dispatch_interval", "100ms")
	v.SetDefault("scheduler.health_interval", "30s")
	v.SetDefault("scheduler.task_timeout", "2m")
	v.SetDefault("scheduler.result_retention", "10m")

	v.SetDefault("monitor.collection_interval", "30s")
	v.SetDefault("monitor.alert_interval", "60s")
	v.SetDefault("monitor.history_size", 1000)
	v.SetDefault("monitor.max_alerts", 1000)
	v.SetDefault("monitor.monthly_budget", 1000.0)
	v.SetDefault("monitor.cost_alert_threshold", 0.8)
	v.SetDefault("monitor.trend_points", 20)
	v.SetDefault("monitor.dashboard_alerts", 10)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.default_provider", "gemini")
}
