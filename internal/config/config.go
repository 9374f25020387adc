package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Monitor   MonitorConfig   `mapstructure:"monitor"   validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// SchedulerConfig controls admission, dispatch cadence and retention of AI tasks.
type SchedulerConfig struct {
	// MaxConcurrent is the concurrency ceiling for in-flight provider calls.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"required,gt=0"`

	// MaxQueueSize bounds the number of pending tasks. Zero means unbounded.
	MaxQueueSize int `mapstructure:"max_queue_size" validate:"gte=0"`

	DispatchInterval time.Duration `mapstructure:"dispatch_interval" validate:"required,gt=0"`
	HealthInterval   time.Duration `mapstructure:"health_interval"   validate:"required,gt=0"`

	// TaskTimeout bounds a single provider call. Zero disables the deadline.
	TaskTimeout time.Duration `mapstructure:"task_timeout" validate:"gte=0"`

	// ResultRetention is how long terminal task records stay retrievable by id.
	ResultRetention time.Duration `mapstructure:"result_retention" validate:"required,gt=0"`
}

// MonitorConfig controls metrics sampling and alerting.
type MonitorConfig struct {
	CollectionInterval time.Duration `mapstructure:"collection_interval" validate:"required,gt=0"`
	AlertInterval      time.Duration `mapstructure:"alert_interval"      validate:"required,gt=0"`
	HistorySize        int           `mapstructure:"history_size"        validate:"required,gt=0"`
	MaxAlerts          int           `mapstructure:"max_alerts"          validate:"required,gt=0"`

	// MonthlyBudget is the spend ceiling used to compute budget utilization.
	MonthlyBudget float64 `mapstructure:"monthly_budget" validate:"gte=0"`

	// CostAlertThreshold is the utilization ratio above which a cost alert fires.
	CostAlertThreshold float64 `mapstructure:"cost_alert_threshold" validate:"gt=0,lte=1"`

	TrendPoints     int `mapstructure:"trend_points"     validate:"required,gt=0"`
	DashboardAlerts int `mapstructure:"dashboard_alerts" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey    string                  `mapstructure:"gemini_api_key"   validate:"required"`
	ModelName       string                  `mapstructure:"model_name"       validate:"required"`
	DefaultProvider string                  `mapstructure:"default_provider" validate:"required"`
	Pricing         map[string]ModelPricing `mapstructure:"pricing"          validate:"dive"`
}

// ModelPricing is the price in USD per thousand tokens for one model.
type ModelPricing struct {
	InputPer1K  float64 `mapstructure:"input_per_1k"  validate:"gte=0"`
	OutputPer1K float64 `mapstructure:"output_per_1k" validate:"gte=0"`
}

// DatabaseConfig configures the optional alert and report archive.
// An empty URL disables archiving.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// KafkaConfig configures the optional alert and task event publisher.
// No brokers disables publishing.
type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AlertTopic string   `mapstructure:"alert_topic" validate:"required_with=Brokers"`
	EventTopic string   `mapstructure:"event_topic"`
}
