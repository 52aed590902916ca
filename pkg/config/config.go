// Package config loads the mesh coordinator's configuration: budget limits,
// quotas, monitor intervals, routing weights, retention windows, the model
// pricing table, the skills registry path, and the KV connection.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RoutingWeights are the weighted-scoring coefficients the router applies
// to each candidate agent. They must sum to 1.0; Load validates this.
type RoutingWeights struct {
	Performance     float64 `mapstructure:"performance"`
	Availability    float64 `mapstructure:"availability"`
	CostEfficiency  float64 `mapstructure:"cost_efficiency"`
	ResponseTime    float64 `mapstructure:"response_time"`
	EmergencyBoost  float64 `mapstructure:"emergency_boost"`
	CriticalBoost   float64 `mapstructure:"critical_boost"`
}

// BudgetConfig holds the cost ceilings the cost monitor and submit_task
// enforce.
type BudgetConfig struct {
	MaxTotalCostPerHour        float64 `mapstructure:"max_total_cost_per_hour"`
	EmergencyShutdownThreshold float64 `mapstructure:"emergency_shutdown_threshold"`
}

// QuotaConfig holds per-requester rate limits.
type QuotaConfig struct {
	MaxTasksPerUserPerHour int `mapstructure:"max_tasks_per_user_per_hour"`
}

// MonitorIntervals controls how often each background governance monitor
// runs.
type MonitorIntervals struct {
	Health      time.Duration `mapstructure:"health"`
	Cost        time.Duration `mapstructure:"cost"`
	Performance time.Duration `mapstructure:"performance"`
	Cleanup     time.Duration `mapstructure:"cleanup"`
}

// RetentionConfig controls how long task history and per-task KV records
// are kept.
type RetentionConfig struct {
	TaskHistory   time.Duration `mapstructure:"task_history"`
	UsageRecordTTL time.Duration `mapstructure:"usage_record_ttl"`
}

// ModelPricing is the per-token input/output rate for one model family.
type ModelPricing struct {
	InputPerThousandTokens  float64 `mapstructure:"input_per_thousand_tokens"`
	OutputPerThousandTokens float64 `mapstructure:"output_per_thousand_tokens"`
}

// PricingConfig is the model-keyed pricing table used to cost a usage
// record. Keys are matched by prefix against a model name; "default" is the
// mid-tier tariff used for unrecognized models.
type PricingConfig map[string]ModelPricing

// KVConfig addresses the Redis-backed KV port.
type KVConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	UseTLS       bool          `mapstructure:"use_tls"`
}

// SkillsConfig locates the Progressive Skills Manager's registry document
// and tunes its in-memory content cache.
type SkillsConfig struct {
	RegistryPath  string `mapstructure:"registry_path"`
	ContentCacheSize int `mapstructure:"content_cache_size"`
}

// OpsConfig configures the ambient ops HTTP surface (/healthz, /metrics,
// /status).
type OpsConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// Config is the mesh coordinator's complete runtime configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Routing     RoutingWeights   `mapstructure:"routing"`
	Budget      BudgetConfig     `mapstructure:"budget"`
	Quota       QuotaConfig      `mapstructure:"quota"`
	Monitors    MonitorIntervals `mapstructure:"monitors"`
	Retention   RetentionConfig  `mapstructure:"retention"`
	Pricing     PricingConfig    `mapstructure:"pricing"`
	KV          KVConfig            `mapstructure:"kv"`
	Skills      SkillsConfig        `mapstructure:"skills"`
	Ops         OpsConfig           `mapstructure:"ops"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Load reads configuration from a YAML file (MESH_CONFIG_FILE, default
// "configs/config.yaml") layered under environment variables prefixed
// MESH_, following the same viper composition-of-sub-configs pattern the
// rest of this codebase's services use.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("MESH_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("MESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("kv.address", "REDIS_ADDR")
	_ = v.BindEnv("kv.address", "REDIS_ADDRESS")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants Load cannot express through mapstructure tags
// alone: routing weights summing to 1.0 and positive budget ceilings.
func (c *Config) Validate() error {
	sum := c.Routing.Performance + c.Routing.Availability + c.Routing.CostEfficiency + c.Routing.ResponseTime
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: routing weights must sum to 1.0, got %f", sum)
	}
	if c.Budget.MaxTotalCostPerHour <= 0 {
		return fmt.Errorf("config: budget.max_total_cost_per_hour must be positive")
	}
	if c.Budget.EmergencyShutdownThreshold <= c.Budget.MaxTotalCostPerHour {
		return fmt.Errorf("config: budget.emergency_shutdown_threshold must exceed max_total_cost_per_hour")
	}
	return nil
}

// Price returns the pricing entry for a model, matching by longest key
// prefix and falling back to "default" for unrecognized models.
func (p PricingConfig) Price(model string) ModelPricing {
	best := ""
	for key := range p {
		if key == "default" {
			continue
		}
		if strings.HasPrefix(model, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return p[best]
	}
	return p["default"]
}

func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "dev" || c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("routing.performance", 0.40)
	v.SetDefault("routing.availability", 0.25)
	v.SetDefault("routing.cost_efficiency", 0.20)
	v.SetDefault("routing.response_time", 0.15)
	v.SetDefault("routing.emergency_boost", 1.5)
	v.SetDefault("routing.critical_boost", 1.2)

	v.SetDefault("budget.max_total_cost_per_hour", 50.0)
	v.SetDefault("budget.emergency_shutdown_threshold", 100.0)

	v.SetDefault("quota.max_tasks_per_user_per_hour", 20)

	v.SetDefault("monitors.health", 30*time.Second)
	v.SetDefault("monitors.cost", 5*time.Minute)
	v.SetDefault("monitors.performance", 2*time.Minute)
	v.SetDefault("monitors.cleanup", 1*time.Hour)

	v.SetDefault("retention.task_history", 24*time.Hour)
	v.SetDefault("retention.usage_record_ttl", 7*24*time.Hour)

	v.SetDefault("pricing.default.input_per_thousand_tokens", 0.50)
	v.SetDefault("pricing.default.output_per_thousand_tokens", 1.50)
	v.SetDefault("pricing.gpt-4.input_per_thousand_tokens", 2.50)
	v.SetDefault("pricing.gpt-4.output_per_thousand_tokens", 10.00)
	v.SetDefault("pricing.gpt-3.5.input_per_thousand_tokens", 0.50)
	v.SetDefault("pricing.gpt-3.5.output_per_thousand_tokens", 1.50)
	v.SetDefault("pricing.claude-3-opus.input_per_thousand_tokens", 15.00)
	v.SetDefault("pricing.claude-3-opus.output_per_thousand_tokens", 75.00)
	v.SetDefault("pricing.claude-3-sonnet.input_per_thousand_tokens", 3.00)
	v.SetDefault("pricing.claude-3-sonnet.output_per_thousand_tokens", 15.00)
	v.SetDefault("pricing.claude-3-haiku.input_per_thousand_tokens", 0.25)
	v.SetDefault("pricing.claude-3-haiku.output_per_thousand_tokens", 1.25)

	v.SetDefault("kv.address", "localhost:6379")
	v.SetDefault("kv.dial_timeout", 5*time.Second)
	v.SetDefault("kv.read_timeout", 3*time.Second)
	v.SetDefault("kv.write_timeout", 3*time.Second)
	v.SetDefault("kv.pool_size", 10)

	v.SetDefault("skills.registry_path", "configs/skills_registry.json")
	v.SetDefault("skills.content_cache_size", 256)

	v.SetDefault("ops.listen_address", ":8090")

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.path", "/metrics")
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
}
