// Package config defines configuration parsing and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"

	"github.com/gridguard/leop-server/internal/domain"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"dev"`
	Port      int    `env:"PORT" envDefault:"8080" validate:"gt=0,lte=65535"`
	AdminPort int    `env:"ADMIN_PORT" envDefault:"9090" validate:"gt=0,lte=65535"`

	// TCP worker pool
	MaxWorkers          int           `env:"MAX_WORKERS" envDefault:"20" validate:"gt=0"`
	MaxClientsPerWorker int           `env:"MAX_CLIENTS_PER_WORKER" envDefault:"50" validate:"gt=0"`
	ClientBufferSize    int           `env:"CLIENT_BUFFER_SIZE" envDefault:"1024" validate:"gt=0"`
	PollTimeout         time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
	ClientIdleTimeout   time.Duration `env:"CLIENT_IDLE_TIMEOUT" envDefault:"300s"`

	// Upstream HTTP
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES" envDefault:"3" validate:"gte=0"`

	// Pipeline
	QueueCapacity  int `env:"QUEUE_CAPACITY" envDefault:"100" validate:"gt=0"`
	FetchWorkers   int `env:"FETCH_WORKERS" envDefault:"3" validate:"gt=0"`
	ParseWorkers   int `env:"PARSE_WORKERS" envDefault:"3" validate:"gt=0"`
	ComputeWorkers int `env:"COMPUTE_WORKERS" envDefault:"3" validate:"gt=0"`

	// Fetch-body cache. Empty REDIS_ADDR disables caching entirely.
	RedisAddr     string        `env:"REDIS_ADDR"`
	FetchCacheTTL time.Duration `env:"FETCH_CACHE_TTL" envDefault:"300s"`

	// Observability
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"leop-server"`

	// Solar installation
	PanelEfficiency float64 `env:"PANEL_EFFICIENCY" envDefault:"0.18" validate:"gte=0,lte=1"`
	PanelAreaM2     float64 `env:"PANEL_AREA_M2" envDefault:"20.0" validate:"gte=0"`
	OrientationDeg  float64 `env:"ORIENTATION_DEG" envDefault:"180.0"`
	TiltDeg         float64 `env:"TILT_DEG" envDefault:"35.0"`
	PeakPowerKW     float64 `env:"PEAK_POWER_KW" envDefault:"3.6" validate:"gte=0"`

	// Battery
	BatteryCapacityKWh  float64 `env:"BATTERY_CAPACITY_KWH" envDefault:"10.0" validate:"gte=0"`
	MaxChargeKW         float64 `env:"MAX_CHARGE_KW" envDefault:"5.0" validate:"gte=0"`
	MaxDischargeKW      float64 `env:"MAX_DISCHARGE_KW" envDefault:"5.0" validate:"gte=0"`
	MinSoCPct           float64 `env:"MIN_SOC_PCT" envDefault:"20.0" validate:"gte=0,lte=100"`
	MaxSoCPct           float64 `env:"MAX_SOC_PCT" envDefault:"95.0" validate:"gte=0,lte=100"`
	InitialSoCPct       float64 `env:"INITIAL_SOC_PCT" envDefault:"50.0" validate:"gte=0,lte=100"`
	RoundtripEfficiency float64 `env:"ROUNDTRIP_EFFICIENCY" envDefault:"0.9" validate:"gte=0,lte=1"`

	// Consumption
	BaseLoadKW  float64 `env:"BASE_LOAD_KW" envDefault:"0.5" validate:"gte=0"`
	PeakLoadKW  float64 `env:"PEAK_LOAD_KW" envDefault:"3.0" validate:"gte=0"`
	AvgDailyKWh float64 `env:"AVG_DAILY_KWH" envDefault:"15.0" validate:"gte=0"`

	// Dispatch
	PriceThresholdSEK float64 `env:"PRICE_THRESHOLD_SEK" envDefault:"1.0"`
}

// Load parses environment variables into a Config and validates ranges.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Validate: %w", err)
	}
	if cfg.MinSoCPct > cfg.MaxSoCPct {
		return Config{}, fmt.Errorf("op=config.Validate: MIN_SOC_PCT %.1f exceeds MAX_SOC_PCT %.1f: %w",
			cfg.MinSoCPct, cfg.MaxSoCPct, domain.ErrInvalidArgument)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Solar returns the solar installation parameters as a domain value.
func (c Config) Solar() domain.SolarConfig {
	return domain.SolarConfig{
		PanelEfficiency: c.PanelEfficiency,
		PanelAreaM2:     c.PanelAreaM2,
		OrientationDeg:  c.OrientationDeg,
		TiltDeg:         c.TiltDeg,
		PeakPowerKW:     c.PeakPowerKW,
	}
}

// Battery returns the battery parameters as a domain value.
func (c Config) Battery() domain.BatteryConfig {
	return domain.BatteryConfig{
		CapacityKWh:         c.BatteryCapacityKWh,
		MaxChargeKW:         c.MaxChargeKW,
		MaxDischargeKW:      c.MaxDischargeKW,
		MinSoCPct:           c.MinSoCPct,
		MaxSoCPct:           c.MaxSoCPct,
		CurrentSoCPct:       c.InitialSoCPct,
		RoundtripEfficiency: c.RoundtripEfficiency,
	}
}

// Consumption returns the household load profile as a domain value.
func (c Config) Consumption() domain.ConsumptionProfile {
	return domain.ConsumptionProfile{
		BaseLoadKW:  c.BaseLoadKW,
		PeakLoadKW:  c.PeakLoadKW,
		AvgDailyKWh: c.AvgDailyKWh,
	}
}
