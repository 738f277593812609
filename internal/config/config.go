package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Anthropic summary generation. When the key is empty the server runs
	// with the deterministic local summary only.
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	SummaryModel    string `mapstructure:"SUMMARY_MODEL"`
	SummaryTimeout  int    `mapstructure:"SUMMARY_TIMEOUT_SECONDS"`

	// Cross-hospital conflict tolerances. Same-date values from different
	// hospitals differing by more than the delta are flagged as conflicts.
	BMIConflictDelta  float64 `mapstructure:"ANOMALY_BMI_CONFLICT_DELTA"`
	CholConflictDelta float64 `mapstructure:"ANOMALY_CHOL_CONFLICT_DELTA"`
	A1CConflictDelta  float64 `mapstructure:"ANOMALY_A1C_CONFLICT_DELTA"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SUMMARY_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("SUMMARY_TIMEOUT_SECONDS", 20)
	v.SetDefault("ANOMALY_BMI_CONFLICT_DELTA", 3.0)
	v.SetDefault("ANOMALY_CHOL_CONFLICT_DELTA", 60.0)
	v.SetDefault("ANOMALY_A1C_CONFLICT_DELTA", 1.0)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ANTHROPIC_API_KEY")
	v.BindEnv("SUMMARY_MODEL")
	v.BindEnv("SUMMARY_TIMEOUT_SECONDS")
	v.BindEnv("ANOMALY_BMI_CONFLICT_DELTA")
	v.BindEnv("ANOMALY_CHOL_CONFLICT_DELTA")
	v.BindEnv("ANOMALY_A1C_CONFLICT_DELTA")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is internally consistent.
// Conflict tolerances must be positive; a zero tolerance would flag every
// pair of same-date readings from different hospitals.
func (c *Config) Validate() error {
	if c.BMIConflictDelta <= 0 {
		return fmt.Errorf("ANOMALY_BMI_CONFLICT_DELTA must be > 0, got %v", c.BMIConflictDelta)
	}
	if c.CholConflictDelta <= 0 {
		return fmt.Errorf("ANOMALY_CHOL_CONFLICT_DELTA must be > 0, got %v", c.CholConflictDelta)
	}
	if c.A1CConflictDelta <= 0 {
		return fmt.Errorf("ANOMALY_A1C_CONFLICT_DELTA must be > 0, got %v", c.A1CConflictDelta)
	}
	if c.SummaryTimeout <= 0 {
		return fmt.Errorf("SUMMARY_TIMEOUT_SECONDS must be > 0, got %d", c.SummaryTimeout)
	}
	return nil
}
