package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"ranked-ladder/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	DBPath        string
	ServerPort    string
	LogLevel      string
	StoreBackend  string
	TierTablePath string

	RewardWebhookURL string

	KFactor           float64
	DemotionMargin    float64
	BandMargin        float64
	MaxRetries        int
	RetryBaseDelay    time.Duration
	QualificationTier string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "ladder.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		TierTablePath:     getEnv("TIER_TABLE_PATH", ""),
		RewardWebhookURL:  getEnv("REWARD_WEBHOOK_URL", ""),
		QualificationTier: getEnv("QUALIFICATION_TIER", "platinum"),
	}

	var err error
	if cfg.KFactor, err = getEnvFloat("K_FACTOR", 60); err != nil {
		return nil, err
	}
	if cfg.DemotionMargin, err = getEnvFloat("DEMOTION_MARGIN", 10); err != nil {
		return nil, err
	}
	if cfg.BandMargin, err = getEnvFloat("BAND_MARGIN", 10); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvInt("MAX_RETRIES", constants.MaxApplyRetries); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getEnvDuration("RETRY_BASE_DELAY", constants.DefaultRetryBaseWait); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("store_backend", cfg.StoreBackend).
		Str("tier_table", cfg.TierTablePath).
		Bool("reward_webhook", cfg.RewardWebhookURL != "").
		Float64("demotion_margin", cfg.DemotionMargin).
		Float64("band_margin", cfg.BandMargin).
		Int("max_retries", cfg.MaxRetries).
		Dur("retry_base_delay", cfg.RetryBaseDelay).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendMemory, c.StoreBackend)
	}
	if math.IsNaN(c.KFactor) || math.IsInf(c.KFactor, 0) {
		return fmt.Errorf("K_FACTOR must be a finite number")
	}
	if math.IsNaN(c.DemotionMargin) || math.IsInf(c.DemotionMargin, 0) ||
		math.IsNaN(c.BandMargin) || math.IsInf(c.BandMargin, 0) {
		return fmt.Errorf("DEMOTION_MARGIN and BAND_MARGIN must be finite numbers")
	}
	if c.KFactor <= 0 {
		return fmt.Errorf("K_FACTOR must be positive")
	}
	if c.DemotionMargin < 0 || c.BandMargin < 0 {
		return fmt.Errorf("DEMOTION_MARGIN and BAND_MARGIN must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return i, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
