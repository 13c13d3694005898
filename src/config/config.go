package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns the configuration used when no YAML file overrides a value.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "fx-agent",
		Host:     "0.0.0.0",
		Port:     5000,
		LogLevel: "INFO",
		GrpcPort: 50051,
		Pairs:    []string{"USDJPY"},
		Paths: models.MPathsConfig{
			DataRoot: "data",
			ModelDir: "models",
		},
		Ticks: models.MTicksConfig{
			PriceScale: map[string]int64{},
		},
		Bars: models.MBarsConfig{
			Timeframes: []string{"M5", "M15", "H1", "H4", "D1", "W1", "1M", "6M"},
		},
		Features: models.MFeaturesConfig{
			Timeframe:    "M5",
			EventWindows: []string{"15T", "1H", "6H", "24H", "72H", "168H"},
			Sessions:     true,
		},
		Decision: models.MDecisionConfig{
			RSIOversold:      30,
			RSIOverbought:    70,
			MABand:           0.01,
			MacroSentiment:   0.5,
			ScoreThreshold:   0.3,
			VolQuantile:      0.95,
			SpreadMultiplier: 1.5,
			MacroCountMedium: 3,
			MinHistory:       20,
		},
		Training: models.MTrainingConfig{
			ForwardBars:    60,
			BuyThreshold:   0.001,
			SellThreshold:  -0.001,
			Splits:         3,
			MinRows:        100,
			Epochs:         300,
			LearningRate:   0.1,
			L2:             0.001,
			RetrainMinDays: 7,
			MaxAgeDays:     0,
		},
		Storage: models.MStorageConfig{
			DBType: "sqlite",
		},
		Cache: models.MCacheConfig{
			TTLSeconds:  60,
			HistorySize: 100,
		},
		Network: models.MNetworkConfig{
			BaseURL:        "https://datafeed.dukascopy.com/datafeed",
			RequestTimeout: 60,
			MaxRetries:     2,
			UserAgent:      "fx-agent/1.0",
		},
	}}
}

// -----------------------------------------------------------------------------

// NewConfig creates a Config from a YAML file layered over Default().
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal on top of the defaults
	config := Default()
	if err := yaml.Unmarshal(data, config.MConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError(err, "config validation failed")
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d", c.Port)
	}
	if c.Paths.DataRoot == "" {
		return fmt.Errorf("data root cannot be empty")
	}
	if c.Paths.ModelDir == "" {
		return fmt.Errorf("model dir cannot be empty")
	}
	for pair, scale := range c.Ticks.PriceScale {
		if scale <= 0 {
			return fmt.Errorf("price scale for %s must be positive", pair)
		}
	}

	for i, w := range c.Features.EventWindows {
		if _, err := ParseWindow(w); err != nil {
			return fmt.Errorf("event window %d: %w", i, err)
		}
	}

	d := c.Decision
	if d.RSIOversold >= d.RSIOverbought {
		return fmt.Errorf("rsi_oversold must be below rsi_overbought")
	}
	if d.VolQuantile <= 0 || d.VolQuantile >= 1 {
		return fmt.Errorf("vol_quantile must be in (0,1)")
	}

	t := c.Training
	if t.ForwardBars <= 0 {
		return fmt.Errorf("forward bars must be greater than 0")
	}
	if t.Splits < 2 {
		return fmt.Errorf("training splits must be at least 2")
	}
	if t.BuyThreshold <= t.SellThreshold {
		return fmt.Errorf("buy threshold must exceed sell threshold")
	}

	switch c.Storage.DBType {
	case "sqlite":
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}

	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides selected values from the given lookup (os.LookupEnv in binaries).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("FX_DATA_ROOT"); ok && v != "" {
		c.Paths.DataRoot = v
	}
	if v, ok := lookup("FX_MODEL_DIR"); ok && v != "" {
		c.Paths.ModelDir = v
	}
	if v, ok := lookup("FX_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("FX_REDIS_ADDR"); ok {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup("FX_PG_DSN"); ok && v != "" {
		c.Storage.DBType = "postgres"
		c.Storage.DBConnectionString = v
	}
	if v, ok := lookup("FX_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FX_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	return c.Validate()
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// PriceScale returns the tick price divisor for a pair.
func PriceScale(cfg *models.MConfig, pair string) int64 {
	pair = strings.ToUpper(pair)
	if s, ok := cfg.Ticks.PriceScale[pair]; ok && s > 0 {
		return s
	}
	if strings.HasSuffix(pair, "JPY") {
		return 1000
	}
	return 100000
}

// -----------------------------------------------------------------------------

// ParseWindow parses an event window label such as "15T", "1H", "24H" or "7D".
func ParseWindow(label string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid window %q", label)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid window %q", label)
	}

	switch s[len(s)-1] {
	case 'T':
		return time.Duration(n) * time.Minute, nil
	case 'H':
		return time.Duration(n) * time.Hour, nil
	case 'D':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid window unit in %q", label)
}
