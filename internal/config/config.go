package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override the file.
const (
	EnvRounds    = "AUCTION_ROUNDS"
	EnvSeed      = "AUCTION_SEED"
	EnvLogLevel  = "AUCTION_LOG_LEVEL"
	EnvStorePath = "AUCTION_STORE_PATH"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`         // Optional, console only when empty
	MaxSizeMB  int    `yaml:"max_size_mb"`  // Rotate after this many megabytes
	MaxBackups int    `yaml:"max_backups"`  // Rotated files to keep
	MaxAgeDays int    `yaml:"max_age_days"` // Days to keep rotated files
	Compress   bool   `yaml:"compress"`
}

type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file, persistence is off when empty
}

// Config describes one simulation run.
type Config struct {
	Rounds          int     `yaml:"rounds"`
	Buyers          int     `yaml:"buyers"`
	Sellers         int     `yaml:"sellers"`
	Units           int     `yaml:"units"`
	BuyerBaseValue  float64 `yaml:"buyer_base_value"`
	SellerBaseValue float64 `yaml:"seller_base_value"`
	Spread          float64 `yaml:"spread"`
	InitialCash     float64 `yaml:"initial_cash"`
	Seed            int64   `yaml:"seed"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
}

func Default() Config {
	return Config{
		Rounds:          5,
		Buyers:          5,
		Sellers:         5,
		Units:           5,
		BuyerBaseValue:  100,
		SellerBaseValue: 80,
		Spread:          0.5,
		InitialCash:     1000,
		Seed:            1,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads defaults, then the YAML file at path (if any), then a .env file
// in the working directory (if any), then AUCTION_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvRounds); ok {
		rounds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvRounds, v, err)
		}
		c.Rounds = rounds
	}
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvSeed, v, err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvStorePath); ok {
		c.Store.Path = v
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Rounds <= 0:
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	case c.Buyers <= 0 || c.Sellers <= 0:
		return fmt.Errorf("%w: need at least one buyer and one seller, got %d and %d", ErrInvalidConfig, c.Buyers, c.Sellers)
	case c.Units <= 0:
		return fmt.Errorf("%w: units must be positive, got %d", ErrInvalidConfig, c.Units)
	case c.Spread < 0 || c.Spread >= 1:
		return fmt.Errorf("%w: spread must be in [0, 1), got %v", ErrInvalidConfig, c.Spread)
	case c.BuyerBaseValue < 0 || c.SellerBaseValue < 0:
		return fmt.Errorf("%w: base values must not be negative", ErrInvalidConfig)
	case c.InitialCash < 0:
		return fmt.Errorf("%w: initial cash must not be negative", ErrInvalidConfig)
	}
	return nil
}
