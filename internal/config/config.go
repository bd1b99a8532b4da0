package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvAddr           = "WASTENOT_ADDR"
	EnvAlertThreshold = "WASTENOT_ALERT_THRESHOLD_DAYS"
	EnvSessionTTL     = "WASTENOT_SESSION_TTL"
	EnvKafkaBrokers   = "WASTENOT_KAFKA_BROKERS"
	EnvKafkaTopic     = "WASTENOT_KAFKA_TOPIC"
)

type Config struct {
	Addr               string
	AlertThresholdDays int
	SessionTTL         time.Duration
	KafkaBrokers       []string // empty disables event publication
	KafkaTopic         string
}

func Default() Config {
	return Config{
		Addr:               ":8080",
		AlertThresholdDays: 3,
		SessionTTL:         12 * time.Hour,
		KafkaTopic:         "item_added",
	}
}

// Load reads the given dotenv files (".env" when none are given) into the
// process environment, then builds a Config from it. Missing dotenv files are
// ignored; variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from defaults overridden by environment variables.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvAlertThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvAlertThreshold, err)
		}
		cfg.AlertThresholdDays = n
	}
	if v := os.Getenv(EnvSessionTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if v := os.Getenv(EnvKafkaTopic); v != "" {
		cfg.KafkaTopic = v
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}

// EventsEnabled reports whether ItemAdded events should be published.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
