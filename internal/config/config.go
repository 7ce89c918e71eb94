// Package config loads service configuration. Precedence, lowest to
// highest: built-in defaults, an optional YAML file, environment
// variables (after loading the first .env file found). Command flags
// layer on top in each binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"transient-filter/internal/discovery"
)

// Config holds everything the filter service needs at startup.
type Config struct {
	Survey string `yaml:"survey"` // survey whose alerts this instance filters
	TestID string `yaml:"testid"` // suffix isolating test resources, empty in production

	Kafka      KafkaConfig `yaml:"kafka"`
	WSEndpoint string      `yaml:"ws_endpoint"` // broker firehose WebSocket URL

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"`

	MetricsAddr string        `yaml:"metrics_addr"`
	SeenTTL     time.Duration `yaml:"seen_ttl"` // how long processed alert IDs are remembered

	Clipping ClippingConfig `yaml:"clipping"`
	Engine   EngineConfig   `yaml:"engine"`
}

// KafkaConfig holds the alert stream transport settings.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	AlertsTopic string   `yaml:"alerts_topic"` // empty derives {survey}-alerts[-{testid}]
	GroupID     string   `yaml:"group_id"`
}

// ClippingConfig mirrors discovery.ClippingConfig with YAML tags.
type ClippingConfig struct {
	Sigma                           float64 `yaml:"sigma"`
	MaxIters                        int     `yaml:"max_iters"`
	CropRadiusPixels                int     `yaml:"crop_radius_pixels"`
	MaxPixelsClippedForDetection    int     `yaml:"max_pixels_clipped_for_detection"`
	MinPixelsClippedForNonDetection int     `yaml:"min_pixels_clipped_for_non_detection"`
}

// EngineConfig mirrors the engine policy switches with YAML tags.
type EngineConfig struct {
	ExcludeSolarSystemObjects bool `yaml:"exclude_solar_system_objects"`
	RequireConfirmedPair      bool `yaml:"require_confirmed_pair"`
}

// Default returns the built-in configuration.
func Default() *Config {
	clip := discovery.DefaultClippingConfig()
	return &Config{
		Survey:      "ztf",
		MetricsAddr: ":9090",
		SeenTTL:     7 * 24 * time.Hour,
		Kafka: KafkaConfig{
			GroupID: "transient-filter",
		},
		Clipping: ClippingConfig{
			Sigma:                           clip.Sigma,
			MaxIters:                        clip.MaxIters,
			CropRadiusPixels:                clip.CropRadiusPixels,
			MaxPixelsClippedForDetection:    clip.MaxPixelsClippedForDetection,
			MinPixelsClippedForNonDetection: clip.MinPixelsClippedForNonDetection,
		},
		Engine: EngineConfig{
			ExcludeSolarSystemObjects: true,
			RequireConfirmedPair:      false,
		},
	}
}

// Load builds the configuration. yamlPath may be empty; a missing explicit
// file is an error, a missing default file is not.
func Load(yamlPath string) (*Config, error) {
	loadDotEnv()

	cfg := Default()

	if yamlPath != "" {
		if err := cfg.applyYAML(yamlPath); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("transient-filter.yml"); err == nil {
		if err := cfg.applyYAML("transient-filter.yml"); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads the first .env file found. Absence is normal; the
// process environment is used as is.
func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// applyYAML overlays settings from a YAML file.
func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays settings from environment variables.
func (c *Config) applyEnv() {
	c.Survey = getEnvOrDefault("SURVEY", c.Survey)
	c.TestID = getEnvOrDefault("TESTID", c.TestID)
	c.WSEndpoint = getEnvOrDefault("WS_ENDPOINT", c.WSEndpoint)
	c.PostgresDSN = getEnvOrDefault("POSTGRES_DSN", c.PostgresDSN)
	c.ClickhouseDSN = getEnvOrDefault("CLICKHOUSE_DSN", c.ClickhouseDSN)
	c.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.MetricsAddr = getEnvOrDefault("METRICS_ADDR", c.MetricsAddr)
	c.Kafka.AlertsTopic = getEnvOrDefault("ALERTS_TOPIC", c.Kafka.AlertsTopic)
	c.Kafka.GroupID = getEnvOrDefault("GROUP_ID", c.Kafka.GroupID)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	if ttl := os.Getenv("SEEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			c.SeenTTL = d
		}
	}
	if sigma := os.Getenv("CLIP_SIGMA"); sigma != "" {
		if v, err := strconv.ParseFloat(sigma, 64); err == nil {
			c.Clipping.Sigma = v
		}
	}
}

// Validate checks the configuration for internal consistency. Transport
// and store addresses are optional here because each binary requires only
// the subset it wires.
func (c *Config) Validate() error {
	if c.Survey == "" {
		return fmt.Errorf("survey is required")
	}
	if c.SeenTTL <= 0 {
		return fmt.Errorf("seen ttl must be positive, got %v", c.SeenTTL)
	}
	if err := c.ClippingConfig().Validate(); err != nil {
		return fmt.Errorf("clipping config: %w", err)
	}
	return nil
}

// ClippingConfig converts the YAML-tagged thresholds into the engine type.
func (c *Config) ClippingConfig() discovery.ClippingConfig {
	return discovery.ClippingConfig{
		Sigma:                           c.Clipping.Sigma,
		MaxIters:                        c.Clipping.MaxIters,
		CropRadiusPixels:                c.Clipping.CropRadiusPixels,
		MaxPixelsClippedForDetection:    c.Clipping.MaxPixelsClippedForDetection,
		MinPixelsClippedForNonDetection: c.Clipping.MinPixelsClippedForNonDetection,
	}
}

// EngineConfig assembles the full engine configuration.
func (c *Config) EngineConfig() discovery.EngineConfig {
	return discovery.EngineConfig{
		Clipping:                  c.ClippingConfig(),
		ExcludeSolarSystemObjects: c.Engine.ExcludeSolarSystemObjects,
		RequireConfirmedPair:      c.Engine.RequireConfirmedPair,
	}
}

// getEnvOrDefault returns the environment value or a fallback.
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// splitList splits a comma-separated list, trimming whitespace.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
