package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the pensieve API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	VectorIndex  VectorIndexConfig  `yaml:"vector_index"`
	ContentStore ContentStoreConfig `yaml:"content_store"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorIndexConfig holds vector index connection settings.
type VectorIndexConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ContentStoreConfig holds authoritative content database settings.
type ContentStoreConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// RetrievalConfig holds retrieval pipeline settings.
type RetrievalConfig struct {
	ScoreThreshold float64 `yaml:"score_threshold"`
	MaxResults     int     `yaml:"max_results"`
	RecentDefault  int     `yaml:"recent_default"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.VectorIndex.ReadinessTimeout <= 0 {
		c.VectorIndex.ReadinessTimeout = 10
	}
	if c.ContentStore.MaxConns <= 0 {
		c.ContentStore.MaxConns = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "intfloat/multilingual-e5-large"
	}
	if c.Retrieval.ScoreThreshold <= 0 {
		c.Retrieval.ScoreThreshold = 0.5
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 100
	}
	if c.Retrieval.RecentDefault <= 0 {
		c.Retrieval.RecentDefault = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.VectorIndex.Addrs) == 0 {
		return fmt.Errorf("vector_index.addrs is required")
	}
	if c.ContentStore.DSN == "" {
		return fmt.Errorf("content_store.dsn is required")
	}
	if c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval.score_threshold must be at most 1, got %g", c.Retrieval.ScoreThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
