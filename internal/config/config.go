package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied by ApplyDefaults.
const (
	DefaultBaseURI   = "https://api.netflexapp.com/v1/"
	DefaultKeyPrefix = "docquery:"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the docquery client, cache and mock server configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Query   QueryConfig   `yaml:"query"`
	Mock    MockConfig    `yaml:"mock"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// APIConfig holds content API connection settings.
type APIConfig struct {
	BaseURI        string  `yaml:"base_uri"`
	PublicKey      string  `yaml:"public_key"`
	PrivateKey     string  `yaml:"private_key"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Timeout returns the request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = until invalidated
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// QueryConfig holds default paging settings.
type QueryConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	PageSize  int `yaml:"page_size"`
}

// MockConfig holds mock API server settings.
type MockConfig struct {
	Port            int      `yaml:"port"`
	Fixtures        string   `yaml:"fixtures"`
	APIKeys         []string `yaml:"api_keys"` // "public:private" pairs; empty disables auth
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, substituting ${VAR} references.
func Parse(data []byte) (Config, error) {
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
	if c.API.BaseURI == "" {
		c.API.BaseURI = DefaultBaseURI
	}
	if !strings.HasSuffix(c.API.BaseURI, "/") {
		c.API.BaseURI += "/"
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 10
	}
	if c.API.RateLimitBurst <= 0 {
		c.API.RateLimitBurst = 1
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultKeyPrefix
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Query.ChunkSize <= 0 {
		c.Query.ChunkSize = 100
	}
	if c.Query.PageSize <= 0 {
		c.Query.PageSize = 100
	}
	if c.Mock.Port <= 0 {
		c.Mock.Port = 8089
	}
	if c.Mock.ShutdownSec <= 0 {
		c.Mock.ShutdownSec = 10
	}
	if c.Mock.ReadTimeoutSec <= 0 {
		c.Mock.ReadTimeoutSec = 10
	}
	if c.Mock.WriteTimeoutSec <= 0 {
		c.Mock.WriteTimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_uri must be an absolute URL, got %q", c.API.BaseURI)
	}
	if (c.API.PublicKey == "") != (c.API.PrivateKey == "") {
		return fmt.Errorf("api.public_key and api.private_key must be set together")
	}
	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("api.rate_limit_rps must not be negative, got %v", c.API.RateLimitRPS)
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis, got %q", c.Cache.Driver)
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
	}
	if c.Query.ChunkSize > 10000 || c.Query.PageSize > 10000 {
		return fmt.Errorf("query.chunk_size and query.page_size must not exceed 10000")
	}
	if c.Mock.Port > 65535 {
		return fmt.Errorf("mock.port must be between 1 and 65535, got %d", c.Mock.Port)
	}
	for _, k := range c.Mock.APIKeys {
		if !strings.Contains(k, ":") {
			return fmt.Errorf("mock.api_keys entries must be \"public:private\", got %q", k)
		}
	}
	return nil
}

// HasCredentials reports whether both API keys are configured.
func (c *Config) HasCredentials() bool {
	return c.API.PublicKey != "" && c.API.PrivateKey != ""
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
