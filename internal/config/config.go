package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
// Every section has usable defaults, so an empty file (or no file) is valid.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	FarmAPI      FarmAPIConfig      `yaml:"farm_api"`
	Logging      LoggingConfig      `yaml:"logging"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Cache        CacheConfig        `yaml:"cache"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"` // "production" switches gin to release mode
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type FarmAPIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts uint          `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	OutputFile string `yaml:"output_file"`
}

type OptimizationConfig struct {
	// OptimalMatchTolerance > 0 tags the OPTIMAL row by |profit - best| < tolerance
	// instead of exact equality with the farm API's best_profit.
	OptimalMatchTolerance float64       `yaml:"optimal_match_tolerance"`
	RunTTL                time.Duration `yaml:"run_ttl"`
	MaxRuns               int           `yaml:"max_runs"`
	SweetSpotLimit        int           `yaml:"sweet_spot_limit"`
}

type CacheConfig struct {
	SitesTTL  time.Duration `yaml:"sites_ttl"`
	SitesSize int           `yaml:"sites_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			StaticDir:      "./web/dist",
			AllowedOrigins: []string{"*"},
		},
		FarmAPI: FarmAPIConfig{
			BaseURL:       "http://localhost:8000/api/v1",
			Timeout:       60 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Optimization: OptimizationConfig{
			RunTTL:         time.Hour,
			MaxRuns:        64,
			SweetSpotLimit: 10,
		},
		Cache: CacheConfig{
			SitesTTL:  time.Minute,
			SitesSize: 16,
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	c.ApplyEnv(os.Getenv)
	return c, nil
}

// ApplyEnv overlays the environment variables the API has always honored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("API_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("API_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := getenv("STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("FARM_API_BASE_URL"); v != "" {
		c.FarmAPI.BaseURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.FarmAPI.BaseURL == "" {
		return errors.New("farm_api.base_url is required")
	}
	u, err := url.Parse(c.FarmAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("farm_api.base_url %q is not an absolute URL", c.FarmAPI.BaseURL)
	}
	if c.FarmAPI.Timeout <= 0 {
		return errors.New("farm_api.timeout must be > 0")
	}
	if c.FarmAPI.RetryAttempts == 0 {
		return errors.New("farm_api.retry_attempts must be >= 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf("logging.level %q is invalid", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Newf("logging.format %q is invalid", c.Logging.Format)
	}
	if c.Optimization.OptimalMatchTolerance < 0 {
		return errors.New("optimization.optimal_match_tolerance must be >= 0")
	}
	if c.Optimization.MaxRuns <= 0 {
		return errors.New("optimization.max_runs must be > 0")
	}
	if c.Cache.SitesSize <= 0 {
		return errors.New("cache.sites_size must be > 0")
	}
	return nil
}

// Production reports whether the server runs in release mode.
func (c *Config) Production() bool {
	return c.Server.Env == "production"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
