package app

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bincyber/beesly/pkg/jwtx"
)

// Rate-limit strategies and counter-store schemes the service accepts.
const (
	StrategyFixedWindow  = "fixed-window"
	StrategyMovingWindow = "moving-window"

	StorageSchemeMemory = "memory"
	StorageSchemeSQLite = "sqlite"
)

type Config struct {
	Dev bool // Development mode: request logging and permissive CORS

	PAMService   string // PAM service name to authenticate against (default: login)
	PAMConfigDir string // Directory holding PAM service definitions (default: /etc/pam.d)
	IDPath       string // Resolved path of the id binary, filled in by Validate

	JWTMasterKey      string        // Master key for token signing; empty disables issuance
	JWTAlgorithm      string        // Signing algorithm (HS256, HS384, HS512) (default: HS256)
	JWTValidityPeriod time.Duration // Token lifetime (default: 900s)

	RateLimitEnabled    bool   // Whether rate limiting is enforced (default: true)
	RateLimitStrategy   string // fixed-window or moving-window (default: fixed-window)
	RateLimitStorageURL string // memory:// or sqlite://<path> (default: memory://)

	StatsdHost string // Statsd collector host (default: localhost)
	StatsdPort int    // Statsd collector UDP port (default: 8125)

	Env                  string        // Environment (dev, staging, prod) (default: prod)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Rate-counter pruning interval (default: 5m)
	AuthTimeout          time.Duration // Bound on one PAM conversation (default: 5s)
}

func LoadConfig() Config {
	cfg := Config{
		Dev: getEnvBoolOrDefault("DEV", false),

		PAMService:   getEnvOrDefault("PAM_SERVICE", "login"),
		PAMConfigDir: getEnvOrDefault("PAM_CONFIG_DIR", "/etc/pam.d"),

		JWTMasterKey: os.Getenv("JWT_MASTER_KEY"),
		JWTAlgorithm: getEnvOrDefault("JWT_ALGORITHM", "HS256"),

		RateLimitEnabled:    getEnvBoolOrDefault("RATELIMIT_ENABLED", true),
		RateLimitStrategy:   getEnvOrDefault("RATELIMIT_STRATEGY", StrategyFixedWindow),
		RateLimitStorageURL: getEnvOrDefault("RATELIMIT_STORAGE_URL", "memory://"),

		StatsdHost: getEnvOrDefault("STATSD_HOST", "localhost"),
		StatsdPort: getEnvIntOrDefault("STATSD_PORT", 8125),

		Env:                  getEnvOrDefault("ENV", "prod"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
		AuthTimeout:          getEnvDurationOrDefault("AUTH_TIMEOUT", 5*time.Second),
	}

	// The validity period is given in whole seconds; anything unparseable
	// falls back to the default rather than failing startup.
	cfg.JWTValidityPeriod = 900 * time.Second
	if v := os.Getenv("JWT_VALIDITY_PERIOD"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.JWTValidityPeriod = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}

// TokensEnabled reports whether a master key was provided.
func (c *Config) TokensEnabled() bool {
	return c.JWTMasterKey != ""
}

// Algorithm returns the validated signing algorithm.
func (c *Config) Algorithm() jwtx.Algorithm {
	alg, ok := jwtx.ParseAlgorithm(c.JWTAlgorithm)
	if !ok {
		return jwtx.AlgHS256
	}
	return alg
}

// StorageScheme splits the counter-store URL into scheme and location.
func (c *Config) StorageScheme() (scheme, location string) {
	scheme, location, found := strings.Cut(c.RateLimitStorageURL, "://")
	if !found {
		return "", c.RateLimitStorageURL
	}
	return scheme, location
}

// Validate checks the configuration, normalizing recoverable problems
// (logging them) and returning an error for the fatal ones.
func (c *Config) Validate(logger *slog.Logger) error {
	idPath, err := exec.LookPath("id")
	if err != nil {
		return fmt.Errorf("failed to locate required dependency 'id': %w", err)
	}
	c.IDPath = idPath

	pamFile := filepath.Join(c.PAMConfigDir, c.PAMService)
	if _, err := os.Stat(pamFile); err != nil {
		return fmt.Errorf("invalid value provided for PAM_SERVICE: the pam configuration file %q does not exist", pamFile)
	}

	if c.TokensEnabled() {
		if len(c.JWTMasterKey) < 10 || len(c.JWTMasterKey) > 64 {
			return fmt.Errorf("invalid value provided for JWT_MASTER_KEY: must be between 10 - 64 characters")
		}

		if _, ok := jwtx.ParseAlgorithm(c.JWTAlgorithm); !ok {
			logger.Error("Invalid value provided for JWT_ALGORITHM. Defaulting to HS256")
			c.JWTAlgorithm = string(jwtx.AlgHS256)
		}
	}

	if c.RateLimitEnabled {
		switch c.RateLimitStrategy {
		case StrategyFixedWindow, StrategyMovingWindow:
		default:
			return fmt.Errorf("invalid value provided for RATELIMIT_STRATEGY: %q", c.RateLimitStrategy)
		}

		scheme, _ := c.StorageScheme()
		switch scheme {
		case StorageSchemeMemory, StorageSchemeSQLite:
		default:
			return fmt.Errorf("invalid value provided for RATELIMIT_STORAGE_URL: unsupported scheme %q", scheme)
		}

		// A shared counter store only supports discrete windows.
		if c.RateLimitStrategy == StrategyMovingWindow && scheme == StorageSchemeSQLite {
			return fmt.Errorf("invalid value provided for RATELIMIT_STORAGE_URL: moving-window can't be used with sqlite")
		}
	}

	if c.StatsdHost != "localhost" {
		if net.ParseIP(c.StatsdHost) == nil {
			if _, err := net.LookupHost(c.StatsdHost); err != nil {
				logger.Error("Invalid value provided for STATSD_HOST. Defaulting to localhost")
				c.StatsdHost = "localhost"
			}
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
