package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"pairchat/internal/relay"
	"pairchat/internal/services/identity"
)

// Environment variables read by LoadConfig.
const (
	EnvRelayURL   = "PAIRCHAT_RELAY"
	EnvHome       = "PAIRCHAT_HOME"
	EnvLogLevel   = "PAIRCHAT_LOG_LEVEL"
	EnvLogJSON    = "PAIRCHAT_LOG_JSON"
	EnvMinEntropy = "PAIRCHAT_MIN_ENTROPY"
	EnvListenAddr = "PAIRCHAT_RELAY_ADDR"
	EnvRateLimit  = "PAIRCHAT_RELAY_RATE"
	EnvRateBurst  = "PAIRCHAT_RELAY_BURST"
)

// Config holds runtime options for both commands.
type Config struct {
	Home       string  // key store directory, e.g. $HOME/.pairchat
	RelayURL   string  // relay base URL, e.g. http://127.0.0.1:8080
	ListenAddr string  // relay listen address
	RateLimit  float64 // relay frames per second per connection
	RateBurst  int
	MinEntropy float64 // password entropy bits; 0 disables the check
	LogLevel   string
	LogJSON    bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	home := ".pairchat"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".pairchat")
	}
	return Config{
		Home:       home,
		RelayURL:   "http://127.0.0.1:8080",
		ListenAddr: ":8080",
		RateLimit:  relay.DefaultRate,
		RateBurst:  relay.DefaultBurst,
		MinEntropy: identity.DefaultMinEntropyBits,
		LogLevel:   zerolog.InfoLevel.String(),
	}
}

// LoadConfig applies envFile (if it exists) and then the process
// environment over DefaultConfig. Variables already set in the environment
// take precedence over the file. An empty envFile means ".env".
func LoadConfig(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := DefaultConfig()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	str(EnvHome, &cfg.Home)
	str(EnvRelayURL, &cfg.RelayURL)
	str(EnvListenAddr, &cfg.ListenAddr)
	str(EnvLogLevel, &cfg.LogLevel)
	num(EnvMinEntropy, &cfg.MinEntropy)
	num(EnvRateLimit, &cfg.RateLimit)
	if v, ok := os.LookupEnv(EnvRateBurst); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvRateBurst, err))
		} else {
			cfg.RateBurst = n
		}
	}
	if v, ok := os.LookupEnv(EnvLogJSON); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogJSON, err))
		} else {
			cfg.LogJSON = b
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Home) == "" {
		errs = append(errs, errors.New("home directory must be set"))
	}
	if u, err := url.Parse(c.RelayURL); err != nil {
		errs = append(errs, fmt.Errorf("relay url: %w", err))
	} else {
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			errs = append(errs, fmt.Errorf("relay url %q: scheme must be http, https, ws or wss", c.RelayURL))
		}
		if u.Host == "" {
			errs = append(errs, fmt.Errorf("relay url %q: missing host", c.RelayURL))
		}
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %v", c.RateLimit))
	}
	if c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate burst must be at least 1, got %d", c.RateBurst))
	}
	if c.MinEntropy < 0 {
		errs = append(errs, fmt.Errorf("min entropy must not be negative, got %v", c.MinEntropy))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}
