package stamper

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config contains all configuration options for the stamping engine
type Config struct {
	// CacheMaxSize is the maximum number of prepared templates to cache.
	// 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// MaxRepeatDepth bounds how deep repeated fragments may nest.
	MaxRepeatDepth int
	// LenientPlaceholders leaves a failing ${...} expression in the output
	// text instead of aborting the stamping run.
	LenientPlaceholders bool
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		CacheTTL:       0,
		LogLevel:       "info",
		MaxRepeatDepth: 50,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// STAMPER_CACHE_MAX_SIZE
	if val := os.Getenv("STAMPER_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// STAMPER_CACHE_TTL
	if val := os.Getenv("STAMPER_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// STAMPER_LOG_LEVEL
	if val := os.Getenv("STAMPER_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// STAMPER_MAX_REPEAT_DEPTH
	if val := os.Getenv("STAMPER_MAX_REPEAT_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRepeatDepth = depth
		}
	}

	// STAMPER_LENIENT_PLACEHOLDERS
	if val := os.Getenv("STAMPER_LENIENT_PLACEHOLDERS"); val != "" {
		config.LenientPlaceholders = parseBool(val)
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.CacheMaxSize == 0 {
		config.CacheMaxSize = defaults.CacheMaxSize
	}

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.MaxRepeatDepth == 0 {
		config.MaxRepeatDepth = defaults.MaxRepeatDepth
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxRepeatDepth <= 0 {
		return errors.New("max repeat depth must be positive")
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
