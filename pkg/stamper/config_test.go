package stamper

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CacheMaxSize != 100 {
		t.Errorf("DefaultConfig CacheMaxSize = %d, want 100", config.CacheMaxSize)
	}

	if config.CacheTTL != 0 {
		t.Errorf("DefaultConfig CacheTTL = %v, want 0", config.CacheTTL)
	}

	if config.LogLevel != "info" {
		t.Errorf("DefaultConfig LogLevel = %s, want info", config.LogLevel)
	}

	if config.MaxRepeatDepth != 50 {
		t.Errorf("DefaultConfig MaxRepeatDepth = %d, want 50", config.MaxRepeatDepth)
	}

	if config.LenientPlaceholders {
		t.Errorf("DefaultConfig LenientPlaceholders = true, want false")
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *Config)
	}{
		{
			name: "cache max size",
			envVars: map[string]string{
				"STAMPER_CACHE_MAX_SIZE": "50",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 50 {
					t.Errorf("CacheMaxSize = %d, want 50", config.CacheMaxSize)
				}
			},
		},
		{
			name: "cache TTL",
			envVars: map[string]string{
				"STAMPER_CACHE_TTL": "5m",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheTTL != 5*time.Minute {
					t.Errorf("CacheTTL = %v, want 5m", config.CacheTTL)
				}
			},
		},
		{
			name: "log level",
			envVars: map[string]string{
				"STAMPER_LOG_LEVEL": "debug",
			},
			check: func(t *testing.T, config *Config) {
				if config.LogLevel != "debug" {
					t.Errorf("LogLevel = %s, want debug", config.LogLevel)
				}
			},
		},
		{
			name: "max repeat depth",
			envVars: map[string]string{
				"STAMPER_MAX_REPEAT_DEPTH": "200",
			},
			check: func(t *testing.T, config *Config) {
				if config.MaxRepeatDepth != 200 {
					t.Errorf("MaxRepeatDepth = %d, want 200", config.MaxRepeatDepth)
				}
			},
		},
		{
			name: "lenient placeholders",
			envVars: map[string]string{
				"STAMPER_LENIENT_PLACEHOLDERS": "true",
			},
			check: func(t *testing.T, config *Config) {
				if !config.LenientPlaceholders {
					t.Errorf("LenientPlaceholders = false, want true")
				}
			},
		},
		{
			name: "multiple environment variables",
			envVars: map[string]string{
				"STAMPER_CACHE_MAX_SIZE":       "25",
				"STAMPER_LOG_LEVEL":            "error",
				"STAMPER_LENIENT_PLACEHOLDERS": "yes",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 25 {
					t.Errorf("CacheMaxSize = %d, want 25", config.CacheMaxSize)
				}
				if config.LogLevel != "error" {
					t.Errorf("LogLevel = %s, want error", config.LogLevel)
				}
				if !config.LenientPlaceholders {
					t.Errorf("LenientPlaceholders = false, want true")
				}
			},
		},
		{
			name: "invalid cache max size keeps default",
			envVars: map[string]string{
				"STAMPER_CACHE_MAX_SIZE": "invalid",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 100 {
					t.Errorf("CacheMaxSize = %d, want 100 (default)", config.CacheMaxSize)
				}
			},
		},
		{
			name: "invalid cache TTL keeps default",
			envVars: map[string]string{
				"STAMPER_CACHE_TTL": "invalid",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheTTL != 0 {
					t.Errorf("CacheTTL = %v, want 0 (default)", config.CacheTTL)
				}
			},
		},
		{
			name: "invalid repeat depth keeps default",
			envVars: map[string]string{
				"STAMPER_MAX_REPEAT_DEPTH": "not-a-number",
			},
			check: func(t *testing.T, config *Config) {
				if config.MaxRepeatDepth != 50 {
					t.Errorf("MaxRepeatDepth = %d, want 50 (default)", config.MaxRepeatDepth)
				}
			},
		},
		{
			name: "case insensitive boolean",
			envVars: map[string]string{
				"STAMPER_LENIENT_PLACEHOLDERS": "TRUE",
			},
			check: func(t *testing.T, config *Config) {
				if !config.LenientPlaceholders {
					t.Errorf("LenientPlaceholders = false, want true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}
			defer func() {
				for key := range tt.envVars {
					os.Unsetenv(key)
				}
			}()

			config := ConfigFromEnvironment()
			tt.check(t, config)
		})
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	overrides := &Config{
		CacheMaxSize: 200,
		LogLevel:     "debug",
	}

	config := NewConfigWithDefaults(overrides)

	if config.CacheMaxSize != 200 {
		t.Errorf("CacheMaxSize = %d, want 200", config.CacheMaxSize)
	}

	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}

	if config.MaxRepeatDepth != 50 {
		t.Errorf("MaxRepeatDepth = %d, want 50 (default)", config.MaxRepeatDepth)
	}

	if config.LenientPlaceholders {
		t.Errorf("LenientPlaceholders = true, want false (default)")
	}

	if got := NewConfigWithDefaults(nil); got.CacheMaxSize != 100 {
		t.Errorf("NewConfigWithDefaults(nil).CacheMaxSize = %d, want 100", got.CacheMaxSize)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		valid  bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig(),
			valid:  true,
		},
		{
			name: "negative cache size",
			config: &Config{
				CacheMaxSize:   -1,
				LogLevel:       "info",
				MaxRepeatDepth: 50,
			},
			valid: false,
		},
		{
			name: "negative cache TTL",
			config: &Config{
				CacheMaxSize:   100,
				CacheTTL:       -1 * time.Second,
				LogLevel:       "info",
				MaxRepeatDepth: 50,
			},
			valid: false,
		},
		{
			name: "invalid log level",
			config: &Config{
				CacheMaxSize:   100,
				LogLevel:       "loud",
				MaxRepeatDepth: 50,
			},
			valid: false,
		},
		{
			name: "zero repeat depth",
			config: &Config{
				CacheMaxSize:   100,
				LogLevel:       "info",
				MaxRepeatDepth: 0,
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() returned error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Validate() returned nil, want error")
			}
		})
	}
}

func TestGlobalConfig(t *testing.T) {
	originalConfig := GetGlobalConfig()
	defer SetGlobalConfig(originalConfig)

	SetGlobalConfig(&Config{
		CacheMaxSize:   50,
		LogLevel:       "debug",
		MaxRepeatDepth: 80,
	})

	retrieved := GetGlobalConfig()
	if retrieved.CacheMaxSize != 50 {
		t.Errorf("Global CacheMaxSize = %d, want 50", retrieved.CacheMaxSize)
	}
	if retrieved.LogLevel != "debug" {
		t.Errorf("Global LogLevel = %s, want debug", retrieved.LogLevel)
	}

	// Mutating the returned copy must not leak into the global state.
	retrieved.CacheMaxSize = 7
	if GetGlobalConfig().CacheMaxSize != 50 {
		t.Error("GetGlobalConfig returned a shared instance")
	}
}
