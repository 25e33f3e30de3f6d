package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LLMConfig is the root config structure.
type LLMConfig struct {
	FallbackModel   string                    `koanf:"fallback_model"`
	RequestTimeout  time.Duration             `koanf:"request_timeout"`
	MaxToolRounds   int                       `koanf:"max_tool_rounds"`
	ToolConcurrency int                       `koanf:"tool_concurrency"`
	Providers       map[string]ProviderConfig `koanf:"providers"`
	Models          map[string]ModelConfig    `koanf:"models"`
	Families        []FamilyConfig            `koanf:"families"`
	Sessions        SessionConfig             `koanf:"sessions"`
	Logging         LoggingConfig             `koanf:"logging"`
}

// ProviderConfig describes one backend the router can dispatch to.
type ProviderConfig struct {
	// Kind selects the adapter: openai, azure, gemini or bedrock.
	Kind       string  `koanf:"kind"`
	BaseURL    string  `koanf:"base_url"`
	APIKey     string  `koanf:"api_key"`
	APIVersion string  `koanf:"api_version"`
	Region     string  `koanf:"region"`
	RateLimit  float64 `koanf:"rate_limit"`
	Burst      int     `koanf:"burst"`
	// MaxAttempts bounds transport-level retries on transient failures.
	MaxAttempts int `koanf:"max_attempts"`
}

// ModelConfig defines a single model entry in config.
type ModelConfig struct {
	Provider           string   `koanf:"provider"`
	Model              string   `koanf:"model"`
	MaxOutputTokens    int      `koanf:"max_output_tokens"`
	DefaultTemperature *float64 `koanf:"default_temperature"`
}

// FamilyConfig routes model ids containing Match to Provider when no exact
// model entry exists.
type FamilyConfig struct {
	Match    string `koanf:"match"`
	Provider string `koanf:"provider"`
}

type SessionConfig struct {
	// Backend is memory or redis.
	Backend string      `koanf:"backend"`
	Redis   RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	TLS       bool          `koanf:"tls"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var (
	loadOnce sync.Once
	loaded   *LLMConfig
	loadErr  error
)

// Load loads configuration from path or default locations. Load is safe for repeated calls.
//
// Priority:
// 1. LLM_CONFIG_PATH if set
// 2. ./config.yaml
// 3. built-in defaults when ./config.yaml does not exist
func Load() (*LLMConfig, error) {
	loadOnce.Do(func() {
		// A missing .env is normal outside development.
		_ = godotenv.Load()

		path, explicit := os.LookupEnv("LLM_CONFIG_PATH")
		if !explicit || path == "" {
			path = "config.yaml"
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				path = ""
			}
		}
		loaded, loadErr = load(path)
	})
	return loaded, loadErr
}

// ResetForTest drops the cached result of Load so the next call reads the
// environment again.
func ResetForTest() {
	loadOnce = sync.Once{}
	loaded, loadErr = nil, nil
}

// LoadFile loads configuration from an explicit path without caching.
func LoadFile(path string) (*LLMConfig, error) {
	return load(path)
}

func load(path string) (*LLMConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(kfile.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment overrides: LLM__FALLBACK_MODEL=..., LLM__PROVIDERS__aws__api_key=...
	// Double underscore splits levels.
	if err := k.Load(kenv.Provider("LLM__", "__", func(s string) string {
		return "llm__" + strings.ToLower(strings.TrimPrefix(s, "LLM__"))
	}), nil); err != nil {
		return nil, err
	}

	var cfg LLMConfig
	if err := k.Unmarshal("llm", &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	resolveEnvVars(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() LLMConfig {
	var cfg LLMConfig
	applyDefaults(&cfg)
	resolveEnvVars(&cfg)
	return cfg
}

func applyDefaults(cfg *LLMConfig) {
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = DefaultFallbackModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 1
	}
	if cfg.ToolConcurrency <= 0 {
		cfg.ToolConcurrency = 4
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultProviders()
	}
	// Built-in models and families only apply to providers that exist.
	if len(cfg.Models) == 0 {
		cfg.Models = map[string]ModelConfig{}
		for id, m := range defaultModels() {
			if _, ok := cfg.Providers[m.Provider]; ok {
				cfg.Models[id] = m
			}
		}
	}
	if cfg.Families == nil {
		cfg.Families = []FamilyConfig{}
		for _, f := range defaultFamilies() {
			if _, ok := cfg.Providers[f.Provider]; ok {
				cfg.Families = append(cfg.Families, f)
			}
		}
	}
	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = "memory"
	}
	if cfg.Sessions.Redis.KeyPrefix == "" {
		cfg.Sessions.Redis.KeyPrefix = "conversation:"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// resolveEnvVars resolves ${VAR} patterns in config string fields
func resolveEnvVars(cfg *LLMConfig) {
	for key, p := range cfg.Providers {
		p.APIKey = resolveEnvString(p.APIKey)
		p.BaseURL = resolveEnvString(p.BaseURL)
		p.Region = resolveEnvString(p.Region)
		p.APIVersion = resolveEnvString(p.APIVersion)
		cfg.Providers[key] = p
	}
	for key, model := range cfg.Models {
		model.Provider = resolveEnvString(model.Provider)
		model.Model = resolveEnvString(model.Model)
		cfg.Models[key] = model
	}
	cfg.FallbackModel = resolveEnvString(cfg.FallbackModel)
	cfg.Sessions.Redis.Addr = resolveEnvString(cfg.Sessions.Redis.Addr)
	cfg.Sessions.Redis.Password = resolveEnvString(cfg.Sessions.Redis.Password)
}

// resolveEnvString replaces ${VAR} with environment variable values.
// Unset variables resolve to the empty string.
func resolveEnvString(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		return os.Getenv(varName)
	})
}
