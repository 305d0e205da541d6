// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/jedsmith2004/folio/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete folio configuration.
type Config struct {
	Gateway  GatewayConfig  `toml:"gateway"`
	Upstream UpstreamConfig `toml:"upstream"`
	History  HistoryConfig  `toml:"history"`
	Profile  ProfileConfig  `toml:"profile"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Client   ClientConfig   `toml:"client"`
}

// GatewayConfig controls the HTTP gateway.
type GatewayConfig struct {
	Addr           string   `toml:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// Per-client token bucket. Zero RPS disables limiting.
	RateLimitRPS   float64 `toml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `toml:"rate_limit_burst" validate:"gte=0"`

	// Upper bound on a request body in bytes.
	MaxBodyBytes int64 `toml:"max_body_bytes" validate:"gt=0"`
}

// UpstreamConfig describes the OpenAI-compatible provider and its candidates.
type UpstreamConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"`

	// APIKey is not validated. A missing key is reported per request and
	// health checks still answer.
	APIKey string `toml:"api_key"`

	// ModelOverride is tried before the fallback list.
	ModelOverride string   `toml:"model_override"`
	Fallback      []string `toml:"fallback" validate:"required,min=1,dive,required"`

	BackoffMS      int `toml:"backoff_ms" validate:"gte=0,lte=60000"`
	TimeoutSeconds int `toml:"timeout_seconds" validate:"gte=1,lte=600"`

	ExtendedMaxTokens   int     `toml:"extended_max_tokens" validate:"gt=0"`
	ExtendedEffort      string  `toml:"extended_effort" validate:"oneof=low medium high"`
	StandardMaxTokens   int     `toml:"standard_max_tokens" validate:"gt=0"`
	StandardTemperature float32 `toml:"standard_temperature" validate:"gte=0,lte=2"`
}

// HistoryConfig bounds the history window sent upstream.
type HistoryConfig struct {
	MaxTurns int `toml:"max_turns" validate:"gte=1,lte=100"`
	MaxChars int `toml:"max_chars" validate:"gte=1,lte=100000"`
}

// ProfileConfig points at the profile document used to build instructions.
type ProfileConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// StorageConfig controls the request ledger.
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path" validate:"required_if=Enabled true"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `toml:"pretty"`
	// File receives logs from the chat client, which owns the terminal.
	File string `toml:"file"`
}

// ClientConfig contains settings for the chat client.
type ClientConfig struct {
	GatewayURL string `toml:"gateway_url" validate:"required,url"`

	TypeDelayMS   int `toml:"type_delay_ms" validate:"gt=0"`
	UntypeDelayMS int `toml:"untype_delay_ms" validate:"gt=0"`
	HoldMS        int `toml:"hold_ms" validate:"gte=0"`
	IdleMS        int `toml:"idle_ms" validate:"gte=0"`
	RestartMS     int `toml:"restart_ms" validate:"gte=0"`
	ScrollMS      int `toml:"scroll_ms" validate:"gte=0"`

	Phrases []string `toml:"phrases" validate:"required,min=1,dive,required"`
}

// Backoff returns the rate-limit wait as a duration.
func (u UpstreamConfig) Backoff() time.Duration {
	return time.Duration(u.BackoffMS) * time.Millisecond
}

// Timeout returns the per-attempt upstream timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultFallback is the fixed candidate list, highest priority first.
var DefaultFallback = []string{
	"openai/gpt-oss-120b",
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
}

// DefaultPhrases are the example questions cycled through by the idle input.
var DefaultPhrases = []string{
	"What projects have you built?",
	"What languages do you work in?",
	"Tell me about your experience",
	"Can I see your resume?",
	"What are you working on right now?",
	"How can I get in touch?",
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Addr:           "127.0.0.1:8787",
			RateLimitRPS:   2,
			RateLimitBurst: 6,
			MaxBodyBytes:   64 << 10,
		},
		Upstream: UpstreamConfig{
			BaseURL:             "https://api.groq.com/openai/v1",
			Fallback:            append([]string(nil), DefaultFallback...),
			BackoffMS:           1000,
			TimeoutSeconds:      60,
			ExtendedMaxTokens:   1500,
			ExtendedEffort:      "medium",
			StandardMaxTokens:   300,
			StandardTemperature: 0.7,
		},
		History: HistoryConfig{
			MaxTurns: 10,
			MaxChars: 2000,
		},
		Profile: ProfileConfig{
			Watch: true,
		},
		Storage: StorageConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Client: ClientConfig{
			GatewayURL:    "http://127.0.0.1:8787",
			TypeDelayMS:   55,
			UntypeDelayMS: 25,
			HoldMS:        1800,
			IdleMS:        400,
			RestartMS:     300,
			ScrollMS:      50,
			Phrases:       append([]string(nil), DefaultPhrases...),
		},
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Gateway.Addr == "" {
		c.Gateway.Addr = d.Gateway.Addr
	}
	if c.Gateway.MaxBodyBytes == 0 {
		c.Gateway.MaxBodyBytes = d.Gateway.MaxBodyBytes
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = d.Upstream.BaseURL
	}
	if len(c.Upstream.Fallback) == 0 {
		c.Upstream.Fallback = d.Upstream.Fallback
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = d.Upstream.TimeoutSeconds
	}
	if c.Upstream.ExtendedMaxTokens == 0 {
		c.Upstream.ExtendedMaxTokens = d.Upstream.ExtendedMaxTokens
	}
	if c.Upstream.ExtendedEffort == "" {
		c.Upstream.ExtendedEffort = d.Upstream.ExtendedEffort
	}
	if c.Upstream.StandardMaxTokens == 0 {
		c.Upstream.StandardMaxTokens = d.Upstream.StandardMaxTokens
	}
	if c.History.MaxTurns == 0 {
		c.History.MaxTurns = d.History.MaxTurns
	}
	if c.History.MaxChars == 0 {
		c.History.MaxChars = d.History.MaxChars
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Storage.Path = filepath.Join(dir, "ledger.db")
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Client.GatewayURL == "" {
		c.Client.GatewayURL = d.Client.GatewayURL
	}
	if c.Client.TypeDelayMS == 0 {
		c.Client.TypeDelayMS = d.Client.TypeDelayMS
	}
	if c.Client.UntypeDelayMS == 0 {
		c.Client.UntypeDelayMS = d.Client.UntypeDelayMS
	}
	if len(c.Client.Phrases) == 0 {
		c.Client.Phrases = d.Client.Phrases
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the folio configuration directory (~/.folio).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".folio"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the default path, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path atomically.
// The API key is never written; it belongs in the environment.
func Save(cfg *Config, path string) error {
	out := *cfg
	out.Upstream.APIKey = ""

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - GROQ_API_KEY: upstream.api_key
//   - GROQ_MODEL: upstream.model_override
//   - FOLIO_ADDR: gateway.addr
//   - FOLIO_GATEWAY_URL: client.gateway_url
//   - FOLIO_PROFILE: profile.path
//   - FOLIO_DB: storage.path (also enables the ledger)
//   - FOLIO_LOG_LEVEL: logging.level
//   - FOLIO_BACKOFF_MS: upstream.backoff_ms
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Upstream.APIKey = key
	}
	if model := strings.TrimSpace(os.Getenv("GROQ_MODEL")); model != "" {
		c.Upstream.ModelOverride = model
	}
	if addr := os.Getenv("FOLIO_ADDR"); addr != "" {
		c.Gateway.Addr = addr
	}
	if u := os.Getenv("FOLIO_GATEWAY_URL"); u != "" {
		c.Client.GatewayURL = u
	}
	if p := os.Getenv("FOLIO_PROFILE"); p != "" {
		c.Profile.Path = p
	}
	if db := os.Getenv("FOLIO_DB"); db != "" {
		c.Storage.Path = db
		c.Storage.Enabled = true
	}
	if lvl := os.Getenv("FOLIO_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
	if ms := os.Getenv("FOLIO_BACKOFF_MS"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil {
			c.Upstream.BackoffMS = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their TOML key so messages match the config file.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	seen := make(map[string]bool, len(c.Upstream.Fallback))
	for _, m := range c.Upstream.Fallback {
		if seen[m] {
			errs = append(errs, ValidationError{
				Field:   "upstream.fallback",
				Message: fmt.Sprintf("duplicate model '%s'", m),
			})
		}
		seen[m] = true
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath turns "Config.upstream.fallback[0]" into "upstream.fallback[0]".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("invalid value '%v', must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Sprintf("invalid URL '%v'", fe.Value())
	case "hostname_port":
		return fmt.Sprintf("invalid listen address '%v', expected host:port", fe.Value())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("value %v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed '%s' check", fe.Tag())
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
