package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configDir = ".blockstream"
const configFile = "config.json"

// EnvPrefix is the prefix of environment overrides, e.g. BLOCKSTREAM_API_KEY.
const EnvPrefix = "BLOCKSTREAM"

// DefaultCompatURL is used by the compat provider when base_url is unset.
const DefaultCompatURL = "http://localhost:11434/v1"

// Providers accepted by the provider key.
const (
	ProviderCompat    = "compat"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Provider     string  `mapstructure:"provider" json:"provider"`
	BaseURL      string  `mapstructure:"base_url" json:"base_url,omitempty"`
	APIKey       string  `mapstructure:"api_key" json:"api_key,omitempty"`
	Model        string  `mapstructure:"model" json:"model,omitempty"`
	SystemPrompt string  `mapstructure:"system_prompt" json:"system_prompt,omitempty"`
	IntervalMS   int     `mapstructure:"interval_ms" json:"interval_ms"`
	SmallGrowth  int     `mapstructure:"small_growth" json:"small_growth"`
	IdleFactor   float64 `mapstructure:"idle_factor" json:"idle_factor"`
	LogLevel     string  `mapstructure:"log_level" json:"log_level"`
	LogFile      string  `mapstructure:"log_file" json:"log_file,omitempty"`
	Profile      string  `mapstructure:"-" json:"-"`
}

var defaults = map[string]any{
	"provider":      ProviderCompat,
	"base_url":      "",
	"api_key":       "",
	"model":         "qwen3:latest",
	"system_prompt": "",
	"interval_ms":   500,
	"small_growth":  30,
	"idle_factor":   2.5,
	"log_level":     "info",
	"log_file":      "",
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func configPath(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(home, configDir, filename), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads the profile's config file, applying defaults and BLOCKSTREAM_*
// environment overrides. A missing file is not an error.
func Load(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	v := newViper()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Profile = profile
	return &cfg, nil
}

func (c *Config) Save() error {
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigPermissions(0600)
	for k, val := range c.values() {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) values() map[string]any {
	return map[string]any{
		"provider":      c.Provider,
		"base_url":      c.BaseURL,
		"api_key":       c.APIKey,
		"model":         c.Model,
		"system_prompt": c.SystemPrompt,
		"interval_ms":   c.IntervalMS,
		"small_growth":  c.SmallGrowth,
		"idle_factor":   c.IdleFactor,
		"log_level":     c.LogLevel,
		"log_file":      c.LogFile,
	}
}

// Get returns the string form of a key's value.
func (c *Config) Get(key string) (string, error) {
	val, ok := c.values()[key]
	if !ok {
		return "", fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return fmt.Sprint(val), nil
}

// Set parses value for key and stores it on c.
func (c *Config) Set(key, value string) error {
	switch key {
	case "provider":
		switch value {
		case ProviderCompat, ProviderOpenAI, ProviderAnthropic:
			c.Provider = value
		default:
			return fmt.Errorf("unknown provider %q (valid: compat, openai, anthropic)", value)
		}
	case "base_url":
		c.BaseURL = strings.TrimRight(value, "/")
	case "api_key":
		c.APIKey = value
	case "model":
		c.Model = value
	case "system_prompt":
		c.SystemPrompt = value
	case "interval_ms", "small_growth":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		if key == "interval_ms" {
			c.IntervalMS = n
		} else {
			c.SmallGrowth = n
		}
	case "idle_factor":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 1 {
			return fmt.Errorf("idle_factor must be a number >= 1, got %q", value)
		}
		c.IdleFactor = f
	case "log_level":
		c.LogLevel = value
	case "log_file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// CompatURL is the endpoint of the compat provider.
func (c *Config) CompatURL() string {
	if c.BaseURL == "" {
		return DefaultCompatURL
	}
	return c.BaseURL
}

// Interval is the scheduler's base flush interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

// Validate checks that the selected provider can be reached.
func (c *Config) Validate() error {
	pf := c.profileFlag()
	switch c.Provider {
	case ProviderCompat, "":
	case ProviderOpenAI, ProviderAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("api_key not set. Run: blockstream%s set api_key <key>", pf)
		}
	default:
		return fmt.Errorf("unknown provider %q. Run: blockstream%s set provider compat", c.Provider, pf)
	}
	if c.Model == "" {
		return fmt.Errorf("model not set. Run: blockstream%s set model <name>", pf)
	}
	return nil
}

func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot find home directory: %w", err)
	}
	dir := filepath.Join(home, configDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
