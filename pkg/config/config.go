/*
Package config manages TOML (or YAML) config for the autocomplete service.

	[server]
	host = "0.0.0.0"
	port = 10000
	idle_timeout_sec = 0
	max_connections = 0

	[corpus]
	path = "word_freq.txt"
	skip_malformed = false

	[suggest]
	limit = 10
	fold_case = false
	cache_size = 0

	[log]
	level = "info"

Files ending in .yaml or .yml are decoded with the same keys.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bastiangx/autocomplete/internal/utils"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Corpus  CorpusConfig  `toml:"corpus" yaml:"corpus"`
	Suggest SuggestConfig `toml:"suggest" yaml:"suggest"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

// ServerConfig has listener and connection options.
type ServerConfig struct {
	Host           string `toml:"host" yaml:"host"`
	Port           int    `toml:"port" yaml:"port"`
	IdleTimeoutSec int    `toml:"idle_timeout_sec" yaml:"idle_timeout_sec"`
	MaxConnections int    `toml:"max_connections" yaml:"max_connections"`
}

// CorpusConfig holds corpus loading options.
type CorpusConfig struct {
	Path          string `toml:"path" yaml:"path"`
	SkipMalformed bool   `toml:"skip_malformed" yaml:"skip_malformed"`
}

// SuggestConfig holds suggestion engine options.
type SuggestConfig struct {
	Limit     int  `toml:"limit" yaml:"limit"`
	FoldCase  bool `toml:"fold_case" yaml:"fold_case"`
	CacheSize int  `toml:"cache_size" yaml:"cache_size"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           10000,
			IdleTimeoutSec: 0,
			MaxConnections: 0,
		},
		Corpus: CorpusConfig{
			Path:          "word_freq.txt",
			SkipMalformed: false,
		},
		Suggest: SuggestConfig{
			Limit:     10,
			FoldCase:  false,
			CacheSize: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Addr returns the host:port the listener binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IdleTimeout converts IdleTimeoutSec, 0 disables the timeout.
func (c *ServerConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.IdleTimeoutSec < 0 {
		return fmt.Errorf("idle_timeout_sec must not be negative")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus path is empty")
	}
	if c.Suggest.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag (created with defaults if missing)
// 2. Default path, if a file exists there
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath, defaultPath string) (*Config, string, error) {
	if customConfigPath != "" {
		config, err := InitConfig(customConfigPath)
		if err != nil {
			return nil, "", err
		}
		log.Debugf("Loaded config from custom path: %s", customConfigPath)
		return config, customConfigPath, nil
	}

	if defaultPath != "" && utils.FileExists(defaultPath) {
		config, err := LoadConfig(defaultPath)
		if err != nil {
			log.Warnf("Failed to load config at default path %s: %v. Using builtin defaults...", defaultPath, err)
			return DefaultConfig(), "", nil
		}
		log.Debugf("Loaded config from default path: %s", defaultPath)
		return config, defaultPath, nil
	}

	log.Debug("No config file found, using builtin defaults")
	return DefaultConfig(), "", nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
			log.Warnf("Failed to create config directory for %s: %v. Using built-in defaults...", configPath, err)
			return config, nil
		}
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return config, nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML or YAML file. Keys missing from the file keep their
// default values. A TOML file that fails to decode as a whole is parsed section by
// section and whatever is valid is kept.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if isYAML(configPath) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		return config, nil
	}

	if err := utils.DecodeTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every key of the right type from a file that failed the typed
// decode. A file that is not TOML at all yields the defaults.
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	doc, err := utils.ReadTOMLDoc(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := doc.Section("server"); ok {
		setString(section, "host", &config.Server.Host)
		setInt(section, "port", &config.Server.Port)
		setInt(section, "idle_timeout_sec", &config.Server.IdleTimeoutSec)
		setInt(section, "max_connections", &config.Server.MaxConnections)
	}
	if section, ok := doc.Section("corpus"); ok {
		setString(section, "path", &config.Corpus.Path)
		setBool(section, "skip_malformed", &config.Corpus.SkipMalformed)
	}
	if section, ok := doc.Section("suggest"); ok {
		setInt(section, "limit", &config.Suggest.Limit)
		setBool(section, "fold_case", &config.Suggest.FoldCase)
		setInt(section, "cache_size", &config.Suggest.CacheSize)
	}
	if section, ok := doc.Section("log"); ok {
		setString(section, "level", &config.Log.Level)
	}
	return config, nil
}

func setString(doc utils.TOMLDoc, key string, dst *string) {
	if val, ok := doc.String(key); ok {
		*dst = val
	}
}

func setInt(doc utils.TOMLDoc, key string, dst *int) {
	if val, ok := doc.Int(key); ok {
		*dst = val
	}
}

func setBool(doc utils.TOMLDoc, key string, dst *bool) {
	if val, ok := doc.Bool(key); ok {
		*dst = val
	}
}

// SaveConfig saves into a TOML or YAML file, chosen by extension.
func SaveConfig(config *Config, configPath string) error {
	if isYAML(configPath) {
		data, err := yaml.Marshal(config)
		if err != nil {
			return err
		}
		return os.WriteFile(configPath, data, 0644)
	}
	return utils.WriteTOMLFile(configPath, config)
}
