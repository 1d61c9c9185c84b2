package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultEmail    = "default@agentaustin.org"
	DefaultPassword = "password"

	configFile = "config.yaml"
)

// Config holds application configuration
type Config struct {
	APIURL      string `yaml:"api_url"`
	DataDir     string `yaml:"-"`
	LogDir      string `yaml:"log_dir"`
	DownloadDir string `yaml:"download_dir"`
	Debug       bool   `yaml:"debug"`

	// Login credential; the backend currently exposes a single user
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration rooted at dataDir.
// An empty dataDir resolves to ~/.agent311.
func Default(dataDir string) Config {
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	return Config{
		APIURL:      DefaultAPIURL,
		DataDir:     dataDir,
		LogDir:      filepath.Join(dataDir, "logs"),
		DownloadDir: filepath.Join(dataDir, "downloads"),
		Email:       DefaultEmail,
		Password:    DefaultPassword,
	}
}

// Load builds the configuration from defaults, the optional YAML file in the
// data directory and the environment, in that order of precedence.
func Load(dataDir string) (Config, error) {
	if dataDir == "" {
		dataDir = os.Getenv("AGENT311_DATA_DIR")
	}
	cfg := Default(dataDir)

	if err := cfg.loadFile(filepath.Join(cfg.DataDir, configFile)); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// DBPath is the location of the sqlite database holding client state.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "agent311.db")
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fileCfg.APIURL != "" {
		c.APIURL = fileCfg.APIURL
	}
	if fileCfg.LogDir != "" {
		c.LogDir = fileCfg.LogDir
	}
	if fileCfg.DownloadDir != "" {
		c.DownloadDir = fileCfg.DownloadDir
	}
	if fileCfg.Email != "" {
		c.Email = fileCfg.Email
	}
	if fileCfg.Password != "" {
		c.Password = fileCfg.Password
	}
	c.Debug = c.Debug || fileCfg.Debug
	return nil
}

func (c *Config) applyEnv() {
	if v := getEnvFirst("AGENT311_API_URL", "NEXT_PUBLIC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("AGENT311_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agent311"
	}
	return filepath.Join(home, ".agent311")
}
