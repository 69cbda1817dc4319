package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/emilianohg/studycost/internal/apperr"
)

const (
	HomeEnv  = "STUDYCOST_HOME"
	TokenEnv = "PROLIFIC_API_TOKEN"
)

type Config struct {
	APIBaseURL     string   `toml:"api_base_url"`
	ReportsOutput  string   `toml:"reports_output"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	PageSize       int      `toml:"page_size"`
	StudyStates    []string `toml:"study_states"`
	Timezone       string   `toml:"timezone"`
	DatabaseOutput string   `toml:"database_output"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "https://api.prolific.com/api/v1",
		ReportsOutput:  "cost_reports",
		TimeoutSeconds: 30,
		PageSize:       100,
		StudyStates:    []string{"COMPLETED"},
		Timezone:       "UTC",
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location resolves Timezone; an empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, apperr.ErrConfig)
	}
	return loc, nil
}

// StudycostDir is ~/.studycost unless STUDYCOST_HOME points elsewhere.
func StudycostDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return expandPath(dir), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".studycost"), nil
}

func ConfigPath() (string, error) {
	dir, err := StudycostDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func ErrorLogPath() (string, error) {
	dir, err := StudycostDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "errors.log"), nil
}

// Load reads the settings file at its default location, creating it with
// defaults on first run.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

func LoadFrom(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, err
		}
		if err := Save(configPath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", configPath, apperr.ErrConfig, err)
	}

	cfg.ReportsOutput = expandPath(cfg.ReportsOutput)
	cfg.DatabaseOutput = expandPath(cfg.DatabaseOutput)

	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("timeout_seconds must be positive: %w", apperr.ErrConfig)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be positive: %w", apperr.ErrConfig)
	}

	return cfg, nil
}

func Save(configPath string, cfg *Config) error {
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
