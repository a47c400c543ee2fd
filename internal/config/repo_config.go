package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file inside the git directory
const FileName = "podstrom.yaml"

// Object store backends
const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// RepoConfig represents the repository configuration.
// Nil fields are unset and fall back to defaults.
type RepoConfig struct {
	Path            *string `yaml:"path,omitempty"`
	Backend         *string `yaml:"backend,omitempty"`
	LogFile         *string `yaml:"logFile,omitempty"`
	StripSignatures *bool   `yaml:"stripSignatures,omitempty"`
	SkipAbsent      *bool   `yaml:"skipAbsent,omitempty"`
}

// ConfigPath returns the location of the config file for a git directory
func ConfigPath(gitDir string) string {
	return filepath.Join(gitDir, FileName)
}

// GetRepoConfig reads the repository configuration.
// A missing file gives an empty config; a malformed one is an error.
func GetRepoConfig(gitDir string) (*RepoConfig, error) {
	configPath := ConfigPath(gitDir)

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &RepoConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	var config RepoConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}
	return &config, nil
}

// Load reads the config file of gitDir and applies environment overrides
func Load(gitDir string) (*RepoConfig, error) {
	config, err := GetRepoConfig(gitDir)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from PODSTROM_BACKEND and PODSTROM_LOG_FILE
func (c *RepoConfig) ApplyEnv() {
	if backend := os.Getenv("PODSTROM_BACKEND"); backend != "" {
		c.Backend = &backend
	}
	if logFile := os.Getenv("PODSTROM_LOG_FILE"); logFile != "" {
		c.LogFile = &logFile
	}
}

// Validate rejects unknown backends
func (c *RepoConfig) Validate() error {
	if c.Backend != nil {
		return ValidateBackend(*c.Backend)
	}
	return nil
}

// ValidateBackend checks that name is a known object store backend
func ValidateBackend(name string) error {
	switch name {
	case BackendGit, BackendGoGit:
		return nil
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", name, BackendGit, BackendGoGit)
	}
}

// GetPath returns the configured subdirectory, or "" if none
func (c *RepoConfig) GetPath() string {
	if c.Path != nil {
		return *c.Path
	}
	return ""
}

// GetBackend returns the configured backend, or "git" as default
func (c *RepoConfig) GetBackend() string {
	if c.Backend != nil && *c.Backend != "" {
		return *c.Backend
	}
	return BackendGit
}

// GetLogFile returns the configured log file, or "" for console-only logging
func (c *RepoConfig) GetLogFile() string {
	if c.LogFile != nil {
		return *c.LogFile
	}
	return ""
}

// GetStripSignatures returns whether signature headers are dropped, false by default
func (c *RepoConfig) GetStripSignatures() bool {
	return c.StripSignatures != nil && *c.StripSignatures
}

// GetSkipAbsent returns whether commits lacking the subdirectory are excluded, false by default
func (c *RepoConfig) GetSkipAbsent() bool {
	return c.SkipAbsent != nil && *c.SkipAbsent
}

// SaveRepoConfig writes config to the config file of gitDir
func SaveRepoConfig(gitDir string, config *RepoConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(gitDir), data, 0600)
}
