// Package config handles .cribo.yml project-level configuration, and the
// optional [tool.cribo] table in pyproject.toml.
//
// Adapted from the teacher's internal/config/config.go .arsrc.yml loader:
// same file-discovery order and Validate() contract, generalized to the
// bundler's own settings and upgraded to an actually-strict yaml.v3 decoder
// (KnownFields), since the teacher's yaml.Unmarshal call was not strict
// despite its comment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ProjectConfig represents the .cribo.yml / .cribo.yaml configuration file.
type ProjectConfig struct {
	Version       int      `yaml:"version"`
	SourceRoots   []string `yaml:"source_roots"`
	Out           string   `yaml:"out"`
	Requirements  string   `yaml:"requirements"`
	TreeShake     *bool    `yaml:"tree_shake"`
	PythonVersion string   `yaml:"python_version"`
	Strict        bool     `yaml:"strict"`
}

// LoadProjectConfig loads project configuration from .cribo.yml or
// .cribo.yaml in dir, or from explicitPath if given. Returns nil (no error)
// if no config file is found, in which case bundler defaults apply.
func LoadProjectConfig(dir string, explicitPath string) (*ProjectConfig, error) {
	configPath := explicitPath
	if configPath == "" {
		ymlPath := filepath.Join(dir, ".cribo.yml")
		yamlPath := filepath.Join(dir, ".cribo.yaml")
		switch {
		case fileExists(ymlPath):
			configPath = ymlPath
		case fileExists(yamlPath):
			configPath = yamlPath
		default:
			return nil, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read project config %s: %w", configPath, err)
	}

	cfg := &ProjectConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse project config %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that the ProjectConfig values are well-formed.
func (c *ProjectConfig) Validate() error {
	if c.Version != 0 && c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	switch c.PythonVersion {
	case "", "3.9", "3.10", "3.11", "3.12", "3.13":
	default:
		return fmt.Errorf("unsupported python_version %q", c.PythonVersion)
	}
	return nil
}

// PyProjectTool is the [tool.cribo] table of a pyproject.toml, read as a
// secondary, lower-priority source of defaults (a project that already has
// Python packaging metadata rarely wants a second, redundant config file).
type PyProjectTool struct {
	Tool struct {
		Cribo struct {
			SourceRoots   []string `toml:"source-roots"`
			Out           string   `toml:"out"`
			PythonVersion string   `toml:"python-version"`
		} `toml:"cribo"`
	} `toml:"tool"`
}

// LoadPyProjectTool reads the [tool.cribo] table from pyproject.toml in dir,
// if that file exists. Returns nil, nil if absent.
func LoadPyProjectTool(dir string) (*PyProjectTool, error) {
	path := filepath.Join(dir, "pyproject.toml")
	if !fileExists(path) {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc PyProjectTool
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
