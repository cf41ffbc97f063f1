package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.sigverify.yaml",               // Project-specific config (highest priority)
	"~/.config/sigverify/config.yaml", // User config
	"/etc/sigverify/config.yaml",      // System config (lowest priority)
}

// EnvPrefix prefixes every environment override
const EnvPrefix = "SIGVERIFY_"

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	getenv      func(string) string
	warn        io.Writer
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		getenv:      os.Getenv,
		warn:        os.Stderr,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (SIGVERIFY_*)
// 3. ./.sigverify.yaml
// 4. ~/.config/sigverify/config.yaml
// 5. /etc/sigverify/config.yaml
// 6. Built-in defaults
//
// When customPath is set only that file is read, and it must exist.
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(l.warn, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file on top of config. Keys present in the file
// replace the current values (including explicit false and 0); absent keys are
// left alone. Unknown keys are rejected.
func (l *Loader) loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// Decode into a copy so a bad file leaves config untouched.
	merged := *config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&merged); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	*config = merged
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Preprocess
		"PREPROCESS_GRAYSCALE":  func(v string) error { config.Preprocess.Grayscale = v; return nil },
		"PREPROCESS_BLOCK_SIZE": func(v string) error { return parseInt(v, &config.Preprocess.BlockSize) },
		"PREPROCESS_C":          func(v string) error { return parseFloat(v, &config.Preprocess.C) },
		"PREPROCESS_METHOD":     func(v string) error { config.Preprocess.Method = v; return nil },
		"PREPROCESS_INVERT":     func(v string) error { return parseBool(v, &config.Preprocess.Invert) },
		"PREPROCESS_SHARPEN":    func(v string) error { return parseBool(v, &config.Preprocess.Sharpen) },
		"PREPROCESS_CROP":       func(v string) error { return parseBool(v, &config.Preprocess.Crop) },

		// Extractor
		"EXTRACTOR_NAME":          func(v string) error { config.Extractor.Name = v; return nil },
		"EXTRACTOR_MAX_KEYPOINTS": func(v string) error { return parseInt(v, &config.Extractor.MaxKeypoints) },

		// Matcher
		"MATCHER_THRESHOLD":   func(v string) error { return parseFloat(v, &config.Matcher.Threshold) },
		"MATCHER_AGGREGATION": func(v string) error { config.Matcher.Aggregation = matcher.Aggregation(v); return nil },
		"THRESHOLD":           func(v string) error { return parseFloat(v, &config.Matcher.Threshold) },

		// Storage
		"STORAGE_BACKEND": func(v string) error { config.Storage.Backend = v; return nil },
		"STORAGE_DIR":     func(v string) error { config.Storage.Dir = v; return nil },
		"STORE_DIR":       func(v string) error { config.Storage.Dir = v; return nil },

		// Output
		"OUTPUT_FORMAT":    func(v string) error { config.Output.Format = v; return nil },
		"OUTPUT_VERBOSE":   func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"OUTPUT_DEBUG_DIR": func(v string) error { config.Output.DebugDir = v; return nil },
		"LOG_LEVEL": func(v string) error {
			config.Output.Verbose = strings.EqualFold(v, "debug") || strings.EqualFold(v, "info")
			return nil
		},
	}

	for suffix, setter := range envMappings {
		envVar := EnvPrefix + suffix
		if value := l.getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}
	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that the config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}
	return nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
