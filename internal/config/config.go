package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/signature-tools-mcp/internal/features"
	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/matcher"
	"github.com/ironsheep/signature-tools-mcp/internal/store"
)

// Config holds the complete application configuration
type Config struct {
	Version    string          `yaml:"version" json:"version"`
	Preprocess imaging.Options `yaml:"preprocess" json:"preprocess"`
	Extractor  ExtractorConfig `yaml:"extractor" json:"extractor"`
	Matcher    MatcherConfig   `yaml:"matcher" json:"matcher"`
	Storage    StorageConfig   `yaml:"storage" json:"storage"`
	Output     OutputConfig    `yaml:"output" json:"output"`
}

// ExtractorConfig selects and tunes the feature extractor
type ExtractorConfig struct {
	Name             string `yaml:"name" json:"name"` // gradient|sift
	features.Options `yaml:",inline"`
}

// MatcherConfig configures scoring and the decision threshold
type MatcherConfig struct {
	Threshold       float64 `yaml:"threshold" json:"threshold"`
	matcher.Options `yaml:",inline"`
}

// StorageConfig configures where templates are kept
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"` // file|memory
	Dir     string `yaml:"dir" json:"dir"`         // template directory for the file backend
}

// OutputConfig configures output formatting and diagnostics
type OutputConfig struct {
	Verbose  bool   `yaml:"verbose" json:"verbose"`     // enable debug/info logging
	Format   string `yaml:"format" json:"format"`       // text|json
	DebugDir string `yaml:"debug_dir" json:"debug_dir"` // write preprocessing stages here when set
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version:    "1.0",
		Preprocess: imaging.DefaultOptions(),
		Extractor: ExtractorConfig{
			Name: features.DefaultExtractor,
			Options: features.Options{
				MaxKeypoints: 500,
				QualityLevel: 0.01,
				MinDistance:  5,
			},
		},
		Matcher: MatcherConfig{
			Threshold: matcher.DefaultThreshold,
			Options: matcher.Options{
				Aggregation:    matcher.AggregateMean,
				RatioThreshold: matcher.DefaultRatioThreshold,
			},
		},
		Storage: StorageConfig{
			Backend: store.BackendFile,
			Dir:     "~/.local/share/sigverify/templates",
		},
		Output: OutputConfig{
			Verbose: false,
			Format:  "text",
		},
	}
}

// IsVerbose implements logger.VerboseChecker
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// StoreDir returns the template directory with a leading ~ expanded
func (c *Config) StoreDir() string {
	return expandPath(c.Storage.Dir)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Preprocess.Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := c.validateExtractorConfig(); err != nil {
		return err
	}
	if err := c.validateMatcherConfig(); err != nil {
		return err
	}
	if err := c.validateStorageConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateExtractorConfig() error {
	known := false
	for _, name := range features.Available() {
		if c.Extractor.Name == name {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("invalid extractor: %s (available: %s)", c.Extractor.Name, strings.Join(features.Available(), ", "))
	}
	if c.Extractor.MaxKeypoints < 1 {
		return fmt.Errorf("max_keypoints must be greater than 0")
	}
	if c.Extractor.QualityLevel <= 0 || c.Extractor.QualityLevel >= 1 {
		return fmt.Errorf("quality_level must be between 0 and 1")
	}
	if c.Extractor.MinDistance < 0 {
		return fmt.Errorf("min_distance must be non-negative")
	}
	return nil
}

func (c *Config) validateMatcherConfig() error {
	if math.IsNaN(c.Matcher.Threshold) || math.IsInf(c.Matcher.Threshold, 0) {
		return matcher.ErrInvalidThreshold
	}
	if c.Matcher.Threshold < -1 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("threshold must be between -1 and 1, got %v", c.Matcher.Threshold)
	}
	if _, err := matcher.New(c.Matcher.Options); err != nil {
		return fmt.Errorf("matcher: %w", err)
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	switch c.Storage.Backend {
	case store.BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir must be set for the file backend")
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("invalid storage backend: %s (must be one of: file, memory)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateOutputConfig() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s (must be one of: text, json)", c.Output.Format)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
