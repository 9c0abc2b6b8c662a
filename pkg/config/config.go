// Package config provides configuration loading and management for voxelprep.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
	"voxelprep/pkg/source"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/transform"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Logging controls the log destination and verbosity
	Logging logging.Config `yaml:"logging"`

	// Seed initialises the random generator shared by all transforms.
	// The same seed and manifest always produce the same augmentations.
	Seed uint64 `yaml:"seed"`

	// Transform parameters
	Transforms struct {
		// Flip configures the random flip applied to every subject
		Flip struct {
			// Enabled turns the flip on
			Enabled bool `yaml:"enabled"`

			// Axes lists the spatial axes eligible for flipping
			Axes []int `yaml:"axes"`

			// Probability is the per-axis flip probability, in (0, 1]
			Probability float64 `yaml:"probability"`

			// Channels lists the subject keys that are flipped
			Channels []string `yaml:"channels"`
		} `yaml:"flip"`

		// ZNormalization rescales intensity channels to zero mean, unit variance
		ZNormalization struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"zNormalization"`
	} `yaml:"transforms"`

	// Subjects is the manifest of subject descriptors
	Subjects []source.Descriptor `yaml:"subjects"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default logging parameters
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxAgeDays = 7

	cfg.Seed = 42

	// Set default transform parameters
	cfg.Transforms.Flip.Enabled = true
	cfg.Transforms.Flip.Axes = []int{0, 1, 2}
	cfg.Transforms.Flip.Probability = 0.5
	cfg.Transforms.Flip.Channels = append([]string(nil), transform.DefaultFlipChannels...)
	cfg.Transforms.ZNormalization.Enabled = false

	// An example subject so a generated file documents the manifest format
	cfg.Subjects = []source.Descriptor{{
		Path:     "~/data/subject01.h5",
		Keys:     []string{subject.ImageKey, subject.LabelKey},
		HDFPath:  []string{"/scan/t1", "/scan/seg"},
		Labels:   []subject.ImageType{subject.Intensity, subject.Label},
		Metadata: map[string]interface{}{"name": "subject01"},
	}}

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// The manifest in the file replaces the example one
	cfg.Subjects = nil

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Mark(fmt.Errorf("error parsing config file: %w", err), errors.ErrConfiguration)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Pipeline builds the transform chain described by the configuration.
// Normalization runs before the flip.
func (c *Config) Pipeline() (transform.Compose, error) {
	var pipeline transform.Compose
	if c.Transforms.ZNormalization.Enabled {
		pipeline = append(pipeline, transform.ZNormalization{})
	}
	if c.Transforms.Flip.Enabled {
		var opts []transform.FlipOption
		if c.Transforms.Flip.Channels != nil {
			opts = append(opts, transform.WithChannels(c.Transforms.Flip.Channels...))
		}
		flip, err := transform.NewRandomFlip(c.Transforms.Flip.Axes, c.Transforms.Flip.Probability, opts...)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, flip)
	}
	return pipeline, nil
}

// Sources validates every subject descriptor in the manifest. Validation stops
// at the first invalid descriptor.
func (c *Config) Sources() ([]*source.Source, error) {
	sources := make([]*source.Source, 0, len(c.Subjects))
	for i, d := range c.Subjects {
		src, err := source.NewFromDescriptor(d)
		if err != nil {
			return nil, errors.Wrapf(err, "subject %d", i)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
