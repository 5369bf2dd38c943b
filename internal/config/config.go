// Package config loads and saves voxelssd configuration files.
// Missing files fall back to DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/voxelssd/internal/volume"
)

// Defaults for a 64x64x34 BOLD run of 200 volumes: a 352 byte NIfTI-1
// header plus 5376 bytes of extensions precede the int16 voxels.
const (
	DefaultHeaderSize = 5728
	DefaultNumImages  = 200
)

// DefaultDims are the spatial dimensions of one volume of the default series.
var DefaultDims = volume.Dims{X: 64, Y: 64, Z: 34}

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Input describes the series file and how it is laid out.
	Input struct {
		Path        string      `yaml:"path"`
		HeaderSize  int64       `yaml:"headerSize"`
		Dims        volume.Dims `yaml:"dims"`
		NumImages   int         `yaml:"numImages"`
		SampleWidth int         `yaml:"sampleWidth"`

		// Strict rejects files whose payload does not match the shape.
		Strict bool `yaml:"strict"`
	} `yaml:"input"`

	Processing struct {
		// Workers is the reduction parallelism; 0 or 1 is sequential,
		// negative uses every available CPU.
		Workers int `yaml:"workers"`

		// MemoryLimit caps voxel buffer bytes (0 = unlimited).
		MemoryLimit int64 `yaml:"memoryLimit"`
	} `yaml:"processing"`

	Analysis struct {
		// OutlierThreshold is the z-score above which a volume is flagged.
		OutlierThreshold float64 `yaml:"outlierThreshold"`
	} `yaml:"analysis"`

	Output struct {
		DataDir string `yaml:"dataDir"`
		Save    bool   `yaml:"save"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.HeaderSize = DefaultHeaderSize
	cfg.Input.Dims = DefaultDims
	cfg.Input.NumImages = DefaultNumImages
	cfg.Input.SampleWidth = volume.SampleWidth
	cfg.Input.Strict = true

	cfg.Processing.Workers = 1

	cfg.Analysis.OutlierThreshold = 3.0

	cfg.Output.DataDir = "./data"

	return cfg
}

// Shape returns the volume shape described by the input section.
func (c *Config) Shape() volume.Shape {
	return volume.Shape{
		HeaderSize:  c.Input.HeaderSize,
		ImgSize:     c.Input.Dims.Voxels(),
		NumImages:   c.Input.NumImages,
		SampleWidth: c.Input.SampleWidth,
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Input.Dims.X < 1 || c.Input.Dims.Y < 1 || c.Input.Dims.Z < 1 {
		return fmt.Errorf("invalid dims %dx%dx%d: every dimension must be positive",
			c.Input.Dims.X, c.Input.Dims.Y, c.Input.Dims.Z)
	}
	if err := c.Shape().Validate(); err != nil {
		return fmt.Errorf("invalid input shape: %w", err)
	}
	if c.Analysis.OutlierThreshold < 0 {
		return fmt.Errorf("outlier threshold %g cannot be negative", c.Analysis.OutlierThreshold)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
