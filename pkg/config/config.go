// Package config provides configuration loading and management for specube.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Noise estimation parameters
	Noise struct {
		// Method selects the noise estimator: 0 plain standard
		// deviation, 1 sigma-clip, 2 symmetric clip around zero,
		// 3 IQR rejection
		Method int `yaml:"method"`

		// NSigma is the significance threshold in units of the noise
		// level used when masking the cube
		NSigma float64 `yaml:"nSigma"`

		// ReferenceChannels is the number of leading channels treated
		// as signal-free when measuring the reference noise level
		ReferenceChannels int `yaml:"referenceChannels"`
	} `yaml:"noise"`

	// Spatial smoothing parameters
	Smoothing struct {
		// Sigma is the Gaussian width in pixels used to smooth each
		// channel before detection
		Sigma float64 `yaml:"sigma"`
	} `yaml:"smoothing"`

	// Rotation curve extraction parameters
	Curve struct {
		// CenterCol and CenterRow locate the kinematic center in
		// pixels; negative values select the map center
		CenterCol float64 `yaml:"centerCol"`
		CenterRow float64 `yaml:"centerRow"`

		// PositionAngle orients the extraction line in degrees
		PositionAngle float64 `yaml:"positionAngle"`

		// Length is the number of sampling steps along each ray
		Length int `yaml:"length"`

		// Inclination is the disk inclination in degrees; zero or
		// below disables the deprojection
		Inclination float64 `yaml:"inclination"`

		// FlattenFrom is the point index from which the curve is
		// considered flat when summarizing it
		FlattenFrom int `yaml:"flattenFrom"`
	} `yaml:"curve"`

	// Spectrum extraction parameters
	Spectrum struct {
		// Col and Row locate the pixel whose spectrum is saved;
		// negative values select the map center
		Col int `yaml:"col"`
		Row int `yaml:"row"`
	} `yaml:"spectrum"`

	// Output parameters
	Output struct {
		// Dir is the directory receiving the derived products
		Dir string `yaml:"dir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default noise parameters
	cfg.Noise.Method = 1
	cfg.Noise.NSigma = 3.0
	cfg.Noise.ReferenceChannels = 5

	// Set default smoothing parameters
	cfg.Smoothing.Sigma = 1.5

	// Set default curve parameters
	cfg.Curve.CenterCol = -1
	cfg.Curve.CenterRow = -1
	cfg.Curve.PositionAngle = 0
	cfg.Curve.Length = 20
	cfg.Curve.Inclination = 0
	cfg.Curve.FlattenFrom = 5

	// Set default spectrum parameters
	cfg.Spectrum.Col = -1
	cfg.Spectrum.Row = -1

	// Set default output parameters
	cfg.Output.Dir = "analysis_output"
	cfg.Output.Verbose = true

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

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
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
