// Package config defines the structures that configure a depthmesh run and
// how they are read from disk.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/depthmesh/logging"
)

const (
	// ModelTypeRemote talks to a model server over HTTP.
	ModelTypeRemote = "remote"
	// ModelTypeFake synthesizes depth locally and needs no model.
	ModelTypeFake = "fake"

	defaultModelTimeout = time.Minute
)

// Config is the top level configuration for depthmesh.
type Config struct {
	Model      ModelConfig      `json:"model"`
	Preprocess PreprocessConfig `json:"preprocess"`

	// QueueRuns makes overlapping pipeline runs wait for the active one
	// instead of failing immediately.
	QueueRuns bool   `json:"queue_runs,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`

	ConfigFilePath string `json:"-"`
}

// ModelConfig describes where depth estimates come from.
type ModelConfig struct {
	Type       string  `json:"type"`
	URL        string  `json:"url,omitempty"`
	Timeout    string  `json:"timeout,omitempty"`
	DepthScale float64 `json:"depth_scale,omitempty"`

	timeout time.Duration
}

// PreprocessConfig controls how images are fit to the model's stride.
type PreprocessConfig struct {
	MaxHeight int `json:"max_height"`
	Stride    int `json:"stride"`
	Border    int `json:"border"`
}

// Default returns the configuration matching the pretrained depth model the
// tool was calibrated against.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Type:       ModelTypeRemote,
			URL:        "http://localhost:8000",
			Timeout:    defaultModelTimeout.String(),
			DepthScale: 1000.0,
			timeout:    defaultModelTimeout,
		},
		Preprocess: PreprocessConfig{
			MaxHeight: 480,
			Stride:    32,
			Border:    16,
		},
		LogLevel: "info",
	}
}

// Validate checks the config and fills in derived values.
func (c *Config) Validate() error {
	if err := c.Model.Validate("model"); err != nil {
		return err
	}
	if err := c.Preprocess.Validate("preprocess"); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return utils.NewConfigValidationError("log_level", err)
		}
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Validate ensures all parts of the model config are valid.
func (mc *ModelConfig) Validate(path string) error {
	switch mc.Type {
	case ModelTypeRemote:
		if mc.URL == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "url")
		}
	case ModelTypeFake:
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown model type %q", mc.Type))
	}
	if mc.DepthScale <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("depth_scale must be positive, got %v", mc.DepthScale))
	}
	mc.timeout = defaultModelTimeout
	if mc.Timeout != "" {
		timeout, err := time.ParseDuration(mc.Timeout)
		if err != nil {
			return utils.NewConfigValidationError(path, errors.Wrap(err, "bad timeout"))
		}
		if timeout <= 0 {
			return utils.NewConfigValidationError(path, errors.Errorf("timeout must be positive, got %s", timeout))
		}
		mc.timeout = timeout
	}
	return nil
}

// TimeoutDuration returns the parsed timeout. Only meaningful after Validate.
func (mc *ModelConfig) TimeoutDuration() time.Duration {
	if mc.timeout == 0 {
		return defaultModelTimeout
	}
	return mc.timeout
}

// Validate ensures the stride geometry is usable.
func (pc *PreprocessConfig) Validate(path string) error {
	if pc.Stride <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("stride must be positive, got %d", pc.Stride))
	}
	if pc.Border < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("border must not be negative, got %d", pc.Border))
	}
	if pc.MaxHeight < pc.Stride {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_height (%d) must be at least one stride (%d)", pc.MaxHeight, pc.Stride))
	}
	return nil
}
