// Package config loads the service configuration from YAML. Every value
// the pipeline treats as policy (model geometry, thresholds, throttling)
// comes from here; the core packages accept them as parameters and never
// hardcode them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Model struct {
	Path           string `yaml:"path"`
	LibraryPath    string `yaml:"library_path"`
	InputName      string `yaml:"input_name"`
	OutputName     string `yaml:"output_name"`
	InputSize      int    `yaml:"input_size"`
	NumClasses     int    `yaml:"num_classes"`
	NumPredictions int    `yaml:"num_predictions"`
	IntraOpThreads int    `yaml:"intra_op_threads"`
}

type Detection struct {
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	IoUThreshold        float32 `yaml:"iou_threshold"`
}

type Scheduler struct {
	FrameSkipInterval int `yaml:"frame_skip_interval"`
	MinIntervalMs     int `yaml:"min_interval_ms"`
}

type Server struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
}

type Audit struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Model       Model     `yaml:"model"`
	LabelsPath  string    `yaml:"labels_path"`
	Detection   Detection `yaml:"detection"`
	Scheduler   Scheduler `yaml:"scheduler"`
	Server      Server    `yaml:"server"`
	Audit       Audit     `yaml:"audit"`
	Development bool      `yaml:"development"`
}

// Default returns the configuration used when a field is absent from the
// file. Thresholds follow the Ultralytics defaults.
func Default() Config {
	return Config{
		Model: Model{
			InputName:      "images",
			OutputName:     "output0",
			InputSize:      640,
			NumPredictions: 8400,
		},
		Detection: Detection{
			ConfidenceThreshold: 0.40,
			IoUThreshold:        0.45,
		},
		Scheduler: Scheduler{
			FrameSkipInterval: 1,
			MinIntervalMs:     0,
		},
		Server: Server{
			Addr:            "127.0.0.1:8080",
			ReadTimeoutSec:  60,
			WriteTimeoutSec: 60,
		},
		Audit: Audit{
			Path:       "detections.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
		},
	}
}

// Load reads path into a Config on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Model.Path == "":
		return fmt.Errorf("config: model.path is required")
	case c.LabelsPath == "":
		return fmt.Errorf("config: labels_path is required")
	case c.Model.InputSize <= 0:
		return fmt.Errorf("config: model.input_size must be positive, got %d", c.Model.InputSize)
	case c.Model.NumClasses <= 0:
		return fmt.Errorf("config: model.num_classes must be positive, got %d", c.Model.NumClasses)
	case c.Model.NumPredictions <= 0:
		return fmt.Errorf("config: model.num_predictions must be positive, got %d", c.Model.NumPredictions)
	case c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1:
		return fmt.Errorf("config: detection.confidence_threshold %g outside [0,1]", c.Detection.ConfidenceThreshold)
	case c.Detection.IoUThreshold < 0 || c.Detection.IoUThreshold > 1:
		return fmt.Errorf("config: detection.iou_threshold %g outside [0,1]", c.Detection.IoUThreshold)
	case c.Scheduler.FrameSkipInterval < 1:
		return fmt.Errorf("config: scheduler.frame_skip_interval must be >= 1, got %d", c.Scheduler.FrameSkipInterval)
	case c.Scheduler.MinIntervalMs < 0:
		return fmt.Errorf("config: scheduler.min_interval_ms must be >= 0, got %d", c.Scheduler.MinIntervalMs)
	}
	return nil
}
