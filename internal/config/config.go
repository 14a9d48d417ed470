// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads mtask command configuration from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"code.hybscloud.com/mtask"
	"github.com/joeycumines/logiface"
	"gopkg.in/yaml.v3"
)

// FileConfig is the configuration file layout.
type FileConfig struct {
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Run       RunConfig       `yaml:"run" json:"run"`
}

// SchedulerConfig configures the Multitasker.
type SchedulerConfig struct {
	Name          string `yaml:"name" json:"name"`
	Workers       int    `yaml:"workers" json:"workers"`
	FiberPoolSize int    `yaml:"fiber_pool_size" json:"fiber_pool_size"`
	QueueCapacity int    `yaml:"queue_capacity" json:"queue_capacity"`
	IdleWait      string `yaml:"idle_wait" json:"idle_wait"`
	StallWarning  string `yaml:"stall_warning" json:"stall_warning"`
	PanicPolicy   string `yaml:"panic_policy" json:"panic_policy"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
}

// RunConfig configures a workload run.
type RunConfig struct {
	Scenario    string `yaml:"scenario" json:"scenario"`
	Repeat      int    `yaml:"repeat" json:"repeat"`
	Timeout     string `yaml:"timeout" json:"timeout"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
// Workers follows GOMAXPROCS.
func Default() FileConfig {
	return FileConfig{
		Scheduler: SchedulerConfig{
			Workers:       runtime.GOMAXPROCS(0),
			FiberPoolSize: 64,
			PanicPolicy:   mtask.PanicRecover.String(),
			LogLevel:      "info",
		},
		Run: RunConfig{
			Scenario: "sum",
			Repeat:   1,
			Timeout:  "30s",
		},
	}
}

// LoadFile reads a configuration file on top of Default. The format is
// chosen by extension: .yaml, .yml or .json.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Options converts the scheduler section into mtask options. logger and
// metrics are passed through unchanged.
func (f *FileConfig) Options(logger *logiface.Logger[logiface.Event], metrics mtask.Metrics) ([]mtask.Option, error) {
	sc := f.Scheduler
	opts := []mtask.Option{
		mtask.WithLogger(logger),
		mtask.WithMetrics(metrics),
	}
	if sc.Name != "" {
		opts = append(opts, mtask.WithName(sc.Name))
	}
	if sc.QueueCapacity > 0 {
		opts = append(opts, mtask.WithQueueCapacity(sc.QueueCapacity))
	}
	if sc.IdleWait != "" {
		d, err := time.ParseDuration(sc.IdleWait)
		if err != nil {
			return nil, fmt.Errorf("invalid idle wait: %w", err)
		}
		opts = append(opts, mtask.WithIdleWait(d))
	}
	if sc.StallWarning != "" {
		d, err := time.ParseDuration(sc.StallWarning)
		if err != nil {
			return nil, fmt.Errorf("invalid stall warning: %w", err)
		}
		opts = append(opts, mtask.WithStallWarning(d))
	}
	policy, err := mtask.ParsePanicPolicy(sc.PanicPolicy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, mtask.WithPanicPolicy(policy))
	return opts, nil
}

// Timeout parses the run timeout. Zero means no timeout.
func (f *FileConfig) Timeout() (time.Duration, error) {
	if f.Run.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Run.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	return d, nil
}

// Level parses the log level name.
func (f *FileConfig) Level() (logiface.Level, error) {
	switch strings.ToLower(f.Scheduler.LogLevel) {
	case "trace":
		return logiface.LevelTrace, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "", "info":
		return logiface.LevelInformational, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "error", "err":
		return logiface.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", f.Scheduler.LogLevel)
	}
}
