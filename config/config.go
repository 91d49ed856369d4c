// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}
	Host struct {
		SysFS string `yaml:"sysfs"`
	}

	Sampler struct {
		Interval time.Duration `yaml:"interval"` // time between two counter reads

		// Verbosity selects the output detail:
		// 0: package power only, first sample suppressed
		// 1: adds per-core power (AMD) or DRAM power (Intel)
		// 2: adds the topology header and prints the first sample
		Verbosity int `yaml:"verbosity"`
	}

	// MSR register access
	MSR struct {
		DevicePath string `yaml:"devicePath"` // %d is replaced with the logical CPU
	}

	CPUID struct {
		Source     string `yaml:"source"`     // host or device
		DevicePath string `yaml:"devicePath"` // only used by the device source
	}

	Config struct {
		Log     Log     `yaml:"log"`
		Host    Host    `yaml:"host"`
		Sampler Sampler `yaml:"sampler"`
		MSR     MSR     `yaml:"msr"`
		CPUID   CPUID   `yaml:"cpuid"`
	}
)

type SkipValidation int

const (
	SkipHostValidation SkipValidation = 1
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"

	HostSysFSFlag = "host.sysfs"

	SamplerVerbosityFlag = "verbose"
	SamplerIntervalArg   = "interval"

	MSRDevicePathFlag = "msr.device-path"

	CPUIDSourceFlag     = "cpuid.source"
	CPUIDDevicePathFlag = "cpuid.device-path"
)

const (
	CPUIDSourceHost   = "host"
	CPUIDSourceDevice = "device"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Host: Host{
			SysFS: "/sys",
		},
		Sampler: Sampler{
			Interval:  time.Second,
			Verbosity: 0,
		},
		MSR: MSR{
			DevicePath: "/dev/cpu/%d/msr",
		},
		CPUID: CPUID{
			Source:     CPUIDSourceHost,
			DevicePath: "/dev/cpu/0/cpuid",
		},
	}
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		// ignored on purpose
		_ = file.Close()
	}()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags and args that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if element.Value == nil {
				continue
			}
			switch clause := element.Clause.(type) {
			case *kingpin.FlagClause:
				flagsSet[clause.Model().Name] = true
			case *kingpin.ArgClause:
				flagsSet[clause.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")

	// host
	hostSysFS := app.Flag(HostSysFSFlag, "Host sysfs path").Default("/sys").ExistingDir()

	// registers
	msrDevicePath := app.Flag(MSRDevicePathFlag, "MSR device path; %d is replaced with the logical CPU").Default("/dev/cpu/%d/msr").String()
	cpuidSource := app.Flag(CPUIDSourceFlag, "Processor identification source: host or device").Default(CPUIDSourceHost).Enum(CPUIDSourceHost, CPUIDSourceDevice)
	cpuidDevicePath := app.Flag(CPUIDDevicePathFlag, "CPUID device path used by the device source").Default("/dev/cpu/0/cpuid").String()

	// sampler
	verbosity := app.Flag(SamplerVerbosityFlag, "Increase output detail; repeat for more").Short('v').Counter()
	interval := app.Arg(SamplerIntervalArg, "Sampling interval in seconds").Default("1").Float64()

	return func(cfg *Config) error {
		// Logging settings
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[HostSysFSFlag] {
			cfg.Host.SysFS = *hostSysFS
		}

		if flagsSet[MSRDevicePathFlag] {
			cfg.MSR.DevicePath = *msrDevicePath
		}

		if flagsSet[CPUIDSourceFlag] {
			cfg.CPUID.Source = *cpuidSource
		}

		if flagsSet[CPUIDDevicePathFlag] {
			cfg.CPUID.DevicePath = *cpuidDevicePath
		}

		// sampler settings
		if flagsSet[SamplerVerbosityFlag] {
			cfg.Sampler.Verbosity = *verbosity
		}

		if flagsSet[SamplerIntervalArg] {
			cfg.Sampler.Interval = SecondsToDuration(*interval)
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

// SecondsToDuration converts fractional seconds to a Duration
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Host.SysFS = strings.TrimSpace(c.Host.SysFS)
	c.MSR.DevicePath = strings.TrimSpace(c.MSR.DevicePath)
	c.CPUID.Source = strings.TrimSpace(c.CPUID.Source)
	c.CPUID.DevicePath = strings.TrimSpace(c.CPUID.DevicePath)
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}
	var errs []string
	{ // log level

		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		// Validate logging settings
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}

	{ // Validate host settings
		if _, skip := validationSkipped[SkipHostValidation]; !skip {
			if err := canReadDir(c.Host.SysFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid sysfs path: %s: %s ", c.Host.SysFS, err.Error()))
			}
		}
	}
	{ // Sampler
		if c.Sampler.Interval <= 0 {
			errs = append(errs, fmt.Sprintf("invalid sampler interval: %s must be positive", c.Sampler.Interval))
		}
		if c.Sampler.Verbosity < 0 {
			errs = append(errs, fmt.Sprintf("invalid sampler verbosity: %d can't be negative", c.Sampler.Verbosity))
		}
	}
	{ // Registers
		if c.MSR.DevicePath == "" {
			errs = append(errs, "msr device path cannot be empty")
		}
		switch c.CPUID.Source {
		case CPUIDSourceHost:
		case CPUIDSourceDevice:
			if c.CPUID.DevicePath == "" {
				errs = append(errs, fmt.Sprintf("%s cannot be empty when %s is %s", CPUIDDevicePathFlag, CPUIDSourceFlag, CPUIDSourceDevice))
			}
		default:
			errs = append(errs, fmt.Sprintf("invalid cpuid source: %s", c.CPUID.Source))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE:  this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return c.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{HostSysFSFlag, c.Host.SysFS},
		{SamplerIntervalArg, c.Sampler.Interval.String()},
		{SamplerVerbosityFlag, fmt.Sprintf("%d", c.Sampler.Verbosity)},
		{MSRDevicePathFlag, c.MSR.DevicePath},
		{CPUIDSourceFlag, c.CPUID.Source},
		{CPUIDDevicePathFlag, c.CPUID.DevicePath},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
