// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sustainable-computing-io/pmon/config"
	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
	"github.com/sustainable-computing-io/pmon/internal/exporter/stdout"
	"github.com/sustainable-computing-io/pmon/internal/logger"
	"github.com/sustainable-computing-io/pmon/internal/sampler"
	"github.com/sustainable-computing-io/pmon/internal/service"
	"github.com/sustainable-computing-io/pmon/internal/version"
)

const appName = "pmon"

func main() {
	// parse args and config and exit with error if there is an error
	cfg, err := parseArgsAndConfig(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logger.Info("pmon version information", "build", version.Info())
	logger.Debug("Configuration", "config", cfg.String())

	services, err := createServices(logger, cfg)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	if err := service.Init(logger, services); err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting pmon")
	if err := service.Run(context.Background(), logger, services); err != nil {
		logger.Error("pmon terminated with an error", "error", err)
		os.Exit(1)
	}
	logger.Info("Graceful shutdown completed")
}

func parseArgsAndConfig(args []string) (*config.Config, error) {
	app := kingpin.New(appName, "Processor power monitor reading RAPL energy counters through MSRs.")
	app.Version(version.Info().String())

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	if _, err := app.Parse(args); err != nil {
		// same message as kingpin.MustParse, without exiting
		app.Errorf("%s, try --help", err)
		return nil, err
	}

	logger := logger.New("info", "text", os.Stderr)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		logger.Info("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			logger.Error("Error loading config file", "error", err.Error())
			return nil, err
		}
		// Replace default config with loaded config
		cfg = loadedCfg
	}

	// Apply command line flags (these override config file settings)
	if err := updateConfig(cfg); err != nil {
		logger.Error("Error applying command line flags", "error", err.Error())
		return nil, err
	}

	return cfg, nil
}

func createServices(logger *slog.Logger, cfg *config.Config) ([]service.Service, error) {
	logger.Debug("Creating all services")

	probe, err := cpu.NewProbe(cfg.CPUID.Source, cfg.CPUID.DevicePath)
	if err != nil {
		return nil, err
	}

	platform, err := cpu.Detect(probe, cfg.Host.SysFS)
	if err != nil {
		if errors.Is(err, cpu.ErrUnsupportedHardware) {
			logger.Debug("Supported processors", "models", cpu.Supported())
		}
		return nil, fmt.Errorf("failed to identify processor using %s probe: %w", probe.Name(), err)
	}
	logger.Info("Processor identified",
		"cpu", platform.Identity.String(),
		"threads", platform.Topology.LogicalCPUs,
		"domains", platform.Topology.Domains)

	writer := stdout.NewWriter(
		stdout.WithLogger(logger),
		stdout.WithVerbosity(cfg.Sampler.Verbosity),
	)

	s := sampler.NewSampler(platform,
		device.NewMSRPort(cfg.MSR.DevicePath, logger),
		writer,
		sampler.WithLogger(logger),
		sampler.WithInterval(cfg.Sampler.Interval),
		sampler.WithVerbosity(cfg.Sampler.Verbosity),
	)

	return []service.Service{
		s,
		service.NewSignalHandler(logger, syscall.SIGINT, syscall.SIGTERM),
	}, nil
}
