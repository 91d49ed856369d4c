// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Init initializes services in order. When one fails, the services already
// initialized are shut down in reverse order and the init error is returned.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	initialized := make([]Service, 0, len(services))
	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping service initialization", "service", s.Name(),
				"reason", "service does not implement Initializer")
			continue
		}

		logger.Info("Initializing service", "service", s.Name())
		if err := srv.Init(); err != nil {
			initErr := fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
			logger.Info("Shutting down initialized services")
			slices.Reverse(initialized)
			Shutdown(logger, initialized)
			return initErr
		}
		initialized = append(initialized, s)
	}
	return nil
}

// Shutdown shuts down every Shutdowner in services. Failures are logged and
// do not stop the remaining shutdowns; the first one is returned.
func Shutdown(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	var firstErr error
	for _, s := range services {
		srv, ok := s.(Shutdowner)
		if !ok {
			logger.Debug("skipping service shutdown", "service", s.Name(),
				"reason", "service does not implement Shutdowner")
			continue
		}
		if err := srv.Shutdown(); err != nil {
			logger.Error("failed to shutdown service", "service", s.Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to shutdown service %s: %w", s.Name(), err)
			}
			continue
		}
		logger.Debug("service shutdown successfully", "service", s.Name())
	}
	return firstErr
}
