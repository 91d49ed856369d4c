// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/oklog/run"
)

// Run runs all Runners in an oklog/run group. The first Runner to return
// stops the others; its error is returned. Shutdowners are shut down in
// reverse order once every Runner has returned, so no Shutdown races a Run.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	logger.Info("Running all services")
	ctx, cancel := context.WithCancel(outer)
	defer cancel()

	var g run.Group
	for _, s := range services {
		runner, ok := s.(Runner)
		if !ok {
			logger.Debug("skipping service", "service", s.Name(), "reason", "service does not implement Runner")
			continue
		}

		g.Add(
			func() error {
				logger.Info("Running service", "service", s.Name())
				return runner.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Warn("service terminated", "service", s.Name(), "reason", err)
				}
			},
		)
	}

	err := g.Run()

	reversed := slices.Clone(services)
	slices.Reverse(reversed)
	if shutdownErr := Shutdown(logger, reversed); shutdownErr != nil {
		logger.Warn("service shutdown failed with error", "error", shutdownErr)
	}
	return err
}
