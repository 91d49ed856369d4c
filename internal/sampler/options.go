// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

type Opts struct {
	logger    *slog.Logger
	interval  time.Duration
	clock     clock.WithTicker
	verbosity int
}

// DefaultOpts returns Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:   slog.Default(),
		interval: time.Second,
		clock:    clock.RealClock{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Sampler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithInterval sets the sampling interval; readings are normalized to it
func WithInterval(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.interval = d
	}
}

// WithClock sets the clock driving the sampling ticker
func WithClock(c clock.WithTicker) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithVerbosity sets the detail level. 1 enables per-core and DRAM
// sampling, 2 also reports the first tick and writes the header.
func WithVerbosity(v int) OptionFn {
	return func(o *Opts) {
		o.verbosity = v
	}
}
