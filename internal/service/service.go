// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is a named unit of the process lifecycle
type Service interface {
	Name() string
}

// Initializer acquires the resources a service needs before anything runs,
// e.g. opening register devices
type Initializer interface {
	Service
	Init() error
}

// Runner blocks until its context is done or it fails
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner releases what Init acquired. It is called once, after every
// Runner has returned.
type Shutdowner interface {
	Service
	Shutdown() error
}
