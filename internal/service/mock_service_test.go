// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// named gives every mock its Name
type named string

func (n named) Name() string {
	return string(n)
}

// mockService implements nothing but Service
type mockService struct {
	named
}

// mockInitializer only initializes
type mockInitializer struct {
	named
	initFn    func() error
	initCount int
}

func (m *mockInitializer) Init() error {
	m.initCount++
	if m.initFn != nil {
		return m.initFn()
	}
	return nil
}

// mockRunner only runs, like the signal handler
type mockRunner struct {
	named
	runFn    func(ctx context.Context) error
	runCount int
}

func (m *mockRunner) Run(ctx context.Context) error {
	m.runCount++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return nil
}

// mockShutdowner holds a resource between Init and Shutdown but never runs
type mockShutdowner struct {
	mockInitializer
	shutdownFn    func() error
	shutdownCount int
}

func (m *mockShutdowner) Shutdown() error {
	m.shutdownCount++
	if m.shutdownFn != nil {
		return m.shutdownFn()
	}
	return nil
}

// mockLifecycle has the full shape of the sampler: Init, Run and Shutdown
type mockLifecycle struct {
	named
	runFn         func(ctx context.Context) error
	shutdownFn    func() error
	initCount     int
	runCount      int
	shutdownCount int
}

func (m *mockLifecycle) Init() error {
	m.initCount++
	return nil
}

func (m *mockLifecycle) Run(ctx context.Context) error {
	m.runCount++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return nil
}

func (m *mockLifecycle) Shutdown() error {
	m.shutdownCount++
	if m.shutdownFn != nil {
		return m.shutdownFn()
	}
	return nil
}
