// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	t.Run("all services initialize successfully", func(t *testing.T) {
		svc1 := &mockInitializer{named: "svc1"}
		svc2 := &mockInitializer{named: "svc2"}
		svc3 := &mockService{named: "non-initializer"}

		err := Init(nil, []Service{svc1, svc2, svc3})

		assert.NoError(t, err)
		assert.Equal(t, 1, svc1.initCount)
		assert.Equal(t, 1, svc2.initCount)
	})

	t.Run("initialization fails and initialized services are shut down in reverse", func(t *testing.T) {
		var order []string
		record := func(name string) func() error {
			return func() error {
				order = append(order, name)
				return nil
			}
		}

		svc1 := &mockShutdowner{mockInitializer: mockInitializer{named: "svc1"}, shutdownFn: record("svc1")}
		svc2 := &mockShutdowner{mockInitializer: mockInitializer{named: "svc2"}, shutdownFn: record("svc2")}

		initErr := errors.New("init error")
		svc3 := &mockShutdowner{mockInitializer: mockInitializer{
			named:  "svc3",
			initFn: func() error { return initErr },
		}}
		svc4 := &mockShutdowner{mockInitializer: mockInitializer{named: "svc4"}}

		err := Init(nil, []Service{svc1, svc2, svc3, svc4})

		assert.ErrorIs(t, err, initErr)
		assert.Contains(t, err.Error(), "svc3")
		assert.Equal(t, []string{"svc2", "svc1"}, order)

		// the failed service cleans up after itself
		assert.Equal(t, 1, svc3.initCount)
		assert.Equal(t, 0, svc3.shutdownCount)

		assert.Equal(t, 0, svc4.initCount)
		assert.Equal(t, 0, svc4.shutdownCount)
	})

	t.Run("shutdown error is logged but doesn't affect return value", func(t *testing.T) {
		initErr := errors.New("init error")
		shutdownErr := errors.New("shutdown error")

		svc1 := &mockShutdowner{
			mockInitializer: mockInitializer{named: "svc1"},
			shutdownFn:      func() error { return shutdownErr },
		}
		svc2 := &mockShutdowner{mockInitializer: mockInitializer{
			named:  "svc2",
			initFn: func() error { return initErr },
		}}

		err := Init(nil, []Service{svc1, svc2})

		assert.ErrorIs(t, err, initErr)
		assert.NotErrorIs(t, err, shutdownErr)
		assert.Equal(t, 1, svc1.shutdownCount)
	})

	t.Run("non-shutdowner service is skipped during cleanup", func(t *testing.T) {
		initErr := errors.New("init error")
		svc1 := &mockInitializer{named: "svc1"}
		svc2 := &mockInitializer{
			named:  "svc2",
			initFn: func() error { return initErr },
		}

		err := Init(nil, []Service{svc1, svc2})

		assert.ErrorIs(t, err, initErr)
		assert.Equal(t, 1, svc1.initCount)
	})

	t.Run("empty service list completes successfully", func(t *testing.T) {
		assert.NoError(t, Init(nil, []Service{}))
	})
}

func TestShutdown(t *testing.T) {
	firstErr := errors.New("first")
	secondErr := errors.New("second")

	svc1 := &mockShutdowner{mockInitializer: mockInitializer{named: "svc1"}, shutdownFn: func() error { return firstErr }}
	svc2 := &mockService{named: "plain"}
	svc3 := &mockShutdowner{mockInitializer: mockInitializer{named: "svc3"}, shutdownFn: func() error { return secondErr }}

	err := Shutdown(nil, []Service{svc1, svc2, svc3})

	assert.ErrorIs(t, err, firstErr)
	assert.Equal(t, 1, svc1.shutdownCount)
	assert.Equal(t, 1, svc3.shutdownCount, "a failed shutdown must not skip the rest")
}
