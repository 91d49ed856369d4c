// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
	"github.com/sustainable-computing-io/pmon/internal/rapl"
	"github.com/sustainable-computing-io/pmon/internal/sampler"
)

func TestNewWriter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		w := NewWriter()
		assert.NotNil(t, w.logger)
		assert.Equal(t, os.Stdout, w.out)
		assert.Equal(t, 0, w.verbosity)
	})

	t.Run("custom options", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := NewWriter(WithLogger(slog.Default()), WithOutput(buf), WithVerbosity(2))
		assert.Equal(t, buf, w.out)
		assert.Equal(t, 2, w.verbosity)
	})
}

func TestWriteHeader(t *testing.T) {
	tests := []struct {
		name   string
		header sampler.Header
		expect string
	}{{
		name: "amd",
		header: sampler.Header{
			Threads: 128,
			Domains: 64,
			Units:   rapl.CalibrationUnits{Vendor: cpu.AMD, AMDExponent: 16},
		},
		expect: "128 threads, 64 CPUs\nenergy_units 16\n",
	}, {
		name: "intel",
		header: sampler.Header{
			Threads: 56,
			Domains: 56,
			Units:   rapl.CalibrationUnits{Vendor: cpu.Intel, EnergyScale: 1.0 / 16384, DRAMScale: 1.0 / 65536},
		},
		expect: "56 threads, 56 CPUs\nenergy_units 0.000061\n",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := NewWriter(WithOutput(buf), WithVerbosity(2))
			require.NoError(t, w.WriteHeader(tt.header))
			assert.Equal(t, tt.expect, buf.String())
		})
	}
}

func TestWrite_Compact(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(WithOutput(buf))

	require.NoError(t, w.Write(&sampler.Report{Time: time.Now(), Package: 123.456}))
	require.NoError(t, w.Write(&sampler.Report{Time: time.Now(), Package: 1.5}))

	// per-core and DRAM values never show in compact mode
	require.NoError(t, w.Write(&sampler.Report{
		Package: 7,
		Cores:   []device.Power{1, 2},
		CoreSum: 3,
		DRAM:    4, HasDRAM: true,
	}))

	assert.Equal(t, "123.46\n1.50\n7.00\n", buf.String())
}

func TestWrite_VerboseIntel(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(WithOutput(buf), WithVerbosity(1))

	require.NoError(t, w.Write(&sampler.Report{Package: 10, DRAM: 3, HasDRAM: true}))
	assert.Equal(t, "pkg: 10.00\tdram: 3.00\n", buf.String())
}

func TestWrite_VerboseAMD(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(WithOutput(buf), WithVerbosity(1))

	cores := make([]device.Power, 10)
	var sum device.Power
	for i := range cores {
		cores[i] = device.Power(i) + 0.25
		sum += cores[i]
	}

	require.NoError(t, w.Write(&sampler.Report{
		Cores:   cores,
		CoreSum: sum,
		Package: 60,
	}))

	out := buf.String()
	assert.Contains(t, out, "core   0:")
	assert.Contains(t, out, "core   8:")
	assert.NotContains(t, out, "core   1:")
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "9.25")
	assert.True(t, strings.HasSuffix(out, "pkg: 60.00  core sum=47.50\n"), out)

	// core 0 and core 8 start the two rows
	assert.Less(t, strings.Index(out, "core   0:"), strings.Index(out, "7.25"))
	assert.Less(t, strings.Index(out, "7.25"), strings.Index(out, "core   8:"))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("closed")
}

func TestWrite_Errors(t *testing.T) {
	w := NewWriter(WithOutput(failingWriter{}))
	assert.Error(t, w.Write(&sampler.Report{Package: 1}))
	assert.Error(t, w.WriteHeader(sampler.Header{Threads: 1, Domains: 1}))
}
