// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
)

// fakeHandle serves fixed register values
type fakeHandle struct {
	values map[device.Register]uint64
	err    error
	reads  []device.Register
}

func (f *fakeHandle) Unit() int { return 0 }

func (f *fakeHandle) Read(reg device.Register) (uint64, error) {
	f.reads = append(f.reads, reg)
	if f.err != nil {
		return 0, f.err
	}
	return f.values[reg], nil
}

func (f *fakeHandle) Close() error { return nil }

var (
	amdRegs   = cpu.RegisterMap{PowerUnit: cpu.AMDPowerUnit, Package: cpu.AMDPkgEnergy, Core: cpu.AMDCoreEnergy}
	intelRegs = cpu.RegisterMap{PowerUnit: cpu.IntelPowerUnit, Package: cpu.IntelPkgEnergy, DRAM: cpu.IntelDRAMEnergy}
)

func TestCalibrate_AMD(t *testing.T) {
	// typical EPYC value: power unit 3, energy unit 16, time unit 10
	h := &fakeHandle{values: map[device.Register]uint64{cpu.AMDPowerUnit: 0x000A1003}}

	units, err := Calibrate(cpu.AMD, amdRegs, h)
	require.NoError(t, err)
	assert.Equal(t, cpu.AMD, units.Vendor)
	assert.Equal(t, uint(16), units.AMDExponent)
	assert.Equal(t, []device.Register{cpu.AMDPowerUnit}, h.reads)
	assert.Equal(t, "16", units.String())
}

func TestCalibrate_Intel(t *testing.T) {
	h := &fakeHandle{values: map[device.Register]uint64{cpu.IntelPowerUnit: 0x000A0E03}}

	units, err := Calibrate(cpu.Intel, intelRegs, h)
	require.NoError(t, err)
	assert.Equal(t, math.Pow(0.5, 14), units.EnergyScale)
	assert.Equal(t, math.Pow(0.5, 16), units.DRAMScale)
	assert.Equal(t, []device.Register{cpu.IntelPowerUnit}, h.reads)
}

func TestCalibrate_IntelDRAMScaleIsFixed(t *testing.T) {
	for _, raw := range []uint64{0, 0x0800, 0x1F00, 0xFFFFFFFFFFFFFFFF} {
		units, err := UnitsFromRegister(cpu.Intel, raw)
		require.NoError(t, err)
		assert.Equal(t, 1.0/65536.0, units.DRAMScale, "raw=0x%x", raw)
	}
}

func TestCalibrate_ReadFailure(t *testing.T) {
	readErr := errors.New("pread: input/output error")
	h := &fakeHandle{err: readErr}

	_, err := Calibrate(cpu.Intel, intelRegs, h)
	assert.ErrorIs(t, err, readErr)
	assert.Contains(t, err.Error(), "0x606")
}

func TestCalibrate_UnknownVendor(t *testing.T) {
	_, err := UnitsFromRegister(cpu.VendorUnknown, 0)
	assert.ErrorIs(t, err, cpu.ErrUnsupportedHardware)
}

func TestAMDConverter(t *testing.T) {
	tests := []struct {
		name   string
		exp    uint
		raw    uint64
		joules float64
	}{
		{name: "unit exponent zero", exp: 0, raw: 5_000_000, joules: 5_000_000},
		{name: "exponent 16", exp: 16, raw: 65536 * 5, joules: 5},
		{name: "exponent 10", exp: 10, raw: 1024, joules: 1},
		{name: "zero", exp: 16, raw: 0, joules: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := NewEnergyConverter(CalibrationUnits{Vendor: cpu.AMD, AMDExponent: tc.exp})
			for _, c := range []Counter{Package, Core} {
				assert.InDelta(t, tc.joules, conv.Convert(c, tc.raw).Joules(), 1e-9)
			}
		})
	}
}

func TestAMDConverter_DeltaMatchesDivision(t *testing.T) {
	// converting each reading and subtracting equals converting the delta
	conv := NewEnergyConverter(CalibrationUnits{Vendor: cpu.AMD, AMDExponent: 0})
	delta := conv.Convert(Package, 15_000_000) - conv.Convert(Package, 10_000_000)
	assert.InDelta(t, 5_000_000.0, delta.Joules(), 1e-6)
}

func TestIntelConverter(t *testing.T) {
	units := CalibrationUnits{Vendor: cpu.Intel, EnergyScale: 0.00390625, DRAMScale: math.Pow(0.5, 16)}
	conv := NewEnergyConverter(units)

	assert.InDelta(t, 1.0, conv.Convert(Package, 256).Joules(), 1e-12)
	assert.InDelta(t, 1.0, conv.Convert(Core, 256).Joules(), 1e-12)
	assert.InDelta(t, 1.0, conv.Convert(DRAM, 65536).Joules(), 1e-12)
	assert.InDelta(t, 256.0/65536.0, conv.Convert(DRAM, 256).Joules(), 1e-12)
}

func TestCounter_String(t *testing.T) {
	assert.Equal(t, "pkg", Package.String())
	assert.Equal(t, "core", Core.String())
	assert.Equal(t, "dram", DRAM.String())
	assert.Equal(t, "unknown", Counter(42).String())
}
