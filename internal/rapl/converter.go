// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
)

// Counter is the kind of energy counter a raw value was read from
type Counter int

const (
	Package Counter = iota
	Core
	DRAM
)

func (c Counter) String() string {
	switch c {
	case Package:
		return "pkg"
	case Core:
		return "core"
	case DRAM:
		return "dram"
	default:
		return "unknown"
	}
}

// EnergyConverter turns raw counter values into energy
type EnergyConverter interface {
	Convert(c Counter, raw uint64) device.Energy
}

// NewEnergyConverter returns the converter for the calibrated vendor
func NewEnergyConverter(units CalibrationUnits) EnergyConverter {
	if units.Vendor == cpu.AMD {
		return amdConverter{exp: units.AMDExponent}
	}
	return intelConverter{energyScale: units.EnergyScale, dramScale: units.DRAMScale}
}

// amdConverter scales every counter kind by 2^-exp
type amdConverter struct {
	exp uint
}

func (a amdConverter) Convert(_ Counter, raw uint64) device.Energy {
	micro := float64(raw) * 1000000.0 / float64(uint64(1)<<a.exp)
	return device.Energy(micro / 1000000.0)
}

type intelConverter struct {
	energyScale float64
	dramScale   float64
}

func (i intelConverter) Convert(c Counter, raw uint64) device.Energy {
	if c == DRAM {
		return device.Energy(float64(raw) * i.dramScale)
	}
	return device.Energy(float64(raw) * i.energyScale)
}
