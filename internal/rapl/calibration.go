// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package rapl

import (
	"fmt"
	"math"

	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
)

const (
	// AMD energy status unit, bits 12:8 of the power unit register
	amdEnergyUnitMask  = 0x1F00
	amdEnergyUnitShift = 8

	// Intel energy status unit, bits 12:8 of IA32_RAPL_POWER_UNIT
	intelEnergyUnitShift = 8
	intelEnergyUnitMask  = 0x1f

	// DRAM energy unit is fixed at 15.3 microjoules on the supported server
	// parts and ignores the power unit register
	intelDRAMUnitExp = 16
)

// CalibrationUnits holds the vendor scale factors derived once from the
// power unit register.
type CalibrationUnits struct {
	Vendor cpu.Vendor

	// AMDExponent is the power-of-two divisor exponent of AMD counters
	AMDExponent uint

	// EnergyScale is joules per count of Intel package and core counters
	EnergyScale float64

	// DRAMScale is joules per count of Intel DRAM counters
	DRAMScale float64
}

func (u CalibrationUnits) String() string {
	if u.Vendor == cpu.AMD {
		return fmt.Sprintf("%d", u.AMDExponent)
	}
	return fmt.Sprintf("%f", u.EnergyScale)
}

// Calibrate reads the power unit register through h and derives the
// calibration units for vendor.
func Calibrate(vendor cpu.Vendor, regs cpu.RegisterMap, h device.Handle) (CalibrationUnits, error) {
	raw, err := h.Read(regs.PowerUnit)
	if err != nil {
		return CalibrationUnits{}, fmt.Errorf("failed to read power unit register %s: %w", regs.PowerUnit, err)
	}
	return UnitsFromRegister(vendor, raw)
}

// UnitsFromRegister decodes a raw power unit register value
func UnitsFromRegister(vendor cpu.Vendor, raw uint64) (CalibrationUnits, error) {
	switch vendor {
	case cpu.AMD:
		return CalibrationUnits{
			Vendor:      vendor,
			AMDExponent: uint((raw & amdEnergyUnitMask) >> amdEnergyUnitShift),
		}, nil

	case cpu.Intel:
		exp := (raw >> intelEnergyUnitShift) & intelEnergyUnitMask
		return CalibrationUnits{
			Vendor:      vendor,
			EnergyScale: math.Pow(0.5, float64(exp)),
			DRAMScale:   math.Pow(0.5, intelDRAMUnitExp),
		}, nil

	default:
		return CalibrationUnits{}, fmt.Errorf("%w: no calibration for vendor %s", cpu.ErrUnsupportedHardware, vendor)
	}
}
