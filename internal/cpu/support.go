// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"slices"
	"sort"

	"github.com/sustainable-computing-io/pmon/internal/device"
)

// AMD family 17h and later energy MSRs
const (
	AMDPowerUnit  device.Register = 0xC0010299
	AMDCoreEnergy device.Register = 0xC001029A
	AMDPkgEnergy  device.Register = 0xC001029B
)

// Intel RAPL MSRs
const (
	IntelPowerUnit  device.Register = 0x606
	IntelPkgEnergy  device.Register = 0x611
	IntelDRAMEnergy device.Register = 0x619
)

// supportTable lists, per vendor and family, the exact models whose register
// layout is known. Layouts are not forward compatible, so there is no
// fallback for families or models missing here.
var supportTable = map[Vendor]map[uint32][]uint32{
	AMD: {
		0x17: {
			0x08, // Zen+
			0x31, // Rome
		},
		0x19: {
			0x01, // Milan
			0x10, // Genoa
			0x11, // Genoa
			0x19,
			0x30,
			0xa0, // Bergamo
		},
		0x1a: {
			0x02, // Turin
			0x10,
			0x11, // Turin dense
		},
	},
	Intel: {
		0x06: {
			0x4f, // Broadwell-EP, Xeon E5 v4
			0x55, // Skylake-SP, Xeon Gold 6122 and D-2143IT
			0x56, // Broadwell-DE, Xeon D-1518 and D-1541
		},
	},
}

// registerMaps holds the energy registers for each supported vendor
var registerMaps = map[Vendor]RegisterMap{
	AMD: {
		PowerUnit: AMDPowerUnit,
		Package:   AMDPkgEnergy,
		Core:      AMDCoreEnergy,
	},
	Intel: {
		PowerUnit: IntelPowerUnit,
		Package:   IntelPkgEnergy,
		DRAM:      IntelDRAMEnergy,
	},
}

// IsSupported reports whether family and model are in the vendor's table
func IsSupported(v Vendor, family, model uint32) bool {
	families, ok := supportTable[v]
	if !ok {
		return false
	}
	models, ok := families[family]
	if !ok {
		return false
	}
	return slices.Contains(models, model)
}

// Supported returns every supported vendor/family/model triple ordered by
// vendor, family and model.
func Supported() []Identity {
	var ids []Identity
	for v, families := range supportTable {
		for family, models := range families {
			for _, model := range models {
				ids = append(ids, Identity{Vendor: v, Family: family, Model: model})
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		return a.Model < b.Model
	})
	return ids
}
