// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"fmt"

	"github.com/sustainable-computing-io/pmon/internal/device"
)

// Identity is the classified processor. It is only ever constructed for a
// vendor/family/model present in the support table.
type Identity struct {
	Vendor Vendor
	Family uint32
	Model  uint32
}

func (id Identity) String() string {
	return fmt.Sprintf("%s family 0x%x model 0x%x", id.Vendor, id.Family, id.Model)
}

// RegisterMap lists the energy registers of a vendor. A zero Core or DRAM
// register means the counter does not exist and its sampling is disabled.
type RegisterMap struct {
	PowerUnit device.Register
	Package   device.Register
	Core      device.Register
	DRAM      device.Register
}

func (r RegisterMap) HasCore() bool {
	return r.Core != 0
}

func (r RegisterMap) HasDRAM() bool {
	return r.DRAM != 0
}

// Topology describes how logical CPUs map onto energy-counter domains
type Topology struct {
	// LogicalCPUs is the number of configured logical processors
	LogicalCPUs int

	// SharingFactor is the number of threads sharing one energy domain
	SharingFactor int

	// Domains is the number of independent energy domains
	Domains int
}

// Unit returns the logical unit whose register handle serves domain
func (t Topology) Unit(domain int) int {
	return domain * t.SharingFactor
}

// NewTopology derives the domain count from the logical CPU count and the
// sharing factor reported by the topology query.
func NewTopology(logicalCPUs, sharingFactor int) Topology {
	if sharingFactor < 1 {
		sharingFactor = 1
	}
	domains := logicalCPUs / sharingFactor
	if domains < 1 {
		domains = 1
	}
	return Topology{
		LogicalCPUs:   logicalCPUs,
		SharingFactor: sharingFactor,
		Domains:       domains,
	}
}

// Platform is the immutable result of processor identification
type Platform struct {
	Identity  Identity
	Registers RegisterMap
	Topology  Topology
}

// Identify classifies the queried processor against the support table and
// derives its register map and topology. Any processor outside the table
// yields an *UnsupportedError.
func Identify(info Info, logicalCPUs int) (*Platform, error) {
	vendor := VendorFromString(info.VendorString)
	if vendor == VendorUnknown || !IsSupported(vendor, info.Family, info.Model) {
		return nil, &UnsupportedError{
			VendorString: info.VendorString,
			Family:       info.Family,
			Model:        info.Model,
		}
	}

	return &Platform{
		Identity: Identity{
			Vendor: vendor,
			Family: info.Family,
			Model:  info.Model,
		},
		Registers: registerMaps[vendor],
		Topology:  NewTopology(logicalCPUs, info.SharingFactor),
	}, nil
}

// Detect queries the processor through probe, counts logical CPUs under
// sysfsPath and identifies the platform.
func Detect(probe Probe, sysfsPath string) (*Platform, error) {
	info, err := probe.Query()
	if err != nil {
		return nil, fmt.Errorf("cpuid query via %s failed: %w", probe.Name(), err)
	}

	cpus, err := CountLogicalCPUs(sysfsPath)
	if err != nil {
		return nil, err
	}

	return Identify(info, cpus)
}
