// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"
	"time"

	"github.com/sustainable-computing-io/pmon/internal/device"
	"github.com/sustainable-computing-io/pmon/internal/rapl"
)

// Reading is the power of one labelled domain over the last interval
type Reading struct {
	Label string
	Power device.Power
}

// Report is the outcome of one sampling tick. All powers are energy deltas
// since the previous tick divided by the sampling interval.
type Report struct {
	Time time.Time

	// First is set on the tick that was computed against the zero baseline
	First bool

	// Cores holds per-domain core power; nil when cores are not sampled
	Cores []device.Power

	// CoreSum is the sum of Cores, a cross-check against Package
	CoreSum device.Power

	Package device.Power

	// DRAM is only meaningful when HasDRAM is set
	DRAM    device.Power
	HasDRAM bool
}

// Readings returns the report as labelled readings: cores in domain order,
// then the package, then DRAM.
func (r *Report) Readings() []Reading {
	readings := make([]Reading, 0, len(r.Cores)+2)
	for i, p := range r.Cores {
		readings = append(readings, Reading{Label: CoreLabel(i), Power: p})
	}
	readings = append(readings, Reading{Label: rapl.Package.String(), Power: r.Package})
	if r.HasDRAM {
		readings = append(readings, Reading{Label: rapl.DRAM.String(), Power: r.DRAM})
	}
	return readings
}

// CoreLabel is the label of a per-core domain
func CoreLabel(domain int) string {
	return fmt.Sprintf("core %3d", domain)
}

// Header describes the sampled platform; it is written once before the
// first report at the highest verbosity.
type Header struct {
	Threads int
	Domains int
	Units   rapl.CalibrationUnits
}

// ReportWriter consumes sampling output
type ReportWriter interface {
	WriteHeader(h Header) error
	Write(r *Report) error
}
