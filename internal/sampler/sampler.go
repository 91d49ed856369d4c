// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
	"github.com/sustainable-computing-io/pmon/internal/rapl"
	"github.com/sustainable-computing-io/pmon/internal/service"
	"k8s.io/utils/clock"
)

// Verbosity levels
const (
	VerbosityCompact  = 0
	VerbosityDetailed = 1
	VerbosityMaximal  = 2
)

// domainState is the last converted reading of one energy counter and the
// handle it is read through
type domainState struct {
	handle device.Handle
	last   device.Energy
}

// Sampler periodically converts energy counter reads into power reports
type Sampler struct {
	logger    *slog.Logger
	platform  *cpu.Platform
	port      device.Port
	writer    ReportWriter
	clock     clock.WithTicker
	interval  time.Duration
	verbosity int

	units     rapl.CalibrationUnits
	converter rapl.EnergyConverter

	// one slot per energy domain, then the package slot and the DRAM slot
	domains []domainState

	sampleCores bool
	sampleDRAM  bool
	first       bool
}

var (
	_ service.Initializer = (*Sampler)(nil)
	_ service.Runner      = (*Sampler)(nil)
	_ service.Shutdowner  = (*Sampler)(nil)
)

// NewSampler creates a Sampler for an identified platform. Handles are not
// opened until Init.
func NewSampler(platform *cpu.Platform, port device.Port, w ReportWriter, applyOpts ...OptionFn) *Sampler {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	regs := platform.Registers
	detailed := opts.verbosity >= VerbosityDetailed

	return &Sampler{
		logger:    opts.logger.With("service", "sampler"),
		platform:  platform,
		port:      port,
		writer:    w,
		clock:     opts.clock,
		interval:  opts.interval,
		verbosity: opts.verbosity,
		domains:   make([]domainState, platform.Topology.Domains+2),

		sampleCores: detailed && regs.HasCore(),
		// parts with per-core counters report the core sum instead of DRAM
		sampleDRAM: detailed && regs.HasDRAM() && !regs.HasCore(),
		first:      true,
	}
}

func (s *Sampler) Name() string {
	return "sampler"
}

func (s *Sampler) pkgSlot() int {
	return s.platform.Topology.Domains
}

func (s *Sampler) dramSlot() int {
	return s.platform.Topology.Domains + 1
}

// Init opens every register handle the configured verbosity needs and
// calibrates the energy units through the package handle.
func (s *Sampler) Init() error {
	topo := s.platform.Topology

	slots := []int{s.pkgSlot()}
	if s.sampleDRAM {
		slots = append(slots, s.dramSlot())
	}
	if s.sampleCores {
		for i := range topo.Domains {
			slots = append(slots, i)
		}
	}

	for _, slot := range slots {
		unit := 0
		if slot < topo.Domains {
			unit = topo.Unit(slot)
		}
		h, err := s.port.Open(unit)
		if err != nil {
			s.closeHandles()
			return fmt.Errorf("failed to open register handle for cpu %d: %w", unit, err)
		}
		s.domains[slot].handle = h
	}

	units, err := rapl.Calibrate(s.platform.Identity.Vendor, s.platform.Registers, s.domains[s.pkgSlot()].handle)
	if err != nil {
		s.closeHandles()
		return err
	}
	s.units = units
	s.converter = rapl.NewEnergyConverter(units)

	s.logger.Info("Sampler initialized",
		"cpu", s.platform.Identity.String(),
		"threads", topo.LogicalCPUs,
		"domains", topo.Domains,
		"sharing", topo.SharingFactor,
		"energy_units", units.String(),
		"handles", len(slots),
		"cores", s.sampleCores,
		"dram", s.sampleDRAM)
	return nil
}

// Run samples immediately and then on every tick until ctx is done. A
// failed register read or write ends the loop with an error; nothing is
// emitted after it.
func (s *Sampler) Run(ctx context.Context) error {
	if s.converter == nil {
		return errors.New("sampler not initialized")
	}

	if s.verbosity >= VerbosityMaximal {
		if err := s.writer.WriteHeader(s.Header()); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.tick(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Sampling loop terminated")
			return nil
		case <-ticker.C():
		}
	}
}

// Header describes the platform being sampled
func (s *Sampler) Header() Header {
	topo := s.platform.Topology
	return Header{
		Threads: topo.Domains * topo.SharingFactor,
		Domains: topo.Domains,
		Units:   s.units,
	}
}

func (s *Sampler) tick() error {
	report, err := s.Sample()
	if err != nil {
		return err
	}

	// deltas against the zero baseline are meaningless below maximal detail
	if report.First && s.verbosity < VerbosityMaximal {
		return nil
	}

	if err := s.writer.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Sample reads all enabled counters once and returns their power since the
// previous call. The first call is computed against a zero baseline.
func (s *Sampler) Sample() (*Report, error) {
	if s.converter == nil {
		return nil, errors.New("sampler not initialized")
	}

	regs := s.platform.Registers
	report := &Report{
		Time:  s.clock.Now(),
		First: s.first,
	}

	if s.sampleCores {
		var coreSum device.Energy
		report.Cores = make([]device.Power, s.platform.Topology.Domains)
		for i := range s.platform.Topology.Domains {
			delta, err := s.read(i, rapl.Core, regs.Core)
			if err != nil {
				return nil, err
			}
			report.Cores[i] = delta.Over(s.interval)
			coreSum += delta
		}
		report.CoreSum = coreSum.Over(s.interval)
	}

	delta, err := s.read(s.pkgSlot(), rapl.Package, regs.Package)
	if err != nil {
		return nil, err
	}
	report.Package = delta.Over(s.interval)

	if s.sampleDRAM {
		delta, err := s.read(s.dramSlot(), rapl.DRAM, regs.DRAM)
		if err != nil {
			return nil, err
		}
		report.DRAM = delta.Over(s.interval)
		report.HasDRAM = true
	}

	s.first = false
	return report, nil
}

// read converts the counter in slot and returns the delta to its last value
func (s *Sampler) read(slot int, counter rapl.Counter, reg device.Register) (device.Energy, error) {
	st := &s.domains[slot]
	raw, err := st.handle.Read(reg)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s energy counter %s: %w", counter, reg, err)
	}

	energy := s.converter.Convert(counter, raw)
	delta := energy - st.last
	if delta < 0 && !s.first {
		// TODO: decide on wraparound correction once the counter width per
		// vendor is pinned down; the delta is reported as read
		s.logger.Warn("Energy counter went backwards, counter wraparound is not corrected",
			"counter", counter.String(), "register", reg.String(), "slot", slot, "delta", delta.String())
	}
	st.last = energy
	return delta, nil
}

// Shutdown releases all register handles
func (s *Sampler) Shutdown() error {
	s.logger.Info("shutting down sampler")
	return s.closeHandles()
}

func (s *Sampler) closeHandles() error {
	var errs []error
	for i := range s.domains {
		h := s.domains[i].handle
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil {
			s.logger.Warn("Failed to close register handle", "unit", h.Unit(), "error", err)
			errs = append(errs, err)
		}
		s.domains[i].handle = nil
	}
	return errors.Join(errs...)
}
