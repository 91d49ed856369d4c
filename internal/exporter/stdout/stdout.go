// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sustainable-computing-io/pmon/internal/cpu"
	"github.com/sustainable-computing-io/pmon/internal/device"
	"github.com/sustainable-computing-io/pmon/internal/sampler"
)

// coresPerRow is the number of core readings per grid row
const coresPerRow = 8

// Writer prints sampler output as plain text
type Writer struct {
	logger    *slog.Logger
	out       io.Writer
	verbosity int
}

var _ sampler.ReportWriter = (*Writer)(nil)

type Opts struct {
	logger    *slog.Logger
	out       io.Writer
	verbosity int
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		out:    os.Stdout,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Writer
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

func WithOutput(out io.Writer) OptionFn {
	return func(o *Opts) {
		o.out = out
	}
}

func WithVerbosity(v int) OptionFn {
	return func(o *Opts) {
		o.verbosity = v
	}
}

func NewWriter(applyOpts ...OptionFn) *Writer {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Writer{
		logger:    opts.logger.With("service", "stdout"),
		out:       opts.out,
		verbosity: opts.verbosity,
	}
}

// WriteHeader prints the thread and domain counts followed by the energy units
func (w *Writer) WriteHeader(h sampler.Header) error {
	if _, err := fmt.Fprintf(w.out, "%d threads, %d CPUs\n", h.Threads, h.Domains); err != nil {
		return err
	}

	var err error
	if h.Units.Vendor == cpu.AMD {
		_, err = fmt.Fprintf(w.out, "energy_units %d\n", h.Units.AMDExponent)
	} else {
		_, err = fmt.Fprintf(w.out, "energy_units %f\n", h.Units.EnergyScale)
	}
	return err
}

// Write prints one report. Compact mode prints the package power only.
func (w *Writer) Write(r *sampler.Report) error {
	if w.verbosity < sampler.VerbosityDetailed {
		_, err := fmt.Fprintf(w.out, "%4.2f\n", r.Package.Watts())
		return err
	}

	if len(r.Cores) > 0 {
		if err := w.writeCores(r.Cores); err != nil {
			return err
		}
	}

	line := fmt.Sprintf("pkg: %4.2f", r.Package.Watts())
	switch {
	case r.Cores != nil:
		line += fmt.Sprintf("  core sum=%4.2f", r.CoreSum.Watts())
	case r.HasDRAM:
		line += fmt.Sprintf("\tdram: %4.2f", r.DRAM.Watts())
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

// writeCores renders per-core power as a grid of coresPerRow columns, each
// row labelled with its first core
func (w *Writer) writeCores(cores []device.Power) error {
	rows := [][]string{}
	for start := 0; start < len(cores); start += coresPerRow {
		row := make([]string, coresPerRow+1)
		row[0] = sampler.CoreLabel(start) + ":"
		for i := start; i < start+coresPerRow && i < len(cores); i++ {
			row[i-start+1] = fmt.Sprintf("%3.2f", cores[i].Watts())
		}
		rows = append(rows, row)
	}

	table := tablewriter.NewWriter(w.out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		w.logger.Error("Failed to render core table", "error", err)
		return err
	}
	return nil
}
