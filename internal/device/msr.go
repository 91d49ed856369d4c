// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultMSRDevicePath is the Linux msr driver device template; %d is the
// logical CPU number.
const DefaultMSRDevicePath = "/dev/cpu/%d/msr"

var (
	// ErrAccessDenied is returned when a register device exists but cannot be
	// opened by the current user
	ErrAccessDenied = errors.New("register access denied")

	// ErrNotFound is returned when no register device exists for a logical unit
	ErrNotFound = errors.New("register device not found")

	// ErrRead is returned when a register read fails
	ErrRead = errors.New("register read failed")
)

// Register identifies a model-specific register by its address.
type Register uint32

func (r Register) String() string {
	return fmt.Sprintf("0x%x", uint32(r))
}

// Handle reads registers on one logical unit.
type Handle interface {
	// Unit returns the logical unit the handle was opened on
	Unit() int

	// Read returns the raw 64-bit value of the register
	Read(reg Register) (uint64, error)

	Close() error
}

// Port opens register-access handles per logical unit.
type Port interface {
	Open(unit int) (Handle, error)
}

// msrPort implements Port on top of the Linux msr driver device files
type msrPort struct {
	devicePath string
	logger     *slog.Logger
}

var _ Port = (*msrPort)(nil)

// NewMSRPort creates a Port that opens devicePath formatted with the unit number
func NewMSRPort(devicePath string, logger *slog.Logger) *msrPort {
	if logger == nil {
		logger = slog.Default()
	}
	if devicePath == "" {
		devicePath = DefaultMSRDevicePath
	}
	return &msrPort{
		devicePath: devicePath,
		logger:     logger.With("service", "msr-port"),
	}
}

func (p *msrPort) Open(unit int) (Handle, error) {
	path := p.path(unit)
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: open %s: %w", ErrAccessDenied, path, err)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: open %s (is the msr kernel module loaded?): %w", ErrNotFound, path, err)
	default:
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	p.logger.Debug("Opened MSR device", "unit", unit, "path", path)
	return &msrHandle{unit: unit, path: path, file: file}, nil
}

func (p *msrPort) path(unit int) string {
	if strings.Contains(p.devicePath, "%d") {
		return fmt.Sprintf(p.devicePath, unit)
	}
	return p.devicePath
}

// msrHandle is an open msr device file; register address is the file offset
type msrHandle struct {
	unit int
	path string
	file *os.File
}

func (h *msrHandle) Unit() int {
	return h.unit
}

func (h *msrHandle) Read(reg Register) (uint64, error) {
	if h.file == nil {
		return 0, fmt.Errorf("%w: %s is closed", ErrRead, h.path)
	}

	buf := make([]byte, 8)
	n, err := unix.Pread(int(h.file.Fd()), buf, int64(reg))
	if err != nil {
		if errors.Is(err, unix.EIO) {
			return 0, fmt.Errorf("%w: rdmsr %s on cpu %d: register not implemented: %w", ErrRead, reg, h.unit, err)
		}
		return 0, fmt.Errorf("%w: rdmsr %s on cpu %d: %w", ErrRead, reg, h.unit, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("%w: rdmsr %s on cpu %d: short read of %d bytes", ErrRead, reg, h.unit, n)
	}

	return binary.LittleEndian.Uint64(buf), nil
}

func (h *msrHandle) Close() error {
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}
