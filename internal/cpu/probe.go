// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/cpuid/v2"
)

// Probe sources
const (
	ProbeHost   = "host"
	ProbeDevice = "device"
)

// DefaultCPUIDDevicePath is the Linux cpuid driver device of logical CPU 0
const DefaultCPUIDDevicePath = "/dev/cpu/0/cpuid"

const (
	leafVendor      = 0x0
	leafSignature   = 0x1
	leafExtMax      = 0x80000000
	leafExtTopology = 0x8000001e
)

// Info is the raw outcome of the identification queries, not yet checked
// against the support table.
type Info struct {
	VendorString  string
	Family        uint32
	Model         uint32
	SharingFactor int
}

// Probe issues the processor identification queries
type Probe interface {
	Name() string
	Query() (Info, error)
}

// NewProbe returns the probe for source; devicePath is only used by the
// device probe.
func NewProbe(source, devicePath string) (Probe, error) {
	switch source {
	case ProbeHost, "":
		return NewHostProbe(), nil
	case ProbeDevice:
		return NewDeviceProbe(devicePath), nil
	default:
		return nil, fmt.Errorf("unknown cpuid source: %s", source)
	}
}

// hostProbe executes CPUID in-process
type hostProbe struct {
	cpu cpuid.CPUInfo
}

var _ Probe = (*hostProbe)(nil)

func NewHostProbe() *hostProbe {
	return &hostProbe{cpu: cpuid.CPU}
}

func (p *hostProbe) Name() string {
	return ProbeHost
}

func (p *hostProbe) Query() (Info, error) {
	if p.cpu.VendorString == "" {
		return Info{}, fmt.Errorf("cpuid instruction not available on this architecture")
	}
	return Info{
		VendorString:  p.cpu.VendorString,
		Family:        uint32(p.cpu.Family),
		Model:         uint32(p.cpu.Model),
		SharingFactor: max(p.cpu.ThreadsPerCore, 1),
	}, nil
}

// deviceProbe reads raw CPUID leaves through the Linux cpuid driver. The
// file offset selects the leaf in its low 32 bits and the subleaf in its
// high 32 bits; each read returns EAX, EBX, ECX and EDX.
type deviceProbe struct {
	path string
	open func(path string) (leafReader, error)
}

// leafReader is the open cpuid device; *os.File reads it with pread
type leafReader interface {
	io.ReaderAt
	io.Closer
}

func openCPUIDDevice(path string) (leafReader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

var _ Probe = (*deviceProbe)(nil)

func NewDeviceProbe(path string) *deviceProbe {
	if path == "" {
		path = DefaultCPUIDDevicePath
	}
	return &deviceProbe{path: path, open: openCPUIDDevice}
}

func (p *deviceProbe) Name() string {
	return ProbeDevice
}

type regs struct {
	eax, ebx, ecx, edx uint32
}

func (p *deviceProbe) Query() (Info, error) {
	dev, err := p.open(p.path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open cpuid device (is the cpuid kernel module loaded?): %w", err)
	}
	defer func() {
		// read-only device, close errors carry no information
		_ = dev.Close()
	}()

	vendor, err := readLeaf(dev, leafVendor, 0)
	if err != nil {
		return Info{}, err
	}
	sig, err := readLeaf(dev, leafSignature, 0)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		VendorString:  vendorString(vendor),
		SharingFactor: 1,
	}
	info.Family, info.Model = DecodeSignature(sig.eax)

	// leaves beyond the maximum extended leaf return unrelated data
	ext, err := readLeaf(dev, leafExtMax, 0)
	if err != nil {
		return Info{}, err
	}
	if ext.eax >= leafExtTopology {
		topo, err := readLeaf(dev, leafExtTopology, 0)
		if err != nil {
			return Info{}, err
		}
		info.SharingFactor = sharingFactor(topo.ebx)
	}

	return info, nil
}

func readLeaf(r io.ReaderAt, leaf, subleaf uint32) (regs, error) {
	buf := make([]byte, 16)
	offset := int64(leaf) | int64(subleaf)<<32
	n, err := r.ReadAt(buf, offset)
	if n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return regs{}, fmt.Errorf("cpuid leaf 0x%x: short read of %d bytes: %w", leaf, n, err)
	}
	return regs{
		eax: binary.LittleEndian.Uint32(buf[0:4]),
		ebx: binary.LittleEndian.Uint32(buf[4:8]),
		ecx: binary.LittleEndian.Uint32(buf[8:12]),
		edx: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// vendorString assembles the leaf 0 vendor string from EBX, EDX, ECX
func vendorString(r regs) string {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], r.ebx)
	binary.LittleEndian.PutUint32(b[4:8], r.edx)
	binary.LittleEndian.PutUint32(b[8:12], r.ecx)
	return string(b)
}
