// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"errors"
	"fmt"
)

// Vendor is a processor vendor with a known energy-counter register layout
type Vendor int

const (
	VendorUnknown Vendor = iota
	AMD
	Intel
)

// CPUID leaf 0 vendor strings
const (
	VendorStringAMD   = "AuthenticAMD"
	VendorStringIntel = "GenuineIntel"
)

func (v Vendor) String() string {
	switch v {
	case AMD:
		return "AMD"
	case Intel:
		return "Intel"
	default:
		return "unknown"
	}
}

// VendorFromString classifies a 12 character CPUID vendor string. Matching is
// exact; anything else is VendorUnknown.
func VendorFromString(s string) Vendor {
	switch s {
	case VendorStringAMD:
		return AMD
	case VendorStringIntel:
		return Intel
	default:
		return VendorUnknown
	}
}

// ErrUnsupportedHardware is wrapped by every identification failure caused
// by the processor itself rather than by an access problem.
var ErrUnsupportedHardware = errors.New("unsupported hardware")

// UnsupportedError describes the processor that was rejected
type UnsupportedError struct {
	VendorString string
	Family       uint32
	Model        uint32
}

func (e *UnsupportedError) Error() string {
	if VendorFromString(e.VendorString) == VendorUnknown {
		return fmt.Sprintf("support for CPU vendor %q not implemented", e.VendorString)
	}
	return fmt.Sprintf("unsupported CPU 0x%x 0x%x", e.Family, e.Model)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedHardware
}
