// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

// CPUID leaf 1 EAX bit fields
const (
	sigModel     = 0x000000f0
	sigFamily    = 0x00000f00
	sigExtModel  = 0x000f0000
	sigExtFamily = 0x0ff00000
)

// DecodeSignature extracts family and model from the CPUID leaf 1 EAX
// value. The extended fields are always folded in: family is the sum of the
// base and extended family, model is the base model with the extended model
// as its high nibble.
func DecodeSignature(eax uint32) (family, model uint32) {
	family = (eax&sigFamily)>>8 + (eax&sigExtFamily)>>20
	model = (eax&sigModel)>>4 | (eax&sigExtModel)>>12
	return family, model
}

// sharingFactor decodes threads per compute unit from CPUID leaf 0x8000001E
// EBX bits 15:8.
func sharingFactor(ebx uint32) int {
	return int((ebx>>8)&0xff) + 1
}
