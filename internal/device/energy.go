// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"time"
)

// Energy represents an amount of energy in Joules. Converted counter readings
// and the deltas between two readings are both expressed as Energy.
type Energy float64

const (
	MicroJoule Energy = 1e-6
	MilliJoule Energy = 1e-3
	Joule      Energy = 1
)

func (e Energy) Joules() float64 {
	return float64(e)
}

func (e Energy) MicroJoules() float64 {
	return float64(e / MicroJoule)
}

func (e Energy) String() string {
	return fmt.Sprintf("%.2fJ", e.Joules())
}

// Over returns the average power of e consumed during d. A non-positive
// duration yields zero power.
func (e Energy) Over(d time.Duration) Power {
	if d <= 0 {
		return 0
	}
	return Power(float64(e) / d.Seconds())
}

// Power represents power usage in Watts
type Power float64

const (
	MilliWatt Power = 1e-3
	Watt      Power = 1
)

func (p Power) Watts() float64 {
	return float64(p)
}

func (p Power) String() string {
	return fmt.Sprintf("%.2fW", p.Watts())
}
