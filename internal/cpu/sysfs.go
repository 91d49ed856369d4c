// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"fmt"

	"github.com/prometheus/procfs/sysfs"
)

// CountLogicalCPUs returns the number of configured logical processors
// listed under <sysfsPath>/devices/system/cpu, online or not.
func CountLogicalCPUs(sysfsPath string) (int, error) {
	fs, err := sysfs.NewFS(sysfsPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open sysfs at %s: %w", sysfsPath, err)
	}

	cpus, err := fs.CPUs()
	if err != nil {
		return 0, fmt.Errorf("failed to list cpus in %s: %w", sysfsPath, err)
	}
	if len(cpus) == 0 {
		return 0, fmt.Errorf("no cpus found in %s", sysfsPath)
	}
	return len(cpus), nil
}
