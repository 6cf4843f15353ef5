package fleetx

import (
	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	// MaxConcurrencyLimit caps simultaneous SSH sessions regardless of
	// local resources so the fleet is not flooded from one host.
	MaxConcurrencyLimit = 50

	reservedFDs      = 100
	fdsPerConnection = 3
	minFDBudget      = 10
	perCoreSessions  = 10
	fallbackCPUs     = 4

	// fallbackCeiling applies when resource introspection fails.
	fallbackCeiling = 20
)

// Introspection hooks, swappable in tests.
var (
	logicalCPUs = func() (int, error) { return cpu.Counts(true) }
	softFDLimit = fileDescriptorLimit
)

// ComputeCeiling returns how many probe sessions may hold a connection
// at once. A positive requested value wins, capped at the hard limit;
// otherwise the ceiling derives from the task count, the file
// descriptor budget, and the CPU budget. The result is always at
// least 1.
func ComputeCeiling(taskCount, requested int) int {
	if requested > 0 {
		return max(1, min(requested, MaxConcurrencyLimit))
	}
	ceiling := min(taskCount, systemMaxConnections())
	return max(1, min(ceiling, MaxConcurrencyLimit))
}

// systemMaxConnections estimates how many concurrent SSH connections
// this host sustains: each connection costs about three file
// descriptors, and every core handles about ten sessions.
func systemMaxConnections() int {
	soft, err := softFDLimit()
	if err != nil {
		return fallbackCeiling
	}
	fdBudget := max(minFDBudget, (int(soft)-reservedFDs)/fdsPerConnection)

	cpus, err := logicalCPUs()
	if err != nil || cpus <= 0 {
		cpus = fallbackCPUs
	}
	cpuBudget := cpus * perCoreSessions

	return min(fdBudget, cpuBudget, MaxConcurrencyLimit)
}
