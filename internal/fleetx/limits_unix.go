//go:build !windows

package fleetx

import "golang.org/x/sys/unix"

// fileDescriptorLimit returns the soft limit on open files for this
// process.
func fileDescriptorLimit() (uint64, error) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, err
	}
	return limit.Cur, nil
}
