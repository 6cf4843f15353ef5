//go:build windows

package fleetx

import "errors"

// fileDescriptorLimit has no Windows equivalent; callers fall back to
// the conservative default ceiling.
func fileDescriptorLimit() (uint64, error) {
	return 0, errors.New("file descriptor limits are not exposed on windows")
}
