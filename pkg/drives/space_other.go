//go:build !linux && !darwin && !windows

package drives

import (
	"errors"
	"runtime"
)

// OSSpace is unsupported on this platform.
type OSSpace struct{}

// Space implements SpaceProber.
func (OSSpace) Space(path string) (Space, error) {
	return Space{}, errors.New("free space query not supported on " + runtime.GOOS)
}
