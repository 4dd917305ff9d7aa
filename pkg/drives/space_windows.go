//go:build windows

package drives

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// OSSpace queries the volume with GetDiskFreeSpaceEx.
type OSSpace struct{}

// Space implements SpaceProber.
func (OSSpace) Space(path string) (Space, error) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return Space{}, fmt.Errorf("encode path: %w", err)
	}

	var freeBytes, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return Space{}, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return Space{Free: int64(freeBytes), Total: int64(totalBytes)}, nil
}
