// Package drives enumerates mounted removable and local volumes and
// watches them for changes.
package drives

import "context"

// Drive is one detected volume.
type Drive struct {
	Device    string `json:"device"`    // Device identifier (e.g., /dev/sdb1, E:)
	Label     string `json:"label"`     // Display label
	Path      string `json:"path"`      // Mount path (e.g., /media/user/USB, E:\)
	SizeBytes int64  `json:"size"`      // Total size in bytes
	FreeBytes int64  `json:"free"`      // Free space in bytes
	Removable bool   `json:"removable"` // Reported as removable by the OS
}

// Lister enumerates currently mounted drives.
type Lister interface {
	List(ctx context.Context) ([]Drive, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context) ([]Drive, error)

// List calls f(ctx).
func (f ListerFunc) List(ctx context.Context) ([]Drive, error) {
	return f(ctx)
}

// Space is the capacity of the filesystem holding a path.
type Space struct {
	Free  int64
	Total int64
}

// SpaceProber reports free and total bytes for a path.
type SpaceProber interface {
	Space(path string) (Space, error)
}

// SpaceProberFunc adapts a function to the SpaceProber interface.
type SpaceProberFunc func(path string) (Space, error)

// Space calls f(path).
func (f SpaceProberFunc) Space(path string) (Space, error) {
	return f(path)
}

// Find returns the drive whose device or mount path equals id.
func Find(list []Drive, id string) (Drive, bool) {
	for _, d := range list {
		if d.Device == id || d.Path == id {
			return d, true
		}
	}
	return Drive{}, false
}
