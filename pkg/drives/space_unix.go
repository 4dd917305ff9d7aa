//go:build linux || darwin

package drives

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// OSSpace queries the filesystem with statfs.
type OSSpace struct{}

// Space implements SpaceProber.
func (OSSpace) Space(path string) (Space, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Space{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := int64(st.Bsize)
	return Space{
		Free:  int64(st.Bavail) * bsize,
		Total: int64(st.Blocks) * bsize,
	}, nil
}
