package drives

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// listVolumeDir treats every directory entry under root as a mounted
// volume, skipping names in exclude and links to the root filesystem.
func listVolumeDir(root string, exclude []string, prober SpaceProber) ([]Drive, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var drives []Drive
	for _, entry := range entries {
		name := entry.Name()
		if slices.Contains(exclude, name) || name[0] == '.' {
			continue
		}
		path := filepath.Join(root, name)
		if isRootLink(path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}

		d := Drive{
			Device:    path,
			Label:     name,
			Path:      path,
			Removable: true,
		}
		if prober != nil {
			if sp, err := prober.Space(path); err == nil {
				d.SizeBytes = sp.Total
				d.FreeBytes = sp.Free
			}
		}
		drives = append(drives, d)
	}
	return drives, nil
}

// isRootLink reports whether path is a symlink to "/". macOS exposes the
// boot volume under /Volumes this way whatever it is named.
func isRootLink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := filepath.EvalSymlinks(path)
	return err == nil && target == string(filepath.Separator)
}
