//go:build darwin

package drives

import "context"

// DefaultMediaRoots holds the macOS volume directory.
var DefaultMediaRoots = []string{"/Volumes"}

// bootVolume is hidden from the drive list.
const bootVolume = "Macintosh HD"

type volumesLister struct {
	roots  []string
	prober SpaceProber
}

// NewSystemLister returns the lister for this platform. On macOS every
// directory under /Volumes except the boot volume is a drive.
func NewSystemLister(opts Options) Lister {
	opts = opts.withDefaults()
	roots := opts.MediaRoots
	if len(roots) == 0 {
		roots = DefaultMediaRoots
	}
	return &volumesLister{roots: roots, prober: opts.Prober}
}

func (l *volumesLister) List(ctx context.Context) ([]Drive, error) {
	var all []Drive
	for _, root := range l.roots {
		found, err := listVolumeDir(root, []string{bootVolume}, l.prober)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}
