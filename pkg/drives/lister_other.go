//go:build !linux && !darwin && !windows

package drives

import "context"

// DefaultMediaRoots is empty on unsupported platforms.
var DefaultMediaRoots []string

type emptyLister struct{}

// NewSystemLister returns a lister that never finds drives.
func NewSystemLister(opts Options) Lister {
	return emptyLister{}
}

func (emptyLister) List(ctx context.Context) ([]Drive, error) {
	return nil, nil
}
