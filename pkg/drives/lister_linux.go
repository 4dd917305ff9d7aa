//go:build linux

package drives

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// DefaultMediaRoots are the mount parents searched on Linux.
var DefaultMediaRoots = []string{"/media", "/run/media"}

type lsblkLister struct {
	roots  []string
	prober SpaceProber
	logger *slog.Logger
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSystemLister returns the lister for this platform. On Linux it reads
// lsblk output and keeps devices mounted under the media roots.
func NewSystemLister(opts Options) Lister {
	opts = opts.withDefaults()
	roots := opts.MediaRoots
	if len(roots) == 0 {
		roots = DefaultMediaRoots
	}
	return &lsblkLister{
		roots:  roots,
		prober: opts.Prober,
		logger: opts.Logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (l *lsblkLister) List(ctx context.Context) ([]Drive, error) {
	out, err := l.run(ctx, "lsblk", lsblkArgs...)
	if err != nil {
		return nil, fmt.Errorf("run lsblk: %w", err)
	}
	drives, err := parseLsblk(out, l.roots)
	if err != nil {
		return nil, err
	}
	for i := range drives {
		sp, err := l.prober.Space(drives[i].Path)
		if err != nil {
			l.logger.Debug("space query failed", "path", drives[i].Path, "error", err)
			continue
		}
		drives[i].FreeBytes = sp.Free
		if drives[i].SizeBytes == 0 {
			drives[i].SizeBytes = sp.Total
		}
	}
	return drives, nil
}
