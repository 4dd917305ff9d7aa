//go:build windows

package drives

import (
	"context"
	"os"
	"strings"

	"golang.org/x/sys/windows"
)

// DefaultMediaRoots is unused on Windows; drives are enumerated by letter.
var DefaultMediaRoots []string

const defaultLabel = "External Drive"

type logicalDiskLister struct {
	prober SpaceProber
	system string
}

// NewSystemLister returns the lister for this platform. On Windows it
// enumerates logical disks of removable or fixed type, excluding the
// system drive.
func NewSystemLister(opts Options) Lister {
	opts = opts.withDefaults()
	system := strings.ToUpper(os.Getenv("SystemDrive"))
	if system == "" {
		system = "C:"
	}
	return &logicalDiskLister{prober: opts.Prober, system: system}
}

func (l *logicalDiskLister) List(ctx context.Context) ([]Drive, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, err
	}

	var drives []Drive
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		letter := string(rune('A'+i)) + ":"
		if letter == l.system {
			continue
		}
		root := letter + `\`
		rootPtr, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}

		kind := windows.GetDriveType(rootPtr)
		if kind != windows.DRIVE_REMOVABLE && kind != windows.DRIVE_FIXED {
			continue
		}

		d := Drive{
			Device:    letter,
			Label:     volumeLabel(rootPtr),
			Path:      root,
			Removable: kind == windows.DRIVE_REMOVABLE,
		}
		if sp, err := l.prober.Space(root); err == nil {
			d.SizeBytes = sp.Total
			d.FreeBytes = sp.Free
		}
		drives = append(drives, d)
	}
	return drives, nil
}

func volumeLabel(root *uint16) string {
	buf := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumeInformation(root, &buf[0], uint32(len(buf)), nil, nil, nil, nil, 0); err != nil {
		return defaultLabel
	}
	if label := windows.UTF16ToString(buf); label != "" {
		return label
	}
	return defaultLabel
}
