package drives

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// lsblkArgs selects the columns parseLsblk understands.
var lsblkArgs = []string{"-J", "-b", "-o", "NAME,LABEL,MOUNTPOINT,SIZE,FSTYPE,RM"}

type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	Label      string        `json:"label"`
	Mountpoint string        `json:"mountpoint"`
	Size       flexInt       `json:"size"`
	FSType     string        `json:"fstype"`
	RM         flexBool      `json:"rm"`
	Children   []lsblkDevice `json:"children"`
}

// flexInt accepts a JSON number, a numeric string, or null. Older
// util-linux releases quote every value.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse size %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true/false, "1"/"0", or null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// parseLsblk extracts devices mounted beneath one of roots from lsblk
// JSON output. Partitions are searched recursively.
func parseLsblk(data []byte, roots []string) ([]Drive, error) {
	var out lsblkOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode lsblk output: %w", err)
	}

	var drives []Drive
	var walk func(devs []lsblkDevice, parentRM bool)
	walk = func(devs []lsblkDevice, parentRM bool) {
		for _, d := range devs {
			rm := bool(d.RM) || parentRM
			if d.Mountpoint != "" && underAny(d.Mountpoint, roots) {
				label := d.Label
				if label == "" {
					label = filepath.Base(d.Mountpoint)
				}
				drives = append(drives, Drive{
					Device:    "/dev/" + d.Name,
					Label:     label,
					Path:      d.Mountpoint,
					SizeBytes: int64(d.Size),
					Removable: rm,
				})
			}
			walk(d.Children, rm)
		}
	}
	walk(out.Blockdevices, false)
	return drives, nil
}

func underAny(path string, roots []string) bool {
	clean := filepath.Clean(path)
	for _, root := range roots {
		root = filepath.Clean(root)
		if strings.HasPrefix(clean, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
