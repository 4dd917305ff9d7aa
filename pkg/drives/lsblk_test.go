package drives

import "testing"

const lsblkNumeric = `{
   "blockdevices": [
      {"name":"nvme0n1", "label":null, "mountpoint":null, "size":512110190592, "fstype":null, "rm":false,
         "children": [
            {"name":"nvme0n1p1", "label":null, "mountpoint":"/boot/efi", "size":536870912, "fstype":"vfat", "rm":false},
            {"name":"nvme0n1p2", "label":null, "mountpoint":"/", "size":511571132416, "fstype":"ext4", "rm":false}
         ]
      },
      {"name":"sdb", "label":null, "mountpoint":null, "size":31004295168, "fstype":null, "rm":true,
         "children": [
            {"name":"sdb1", "label":"STORE N GO", "mountpoint":"/media/alex/STORE N GO", "size":31003246592, "fstype":"exfat", "rm":true}
         ]
      },
      {"name":"sdc1", "label":"", "mountpoint":"/run/media/alex/BACKUP", "size":1000, "fstype":"ntfs", "rm":false}
   ]
}`

const lsblkQuoted = `{
   "blockdevices": [
      {"name":"sdb", "label":null, "mountpoint":null, "size":"16008609792", "fstype":null, "rm":"1",
         "children": [
            {"name":"sdb1", "label":"KINGSTON", "mountpoint":"/media/KINGSTON", "size":"16007561216", "fstype":"vfat", "rm":"1"}
         ]
      }
   ]
}`

func TestParseLsblk_Numeric(t *testing.T) {
	drives, err := parseLsblk([]byte(lsblkNumeric), []string{"/media", "/run/media"})
	if err != nil {
		t.Fatalf("parseLsblk() error = %v", err)
	}
	if len(drives) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(drives), drives)
	}

	usb := drives[0]
	if usb.Device != "/dev/sdb1" || usb.Label != "STORE N GO" || usb.Path != "/media/alex/STORE N GO" {
		t.Errorf("drives[0] = %+v", usb)
	}
	if usb.SizeBytes != 31003246592 || !usb.Removable {
		t.Errorf("drives[0] size/removable = %d/%v", usb.SizeBytes, usb.Removable)
	}

	backup := drives[1]
	if backup.Label != "BACKUP" {
		t.Errorf("empty label should fall back to mount dir name, got %q", backup.Label)
	}
	if backup.Removable {
		t.Error("drives[1] should not be removable")
	}
}

func TestParseLsblk_QuotedValues(t *testing.T) {
	drives, err := parseLsblk([]byte(lsblkQuoted), []string{"/media"})
	if err != nil {
		t.Fatalf("parseLsblk() error = %v", err)
	}
	if len(drives) != 1 {
		t.Fatalf("len = %d, want 1", len(drives))
	}
	if drives[0].SizeBytes != 16007561216 || !drives[0].Removable {
		t.Errorf("drives[0] = %+v", drives[0])
	}
}

func TestParseLsblk_IgnoresRootPrefixLookalikes(t *testing.T) {
	data := `{"blockdevices":[{"name":"sdd1","mountpoint":"/mediastore/x","size":1,"rm":true}]}`
	drives, err := parseLsblk([]byte(data), []string{"/media"})
	if err != nil {
		t.Fatalf("parseLsblk() error = %v", err)
	}
	if len(drives) != 0 {
		t.Errorf("len = %d, want 0", len(drives))
	}
}

func TestParseLsblk_Malformed(t *testing.T) {
	if _, err := parseLsblk([]byte("lsblk: unknown column"), []string{"/media"}); err == nil {
		t.Error("expected error for malformed output")
	}
}
