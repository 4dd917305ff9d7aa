package service

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/repository"
	"github.com/iconidentify/videosorter/pkg/drives"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *repository.MetadataStore {
	t.Helper()
	return repository.NewMetadataStore(filepath.Join(t.TempDir(), "metadata.json"), time.Hour, testLogger())
}

// writeSource creates a file of size bytes under dir and returns its path.
func writeSource(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func plentySpace() drives.SpaceProber {
	return drives.SpaceProberFunc(func(string) (drives.Space, error) {
		return drives.Space{Free: 1 << 40, Total: 1 << 41}, nil
	})
}

func fixedSpace(free int64) drives.SpaceProber {
	return drives.SpaceProberFunc(func(string) (drives.Space, error) {
		return drives.Space{Free: free, Total: free}, nil
	})
}

type staticDrives []drives.Drive

func (s staticDrives) Drives() []drives.Drive { return s }

// recordingEmitter captures published events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingEmitter) Emit(ev domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingEmitter) Publish(t domain.EventType, sev domain.EventSeverity, msg string, payload any) {
	r.Emit(domain.Event{Type: t, Severity: sev, Message: msg})
}

func (r *recordingEmitter) count(t domain.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func failingSpace() drives.SpaceProber {
	return drives.SpaceProberFunc(func(string) (drives.Space, error) {
		return drives.Space{}, errors.New("statfs: input/output error")
	})
}
