package drives

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
)

// watch pokes the monitor whenever an entry under roots is created or
// removed. Roots that do not exist are skipped.
func (m *Monitor) watch(ctx context.Context, roots []string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("mount watch unavailable", "error", err)
		return
	}
	defer w.Close()

	added := 0
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := w.Add(root); err != nil {
			m.logger.Debug("mount watch add failed", "root", root, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				m.Poke()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.logger.Debug("mount watch error", "error", err)
		}
	}
}
