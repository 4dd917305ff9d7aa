package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/pkg/drives"
)

// ProgressFunc receives one notification per file outcome.
type ProgressFunc func(domain.ExportProgress)

// Exporter copies videos into per-category folders on a destination.
// At most one run is active at a time.
type Exporter struct {
	space  drives.SpaceProber
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	abort   bool
	status  domain.ExportStatus
}

// NewExporter creates an exporter that checks free space with space.
func NewExporter(space drives.SpaceProber, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		space:  space,
		logger: logger,
		status: domain.ExportStatus{Phase: domain.PhaseIdle},
	}
}

// ExportRun is a claimed export whose preconditions have passed.
type ExportRun struct {
	e     *Exporter
	id    string
	items []domain.ExportItem
	dest  string
	start time.Time
}

// Begin claims the exporter and checks the preconditions: dest must be
// an existing directory with at least the summed item sizes free. On
// error nothing has been written and the exporter stays available,
// except for ErrExportInProgress which leaves the active run untouched.
func (e *Exporter) Begin(id string, items []domain.ExportItem, dest string) (*ExportRun, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, domain.ErrExportInProgress
	}
	e.running = true
	e.abort = false
	e.mu.Unlock()

	start := time.Now().UTC()
	if err := e.checkPreconditions(items, dest); err != nil {
		e.mu.Lock()
		e.running = false
		e.status = domain.ExportStatus{
			Phase:       domain.PhaseFailed,
			ExportID:    id,
			Destination: dest,
			StartedAt:   &start,
			LastResult: &domain.ExportResult{
				Copied:    []domain.CopiedFile{},
				Skipped:   []domain.SkippedFile{},
				Failed:    []domain.FailedFile{},
				StartTime: start,
				EndTime:   time.Now().UTC(),
				Error:     err.Error(),
			},
		}
		e.mu.Unlock()
		return nil, err
	}

	e.mu.Lock()
	e.status = domain.ExportStatus{
		Phase:       domain.PhaseExporting,
		ExportID:    id,
		Destination: dest,
		StartedAt:   &start,
		Progress:    &domain.ExportProgress{Total: len(items)},
	}
	e.mu.Unlock()

	return &ExportRun{e: e, id: id, items: items, dest: dest, start: start}, nil
}

func (e *Exporter) checkPreconditions(items []domain.ExportItem, dest string) error {
	info, err := os.Stat(dest)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", domain.ErrDestinationNotFound, dest)
	}

	var required int64
	for _, it := range items {
		required += it.Size
	}
	sp, err := e.space.Space(dest)
	if err != nil {
		return fmt.Errorf("query free space on %s: %w", dest, err)
	}
	if sp.Free < required {
		return &domain.InsufficientSpaceError{Path: dest, Required: required, Available: sp.Free}
	}
	return nil
}

// Run is Begin followed by Execute.
func (e *Exporter) Run(ctx context.Context, items []domain.ExportItem, dest string, onProgress ProgressFunc) (*domain.ExportResult, error) {
	run, err := e.Begin("", items, dest)
	if err != nil {
		return nil, err
	}
	return run.Execute(ctx, onProgress), nil
}

// Execute processes the items in order and releases the exporter. A
// failure on one file is recorded and the loop continues. Abort and
// context cancellation are checked between files.
func (r *ExportRun) Execute(ctx context.Context, onProgress ProgressFunc) *domain.ExportResult {
	e := r.e
	result := &domain.ExportResult{
		Copied:    []domain.CopiedFile{},
		Skipped:   []domain.SkippedFile{},
		Failed:    []domain.FailedFile{},
		StartTime: r.start,
	}

	total := len(r.items)
	for i, item := range r.items {
		if e.abortRequested() || ctx.Err() != nil {
			result.Aborted = true
			break
		}

		name := filepath.Base(item.Filename)
		outcome := e.exportOne(item, r.dest, result)

		progress := domain.ExportProgress{
			Type:      outcome,
			Filename:  name,
			Completed: i + 1,
			Total:     total,
			Percent:   int(math.Round(float64(i+1) * 100 / float64(total))),
		}
		e.mu.Lock()
		p := progress
		e.status.Progress = &p
		e.mu.Unlock()

		if onProgress != nil {
			onProgress(progress)
		}
	}

	result.EndTime = time.Now().UTC()
	result.Success = len(result.Failed) == 0 && !result.Aborted
	switch {
	case result.Aborted:
		result.Error = "export aborted"
	case len(result.Failed) > 0:
		result.Error = fmt.Sprintf("%d file(s) failed", len(result.Failed))
	}

	phase := domain.PhaseCompleted
	if result.Aborted {
		phase = domain.PhaseAborted
	} else if !result.Success {
		phase = domain.PhaseFailed
	}

	e.mu.Lock()
	e.running = false
	e.abort = false
	e.status.Phase = phase
	e.status.LastResult = result
	e.mu.Unlock()

	e.logger.Info("export finished",
		"export_id", r.id,
		"destination", r.dest,
		"phase", phase,
		"copied", len(result.Copied),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
		"bytes", result.TotalSize,
	)
	return result
}

// exportOne handles a single item and records its outcome on result.
func (e *Exporter) exportOne(item domain.ExportItem, dest string, result *domain.ExportResult) domain.ExportOutcome {
	name := filepath.Base(item.Filename)
	fail := func(err error) domain.ExportOutcome {
		e.logger.Warn("export file failed", "filename", name, "error", err)
		result.Failed = append(result.Failed, domain.FailedFile{VideoID: item.VideoID, Filename: name, Error: err.Error()})
		return domain.OutcomeFailed
	}

	if name == "." || name == string(filepath.Separator) || name == "" {
		return fail(fmt.Errorf("invalid filename %q", item.Filename))
	}
	category := item.Category
	if !category.Valid() {
		category = domain.CategoryOther
	}

	dir := filepath.Join(dest, string(category))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(fmt.Errorf("create category folder: %w", err))
	}

	target := filepath.Join(dir, name)
	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() && info.Size() == item.Size {
		result.Skipped = append(result.Skipped, domain.SkippedFile{VideoID: item.VideoID, Filename: name, Reason: domain.SkipReasonDuplicate})
		return domain.OutcomeSkipped
	}

	written, err := copyFileNoOverwrite(item.Path, target)
	if err != nil {
		return fail(err)
	}
	result.Copied = append(result.Copied, domain.CopiedFile{VideoID: item.VideoID, Filename: name, Category: category, Size: written})
	result.TotalSize += written
	return domain.OutcomeCopied
}

// Abort asks the active run to stop before its next file.
func (e *Exporter) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return domain.ErrNoExportInProgress
	}
	e.abort = true
	return nil
}

func (e *Exporter) abortRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abort
}

// Running reports whether a run is active.
func (e *Exporter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status returns a snapshot of the exporter state.
func (e *Exporter) Status() domain.ExportStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	if st.Progress != nil {
		p := *st.Progress
		st.Progress = &p
	}
	return st
}

// copyFileNoOverwrite copies src to a new file at dst. An existing dst
// is an error. The destination is synced and its size verified; a
// partial file is removed on failure.
func copyFileNoOverwrite(src, dst string) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	srcStat, err := srcFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcStat.Size()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("destination exists with different content: %s", dst)
		}
		return 0, fmt.Errorf("create destination: %w", err)
	}

	written, err := io.Copy(dstFile, srcFile)
	if err == nil {
		// USB drives buffer writes; sync before reporting success.
		err = dstFile.Sync()
	}
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err == nil && written != srcSize {
		err = fmt.Errorf("size mismatch: wrote %d bytes, expected %d", written, srcSize)
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return written, nil
}
