package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/repository"
	"github.com/iconidentify/videosorter/pkg/drives"
)

// DriveSource provides the latest drive snapshot.
type DriveSource interface {
	Drives() []drives.Drive
}

// ExportService exports tracked videos to a detected drive and records
// the outcome in the metadata store.
type ExportService struct {
	exporter *Exporter
	store    repository.VideoStore
	drives   DriveSource
	events   domain.EventEmitter
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewExportService creates a new export service.
func NewExportService(exporter *Exporter, store repository.VideoStore, driveSrc DriveSource, events domain.EventEmitter, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		exporter: exporter,
		store:    store,
		drives:   driveSrc,
		events:   events,
		logger:   logger,
	}
}

// ExportRequest selects a drive and, optionally, a subset of videos.
// An empty VideoIDs exports every tracked video.
type ExportRequest struct {
	DriveID  string           `json:"driveId"`
	VideoIDs []domain.VideoID `json:"videoIds,omitempty"`
}

// ExportReport is the outcome of a drive export.
type ExportReport struct {
	ExportID string               `json:"exportId"`
	Drive    drives.Drive         `json:"drive"`
	Result   *domain.ExportResult `json:"result"`
}

func (s *ExportService) publish(eventType domain.EventType, severity domain.EventSeverity, message string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, severity, message, payload)
}

// prepare resolves the drive and the export selection.
func (s *ExportService) prepare(req ExportRequest) (drives.Drive, []domain.ExportItem, error) {
	drive, ok := drives.Find(s.drives.Drives(), req.DriveID)
	if !ok {
		return drives.Drive{}, nil, fmt.Errorf("%w: %s", domain.ErrDriveNotFound, req.DriveID)
	}

	videos := s.store.GetVideos(domain.VideoFilter{})
	if len(req.VideoIDs) > 0 {
		wanted := make(map[domain.VideoID]bool, len(req.VideoIDs))
		for _, id := range req.VideoIDs {
			wanted[id] = true
		}
		selected := videos[:0]
		for _, v := range videos {
			if wanted[v.ID] {
				selected = append(selected, v)
			}
		}
		videos = selected
	}
	if len(videos) == 0 {
		return drives.Drive{}, nil, domain.ErrNoVideosSelected
	}

	items := make([]domain.ExportItem, 0, len(videos))
	for _, v := range videos {
		name := v.Filename
		if name == "" {
			name = v.SavedAs
		}
		items = append(items, domain.ExportItem{
			VideoID:  v.ID,
			Path:     v.Path,
			Filename: name,
			Category: v.Category,
			Size:     v.Size,
		})
	}
	return drive, items, nil
}

// ExportToDrive runs an export synchronously.
func (s *ExportService) ExportToDrive(ctx context.Context, req ExportRequest) (*ExportReport, error) {
	drive, run, err := s.begin(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, drive, run), nil
}

// StartExportAsync validates the request, claims the exporter, and runs
// the copy in the background. Precondition errors are returned directly.
func (s *ExportService) StartExportAsync(req ExportRequest) (string, error) {
	drive, run, err := s.begin(req)
	if err != nil {
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(context.Background(), drive, run)
	}()
	return run.id, nil
}

func (s *ExportService) begin(req ExportRequest) (drives.Drive, *ExportRun, error) {
	drive, items, err := s.prepare(req)
	if err != nil {
		return drives.Drive{}, nil, err
	}

	exportID := uuid.New().String()
	run, err := s.exporter.Begin(exportID, items, drive.Path)
	if err != nil {
		return drives.Drive{}, nil, err
	}

	s.logger.Info("export started",
		"export_id", exportID,
		"drive", drive.Device,
		"destination", drive.Path,
		"videos", len(items),
	)
	return drive, run, nil
}

func (s *ExportService) execute(ctx context.Context, drive drives.Drive, run *ExportRun) *ExportReport {
	result := run.Execute(ctx, func(p domain.ExportProgress) {
		s.publish(domain.EventExportProgress, domain.EventSeverityInfo,
			fmt.Sprintf("%s %s (%d/%d)", p.Type, p.Filename, p.Completed, p.Total), p)
	})

	if result.Success {
		s.recordSuccess(run.id, drive, result)
	}

	report := &ExportReport{ExportID: run.id, Drive: drive, Result: result}
	severity := domain.EventSeveritySuccess
	message := fmt.Sprintf("Exported %d file(s) to %s", len(result.Copied), drive.Label)
	if !result.Success {
		severity = domain.EventSeverityWarning
		message = fmt.Sprintf("Export to %s ended: %s", drive.Label, result.Error)
	}
	s.publish(domain.EventExportComplete, severity, message, report)
	return report
}

// recordSuccess stamps copied videos and appends the export record.
func (s *ExportService) recordSuccess(exportID string, drive drives.Drive, result *domain.ExportResult) {
	stamp := result.EndTime
	for _, c := range result.Copied {
		if c.VideoID == "" {
			continue
		}
		if _, err := s.store.UpdateVideo(c.VideoID, domain.VideoUpdate{ExportedAt: &stamp}); err != nil {
			s.logger.Warn("failed to stamp exported video", "video_id", c.VideoID, "error", err)
		}
	}

	s.store.AddExport(domain.ExportRecord{
		ID:          exportID,
		Timestamp:   stamp,
		Destination: drive.Path,
		DriveLabel:  drive.Label,
		VideoCount:  len(result.Copied),
		TotalSize:   result.TotalSize,
		Status:      domain.ExportStatusCompleted,
	})
}

// Abort requests the active export to stop before its next file.
func (s *ExportService) Abort() error {
	return s.exporter.Abort()
}

// Status returns the exporter state.
func (s *ExportService) Status() domain.ExportStatus {
	return s.exporter.Status()
}

// History returns past export records, newest first.
func (s *ExportService) History() []domain.ExportRecord {
	return s.store.GetExports()
}

// Wait blocks until background exports finish or timeout elapses.
func (s *ExportService) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("export still running after %s", timeout)
	}
}
