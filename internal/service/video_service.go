package service

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/iconidentify/videosorter/internal/classifier"
	"github.com/iconidentify/videosorter/internal/domain"
	"github.com/iconidentify/videosorter/internal/repository"
)

// VideoService classifies uploads and manages tracked videos.
type VideoService struct {
	store  repository.VideoStore
	events domain.EventEmitter
	logger *slog.Logger
	now    func() time.Time
}

// NewVideoService creates a new video service.
func NewVideoService(store repository.VideoStore, events domain.EventEmitter, logger *slog.Logger) *VideoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoService{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

func (s *VideoService) publish(eventType domain.EventType, message string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, domain.EventSeverityInfo, message, payload)
}

// HandleUpload classifies a stored upload and records it.
func (s *VideoService) HandleUpload(f domain.UploadedFile) (domain.Video, error) {
	c := classifier.Classify(f.Filename)
	at := s.now().UTC()
	c.ClassifiedAt = &at

	v := domain.Video{
		ID:         f.ID,
		Filename:   f.Filename,
		SavedAs:    f.SavedAs,
		Path:       f.Path,
		Size:       f.Size,
		MimeType:   f.MimeType,
		UploadedAt: f.UploadedAt,
	}
	v.ApplyClassification(c)

	stored, err := s.store.AddVideo(v)
	if err != nil {
		return domain.Video{}, fmt.Errorf("record upload %s: %w", f.Filename, err)
	}
	s.logger.Info("video added",
		"video_id", stored.ID,
		"filename", stored.Filename,
		"category", stored.Category,
		"size", stored.Size,
	)
	s.publish(domain.EventVideoAdded, fmt.Sprintf("%s -> %s", stored.Filename, stored.Category), stored)
	return stored, nil
}

// List returns videos matching filter, newest first.
func (s *VideoService) List(filter domain.VideoFilter) []domain.Video {
	return s.store.GetVideos(filter)
}

// Get returns a single video.
func (s *VideoService) Get(id domain.VideoID) (domain.Video, error) {
	return s.store.GetVideo(id)
}

// Classify manually sets the category of a video.
func (s *VideoService) Classify(id domain.VideoID, category string) (domain.Video, error) {
	c, err := classifier.Manual(category)
	if err != nil {
		return domain.Video{}, err
	}
	v, err := s.store.UpdateVideo(id, domain.VideoUpdate{Classification: &c})
	if err != nil {
		return domain.Video{}, err
	}
	s.publish(domain.EventVideoUpdated, fmt.Sprintf("%s -> %s", v.Filename, v.Category), v)
	return v, nil
}

// BulkClassify sets one category on several videos. The category and
// every id are validated before any record changes.
func (s *VideoService) BulkClassify(ids []domain.VideoID, category string) ([]domain.Video, error) {
	c, err := classifier.Manual(category)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := s.store.GetVideo(id); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Video, 0, len(ids))
	for _, id := range ids {
		v, err := s.store.UpdateVideo(id, domain.VideoUpdate{Classification: &c})
		if err != nil {
			// Deleted concurrently.
			s.logger.Warn("bulk classify skipped video", "video_id", id, "error", err)
			continue
		}
		out = append(out, v)
		s.publish(domain.EventVideoUpdated, fmt.Sprintf("%s -> %s", v.Filename, v.Category), v)
	}
	return out, nil
}

// Preview classifies filenames without touching the store.
func (s *VideoService) Preview(filenames []string) []classifier.Result {
	return classifier.Bulk(filenames)
}

// Delete removes a video record and its stored file.
func (s *VideoService) Delete(id domain.VideoID) (domain.Video, error) {
	v, err := s.store.GetVideo(id)
	if err != nil {
		return domain.Video{}, err
	}
	if v.Path != "" {
		if err := os.Remove(v.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.Video{}, domain.NewVideoError(id, "remove file", err)
		}
	}
	deleted, err := s.store.DeleteVideo(id)
	if err != nil {
		return domain.Video{}, err
	}
	s.logger.Info("video deleted", "video_id", id, "filename", deleted.Filename)
	s.publish(domain.EventVideoDeleted, deleted.Filename, map[string]domain.VideoID{"id": id})
	return deleted, nil
}

// Stats summarizes tracked videos.
func (s *VideoService) Stats() domain.StoreStats {
	return s.store.Stats()
}
