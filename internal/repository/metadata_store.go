package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

// DocumentVersion is written into every saved metadata document.
const DocumentVersion = "1.0"

// DefaultSaveDelay is the debounce window between a mutation and the write.
const DefaultSaveDelay = time.Second

// Document is the JSON structure persisted to disk.
type Document struct {
	Version     string                `json:"version"`
	LastUpdated time.Time             `json:"lastUpdated"`
	Videos      []domain.Video        `json:"videos"`
	Exports     []domain.ExportRecord `json:"exports"`
}

// MetadataStore keeps videos and export records in memory and persists
// them to a single JSON document. Mutations apply immediately; the write
// to disk is debounced.
type MetadataStore struct {
	path      string
	saveDelay time.Duration
	logger    *slog.Logger

	mu          sync.RWMutex
	videos      []*domain.Video
	index       map[domain.VideoID]*domain.Video
	exports     []domain.ExportRecord
	lastUpdated time.Time
	timer       *time.Timer

	// writeMu serializes file writes so a later snapshot never lands
	// before an earlier one.
	writeMu sync.Mutex
	saves   atomic.Int64
}

// NewMetadataStore creates a store backed by path and loads it.
func NewMetadataStore(path string, saveDelay time.Duration, logger *slog.Logger) *MetadataStore {
	if logger == nil {
		logger = slog.Default()
	}
	if saveDelay <= 0 {
		saveDelay = DefaultSaveDelay
	}
	s := &MetadataStore{
		path:      path,
		saveDelay: saveDelay,
		logger:    logger,
		index:     make(map[domain.VideoID]*domain.Video),
	}
	s.Load()
	return s
}

// Path returns the backing file path.
func (s *MetadataStore) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file contents. A missing
// file yields an empty store. An unreadable or corrupt file is logged
// and also yields an empty store.
func (s *MetadataStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("metadata unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("metadata corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	for i := range doc.Videos {
		v := doc.Videos[i]
		if v.ID == "" {
			continue
		}
		if !v.Category.Valid() {
			v.Category = domain.CategoryOther
		}
		if existing, ok := s.index[v.ID]; ok {
			mergeVideo(existing, v)
			continue
		}
		s.insert(&v)
	}
	s.exports = append(s.exports, doc.Exports...)
	s.lastUpdated = doc.LastUpdated

	s.logger.Info("metadata loaded", "path", s.path, "videos", len(s.videos), "exports", len(s.exports))
}

func (s *MetadataStore) reset() {
	s.videos = nil
	s.index = make(map[domain.VideoID]*domain.Video)
	s.exports = nil
	s.lastUpdated = time.Time{}
}

func (s *MetadataStore) insert(v *domain.Video) {
	s.videos = append(s.videos, v)
	s.index[v.ID] = v
}

// AddVideo inserts v. When a record with the same id exists, the
// non-zero fields of v are merged into it instead. A record without an id
// is rejected.
func (s *MetadataStore) AddVideo(v domain.Video) (domain.Video, error) {
	if v.ID == "" {
		return domain.Video{}, domain.NewVideoError("", "add", domain.ErrMissingVideoID)
	}
	if v.Category != "" && !v.Category.Valid() {
		v.Category = domain.CategoryOther
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.index[v.ID]; ok {
		mergeVideo(existing, v)
		s.touch()
		return *existing, nil
	}

	rec := v
	if rec.Category == "" {
		rec.Category = domain.CategoryOther
	}
	s.insert(&rec)
	s.touch()
	return rec, nil
}

// UpdateVideo applies upd to the record with the given id. A
// classification outside the category set is rejected without mutation.
func (s *MetadataStore) UpdateVideo(id domain.VideoID, upd domain.VideoUpdate) (domain.Video, error) {
	if upd.Classification != nil && !upd.Classification.Category.Valid() {
		return domain.Video{}, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, upd.Classification.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.index[id]
	if !ok {
		return domain.Video{}, domain.NewVideoError(id, "update", domain.ErrVideoNotFound)
	}
	if upd.Classification != nil {
		v.ApplyClassification(*upd.Classification)
	}
	if upd.ExportedAt != nil {
		at := *upd.ExportedAt
		v.ExportedAt = &at
	}
	s.touch()
	return *v, nil
}

// DeleteVideo removes the record with the given id.
func (s *MetadataStore) DeleteVideo(id domain.VideoID) (domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.index[id]
	if !ok {
		return domain.Video{}, domain.NewVideoError(id, "delete", domain.ErrVideoNotFound)
	}
	delete(s.index, id)
	s.videos = slices.DeleteFunc(s.videos, func(x *domain.Video) bool { return x.ID == id })
	s.touch()
	return *v, nil
}

// GetVideo returns the record with the given id.
func (s *MetadataStore) GetVideo(id domain.VideoID) (domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.index[id]
	if !ok {
		return domain.Video{}, domain.NewVideoError(id, "get", domain.ErrVideoNotFound)
	}
	return *v, nil
}

// GetVideos returns records matching filter, newest upload first.
func (s *MetadataStore) GetVideos(filter domain.VideoFilter) []domain.Video {
	s.mu.RLock()
	out := make([]domain.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if filter.Matches(v) {
			out = append(out, *v)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.Video) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return out
}

// AddExport appends rec to the export history.
func (s *MetadataStore) AddExport(rec domain.ExportRecord) domain.ExportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exports = append(s.exports, rec)
	s.touch()
	return rec
}

// GetExports returns the export history, newest first.
func (s *MetadataStore) GetExports() []domain.ExportRecord {
	s.mu.RLock()
	out := slices.Clone(s.exports)
	s.mu.RUnlock()

	if out == nil {
		out = []domain.ExportRecord{}
	}
	slices.SortStableFunc(out, func(a, b domain.ExportRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Stats summarizes the tracked videos.
func (s *MetadataStore) Stats() domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StoreStats{
		ByCategory:  make(map[domain.Category]int),
		LastUpdated: s.lastUpdated,
	}
	for _, v := range s.videos {
		stats.TotalVideos++
		stats.TotalSize += v.Size
		stats.ByCategory[v.Category]++
	}
	return stats
}

// Flush cancels any pending debounced write and saves immediately.
func (s *MetadataStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.save()
}

// Close flushes pending state to disk.
func (s *MetadataStore) Close() error {
	return s.Flush()
}

// touch records a mutation and (re)schedules the debounced save.
// Caller must hold s.mu.
func (s *MetadataStore) touch() {
	s.lastUpdated = time.Now().UTC()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.saveDelay, func() {
		if err := s.save(); err != nil {
			s.logger.Error("failed to save metadata", "path", s.path, "error", err)
		}
	})
}

func (s *MetadataStore) snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := Document{
		Version:     DocumentVersion,
		LastUpdated: s.lastUpdated,
		Videos:      make([]domain.Video, 0, len(s.videos)),
		Exports:     slices.Clone(s.exports),
	}
	if doc.Exports == nil {
		doc.Exports = []domain.ExportRecord{}
	}
	for _, v := range s.videos {
		doc.Videos = append(doc.Videos, *v)
	}
	return doc
}

// save writes the current document atomically via a temp file.
func (s *MetadataStore) save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename metadata: %w", err)
	}

	s.saves.Add(1)
	return nil
}

// mergeVideo copies the non-zero fields of src onto dst.
func mergeVideo(dst *domain.Video, src domain.Video) {
	if src.Filename != "" {
		dst.Filename = src.Filename
	}
	if src.SavedAs != "" {
		dst.SavedAs = src.SavedAs
	}
	if src.Path != "" {
		dst.Path = src.Path
	}
	if src.Size != 0 {
		dst.Size = src.Size
	}
	if src.MimeType != "" {
		dst.MimeType = src.MimeType
	}
	if src.Category != "" {
		dst.Category = src.Category
		dst.AutoClassified = src.AutoClassified
		dst.ManualOverride = src.ManualOverride
		dst.Confidence = src.Confidence
		dst.MatchedRule = src.MatchedRule
	}
	if !src.UploadedAt.IsZero() {
		dst.UploadedAt = src.UploadedAt
	}
	if src.ClassifiedAt != nil {
		dst.ClassifiedAt = src.ClassifiedAt
	}
	if src.ExportedAt != nil {
		dst.ExportedAt = src.ExportedAt
	}
}
