package repository

import "github.com/iconidentify/videosorter/internal/domain"

// VideoStore is the read/write surface over tracked videos and the
// export history. MetadataStore is the only implementation; services
// depend on this interface so tests can substitute fakes.
type VideoStore interface {
	// AddVideo inserts v, or merges it into the record with the same id.
	AddVideo(v domain.Video) (domain.Video, error)

	// UpdateVideo applies a partial update to an existing record.
	UpdateVideo(id domain.VideoID, upd domain.VideoUpdate) (domain.Video, error)

	// DeleteVideo removes a record and returns it.
	DeleteVideo(id domain.VideoID) (domain.Video, error)

	// GetVideo returns one record by id.
	GetVideo(id domain.VideoID) (domain.Video, error)

	// GetVideos returns matching records, newest upload first.
	GetVideos(filter domain.VideoFilter) []domain.Video

	// AddExport appends an export record.
	AddExport(rec domain.ExportRecord) domain.ExportRecord

	// GetExports returns the export history, newest first.
	GetExports() []domain.ExportRecord

	// Stats summarizes the tracked videos.
	Stats() domain.StoreStats
}
