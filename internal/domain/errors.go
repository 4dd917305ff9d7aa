package domain

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Domain errors.
var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrMissingVideoID is returned when a record has no id.
	ErrMissingVideoID = errors.New("video id is required")

	// ErrInvalidCategory is returned for a category outside the closed set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrFileTooLarge is returned when an uploaded file exceeds the size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTooManyFiles is returned when an upload carries more file parts than allowed.
	ErrTooManyFiles = errors.New("too many files")

	// ErrFileTypeNotAllowed is returned when an upload is not a recognized video.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")

	// ErrExportInProgress is returned when an export is already running.
	ErrExportInProgress = errors.New("export already in progress")

	// ErrNoExportInProgress is returned when aborting while idle.
	ErrNoExportInProgress = errors.New("no export in progress")

	// ErrDestinationNotFound is returned when the export root does not exist.
	ErrDestinationNotFound = errors.New("destination not found")

	// ErrInsufficientSpace is returned when the destination cannot hold the selection.
	ErrInsufficientSpace = errors.New("insufficient space")

	// ErrDriveNotFound is returned when a drive id matches no detected drive.
	ErrDriveNotFound = errors.New("drive not found")

	// ErrNoVideosSelected is returned when an export selection resolves to nothing.
	ErrNoVideosSelected = errors.New("no videos selected")
)

// InsufficientSpaceError reports required vs available bytes at a destination.
type InsufficientSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space on %s: need %s, have %s",
		e.Path,
		humanize.IBytes(uint64(e.Required)),
		humanize.IBytes(uint64(max(e.Available, 0))),
	)
}

func (e *InsufficientSpaceError) Unwrap() error {
	return ErrInsufficientSpace
}

// VideoError wraps an error with video context.
type VideoError struct {
	VideoID VideoID
	Op      string
	Err     error
}

func (e *VideoError) Error() string {
	if e.VideoID != "" {
		return e.Op + " [" + e.VideoID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// NewVideoError creates a new VideoError.
func NewVideoError(videoID VideoID, op string, err error) *VideoError {
	return &VideoError{
		VideoID: videoID,
		Op:      op,
		Err:     err,
	}
}
