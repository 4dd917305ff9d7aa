package domain

import "time"

// ExportStatusCompleted marks an export record for a run that finished
// without failed files and without being aborted.
const ExportStatusCompleted = "completed"

// ExportRecord is an immutable entry in the export history.
type ExportRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Destination string    `json:"destination"`
	DriveLabel  string    `json:"driveLabel"`
	VideoCount  int       `json:"videoCount"`
	TotalSize   int64     `json:"totalSize"`
	Status      string    `json:"status"`
}

// ExportItem is one file selected for export.
type ExportItem struct {
	VideoID  VideoID  `json:"videoId,omitempty"`
	Path     string   `json:"path"`
	Filename string   `json:"filename"`
	Category Category `json:"category"`
	Size     int64    `json:"size"`
}

// ExportOutcome is the per-file result of an export run.
type ExportOutcome string

const (
	OutcomeCopied  ExportOutcome = "copied"
	OutcomeSkipped ExportOutcome = "skipped"
	OutcomeFailed  ExportOutcome = "failed"
)

// SkipReasonDuplicate is recorded when the destination already holds a
// file with the same name and byte size.
const SkipReasonDuplicate = "Duplicate (same file exists)"

// CopiedFile is a successfully copied export item.
type CopiedFile struct {
	VideoID  VideoID  `json:"videoId,omitempty"`
	Filename string   `json:"filename"`
	Category Category `json:"category"`
	Size     int64    `json:"size"`
}

// SkippedFile is an export item left untouched.
type SkippedFile struct {
	VideoID  VideoID `json:"videoId,omitempty"`
	Filename string  `json:"filename"`
	Reason   string  `json:"reason"`
}

// FailedFile is an export item whose copy raised an error.
type FailedFile struct {
	VideoID  VideoID `json:"videoId,omitempty"`
	Filename string  `json:"filename"`
	Error    string  `json:"error"`
}

// ExportResult summarizes one export run.
type ExportResult struct {
	Success   bool          `json:"success"`
	Aborted   bool          `json:"aborted"`
	Copied    []CopiedFile  `json:"copied"`
	Skipped   []SkippedFile `json:"skipped"`
	Failed    []FailedFile  `json:"failed"`
	TotalSize int64         `json:"totalSize"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Error     string        `json:"error,omitempty"`
}

// ExportProgress is emitted after every file outcome.
type ExportProgress struct {
	Type      ExportOutcome `json:"type"`
	Filename  string        `json:"filename"`
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	Percent   int           `json:"percent"`
}

// ExportPhase is the export engine state.
type ExportPhase string

const (
	PhaseIdle      ExportPhase = "idle"
	PhaseExporting ExportPhase = "exporting"
	PhaseCompleted ExportPhase = "completed"
	PhaseAborted   ExportPhase = "aborted"
	PhaseFailed    ExportPhase = "failed"
)

// ExportStatus is a snapshot of the export engine.
type ExportStatus struct {
	Phase       ExportPhase     `json:"phase"`
	ExportID    string          `json:"exportId,omitempty"`
	Destination string          `json:"destination,omitempty"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	Progress    *ExportProgress `json:"progress,omitempty"`
	LastResult  *ExportResult   `json:"lastResult,omitempty"`
}
