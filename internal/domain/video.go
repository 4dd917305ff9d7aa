package domain

import (
	"strings"
	"time"
)

// VideoID is a unique identifier for a video.
type VideoID string

// String returns the string representation of the VideoID.
func (id VideoID) String() string {
	return string(id)
}

// Category is the label a video is sorted into.
type Category string

const (
	CategoryClass7  Category = "Class 7"
	CategoryClass8  Category = "Class 8"
	CategoryClass9  Category = "Class 9"
	CategoryClass10 Category = "Class 10"
	CategoryGym     Category = "Gym Videos"
	CategoryOther   Category = "Other"
)

var categories = []Category{
	CategoryClass7,
	CategoryClass8,
	CategoryClass9,
	CategoryClass10,
	CategoryGym,
	CategoryOther,
}

// Categories returns the closed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is a member of the category set.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory returns the category named s or ErrInvalidCategory.
// Matching is exact apart from surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Confidence is the classification confidence tier.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceDefault Confidence = "default"
)

// Classification is the outcome of automatic or manual classification.
type Classification struct {
	Category       Category   `json:"category"`
	AutoClassified bool       `json:"autoClassified"`
	ManualOverride bool       `json:"manualOverride,omitempty"`
	Confidence     Confidence `json:"confidence,omitempty"`
	MatchedRule    string     `json:"matchedRule,omitempty"`
	ClassifiedAt   *time.Time `json:"classifiedAt,omitempty"`
}

// Video is a tracked upload as persisted in the metadata document.
type Video struct {
	ID             VideoID    `json:"id"`
	Filename       string     `json:"filename"`
	SavedAs        string     `json:"savedAs"`
	Path           string     `json:"path"`
	Size           int64      `json:"size"`
	MimeType       string     `json:"mimeType"`
	Category       Category   `json:"category"`
	AutoClassified bool       `json:"autoClassified"`
	ManualOverride bool       `json:"manualOverride,omitempty"`
	Confidence     Confidence `json:"confidence,omitempty"`
	MatchedRule    string     `json:"matchedRule,omitempty"`
	UploadedAt     time.Time  `json:"uploadedAt"`
	ClassifiedAt   *time.Time `json:"classifiedAt,omitempty"`
	ExportedAt     *time.Time `json:"exportedAt"`
}

// IsExported reports whether the video has been exported at least once.
func (v *Video) IsExported() bool {
	return v.ExportedAt != nil
}

// ApplyClassification copies a classification result onto the record.
func (v *Video) ApplyClassification(c Classification) {
	v.Category = c.Category
	v.AutoClassified = c.AutoClassified
	v.ManualOverride = c.ManualOverride
	v.Confidence = c.Confidence
	v.MatchedRule = c.MatchedRule
	v.ClassifiedAt = c.ClassifiedAt
}

// UploadedFile describes one file stored by the upload endpoint.
type UploadedFile struct {
	ID         VideoID   `json:"id"`
	Filename   string    `json:"filename"`
	SavedAs    string    `json:"savedAs"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// VideoFilter narrows a video listing. Nil fields match everything.
type VideoFilter struct {
	Category *Category
	Exported *bool
}

// Matches reports whether v passes the filter.
func (f VideoFilter) Matches(v *Video) bool {
	if f.Category != nil && v.Category != *f.Category {
		return false
	}
	if f.Exported != nil && v.IsExported() != *f.Exported {
		return false
	}
	return true
}

// VideoUpdate carries a partial mutation of a video record.
type VideoUpdate struct {
	Classification *Classification
	ExportedAt     *time.Time
}

// StoreStats summarizes the tracked videos.
type StoreStats struct {
	TotalVideos int              `json:"totalVideos"`
	TotalSize   int64            `json:"totalSize"`
	ByCategory  map[Category]int `json:"byCategory"`
	LastUpdated time.Time        `json:"lastUpdated"`
}
