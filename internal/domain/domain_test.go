package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Category Tests
// =============================================================================

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{"class 7", "Class 7", CategoryClass7, false},
		{"class 10", "Class 10", CategoryClass10, false},
		{"gym", "Gym Videos", CategoryGym, false},
		{"other", "Other", CategoryOther, false},
		{"surrounding whitespace", "  Class 8 ", CategoryClass8, false},
		{"lowercase rejected", "class 7", "", true},
		{"unknown", "Holidays", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCategory) {
					t.Fatalf("ParseCategory(%q) error = %v, want ErrInvalidCategory", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCategory(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategories_ReturnsCopy(t *testing.T) {
	cats := Categories()
	if len(cats) != 6 {
		t.Fatalf("len(Categories()) = %d, want 6", len(cats))
	}
	cats[0] = "mutated"
	if Categories()[0] != CategoryClass7 {
		t.Error("Categories() exposed internal slice")
	}
}

// =============================================================================
// Video Tests
// =============================================================================

func TestVideoFilter_Matches(t *testing.T) {
	now := time.Now()
	exported := &Video{Category: CategoryGym, ExportedAt: &now}
	fresh := &Video{Category: CategoryClass9}

	gym := CategoryGym
	yes, no := true, false

	tests := []struct {
		name   string
		filter VideoFilter
		video  *Video
		want   bool
	}{
		{"empty filter", VideoFilter{}, fresh, true},
		{"category match", VideoFilter{Category: &gym}, exported, true},
		{"category mismatch", VideoFilter{Category: &gym}, fresh, false},
		{"exported only", VideoFilter{Exported: &yes}, exported, true},
		{"exported only rejects fresh", VideoFilter{Exported: &yes}, fresh, false},
		{"not exported", VideoFilter{Exported: &no}, fresh, true},
		{"both", VideoFilter{Category: &gym, Exported: &no}, exported, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.video); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideo_ApplyClassification(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v := &Video{Category: CategoryOther, AutoClassified: true, MatchedRule: "x"}
	v.ApplyClassification(Classification{
		Category:       CategoryClass10,
		ManualOverride: true,
		ClassifiedAt:   &at,
	})

	if v.Category != CategoryClass10 {
		t.Errorf("Category = %q", v.Category)
	}
	if v.AutoClassified {
		t.Error("AutoClassified should be cleared")
	}
	if v.MatchedRule != "" {
		t.Errorf("MatchedRule = %q, want empty", v.MatchedRule)
	}
	if v.ClassifiedAt == nil || !v.ClassifiedAt.Equal(at) {
		t.Errorf("ClassifiedAt = %v", v.ClassifiedAt)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Path: "/media/usb", Required: 2 << 30, Available: 0}

	if !errors.Is(err, ErrInsufficientSpace) {
		t.Error("errors.Is(err, ErrInsufficientSpace) = false")
	}
	msg := err.Error()
	if !strings.Contains(msg, "/media/usb") || !strings.Contains(msg, "2.0 GiB") {
		t.Errorf("Error() = %q", msg)
	}

	var target *InsufficientSpaceError
	if !errors.As(err, &target) || target.Required != 2<<30 {
		t.Error("errors.As did not recover the typed error")
	}
}

func TestVideoError(t *testing.T) {
	err := NewVideoError("abc", "delete", ErrVideoNotFound)
	if err.Error() != "delete [abc]: video not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrVideoNotFound) {
		t.Error("VideoError should unwrap to ErrVideoNotFound")
	}

	noID := NewVideoError("", "load", errors.New("boom"))
	if noID.Error() != "load: boom" {
		t.Errorf("Error() = %q", noID.Error())
	}
}
