package classifier

import (
	"errors"
	"testing"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     domain.Category
	}{
		{"Math Class 9 Lecture.mp4", domain.CategoryClass9},
		{"class7_algebra.mkv", domain.CategoryClass7},
		{"CH.8 Notes.mov", domain.CategoryClass8},
		{"ch10-revision.mp4", domain.CategoryClass10},
		{"Chapter 10 summary.webm", domain.CategoryClass10},
		{"9th grade physics.avi", domain.CategoryClass9},
		{"Morning Yoga.mp4", domain.CategoryGym},
		{"leg day WORKOUT.m4v", domain.CategoryGym},
		{"vacation_trip.mp4", domain.CategoryOther},
		{"", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := Classify(tt.filename)
			if got.Category != tt.want {
				t.Errorf("Classify(%q).Category = %q, want %q", tt.filename, got.Category, tt.want)
			}
			if !got.AutoClassified {
				t.Error("AutoClassified = false, want true")
			}
		})
	}
}

func TestClassify_Confidence(t *testing.T) {
	hit := Classify("Math Class 9 Lecture.mp4")
	if hit.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", hit.Confidence)
	}
	if hit.MatchedRule == "" {
		t.Error("MatchedRule should be set on a match")
	}

	miss := Classify("vacation_trip.mp4")
	if miss.Confidence != domain.ConfidenceDefault {
		t.Errorf("Confidence = %q, want default", miss.Confidence)
	}
	if miss.MatchedRule != "" {
		t.Errorf("MatchedRule = %q, want empty", miss.MatchedRule)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Matches both a class rule and a gym keyword.
	got := Classify("class 8 gym session.mp4")
	if got.Category != domain.CategoryClass8 {
		t.Errorf("Category = %q, want Class 8", got.Category)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if Classify("fitness class 10.mp4") != Classify("fitness class 10.mp4") {
			t.Fatal("Classify is not deterministic")
		}
	}
}

func TestRules_PriorityOrder(t *testing.T) {
	for i := 1; i < len(rules); i++ {
		if rules[i].Priority < rules[i-1].Priority {
			t.Errorf("rule %d priority %d precedes lower priority %d", i, rules[i-1].Priority, rules[i].Priority)
		}
	}
}

func TestManual(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orig := now
	now = func() time.Time { return fixed }
	defer func() { now = orig }()

	got, err := Manual("Gym Videos")
	if err != nil {
		t.Fatalf("Manual() error = %v", err)
	}
	if got.Category != domain.CategoryGym || got.AutoClassified || !got.ManualOverride {
		t.Errorf("Manual() = %+v", got)
	}
	if got.ClassifiedAt == nil || !got.ClassifiedAt.Equal(fixed) {
		t.Errorf("ClassifiedAt = %v, want %v", got.ClassifiedAt, fixed)
	}
}

func TestManual_InvalidCategory(t *testing.T) {
	for _, c := range []string{"", "Class 11", "gym videos"} {
		if _, err := Manual(c); !errors.Is(err, domain.ErrInvalidCategory) {
			t.Errorf("Manual(%q) error = %v, want ErrInvalidCategory", c, err)
		}
	}
}

func TestBulk_PreservesOrder(t *testing.T) {
	names := []string{"yoga.mp4", "class 7.mp4", "misc.mp4", "class 7.mp4"}
	results := Bulk(names)
	if len(results) != len(names) {
		t.Fatalf("len = %d, want %d", len(results), len(names))
	}
	want := []domain.Category{domain.CategoryGym, domain.CategoryClass7, domain.CategoryOther, domain.CategoryClass7}
	for i, r := range results {
		if r.Filename != names[i] {
			t.Errorf("results[%d].Filename = %q, want %q", i, r.Filename, names[i])
		}
		if r.Category != want[i] {
			t.Errorf("results[%d].Category = %q, want %q", i, r.Category, want[i])
		}
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("class 9 cardio")
	if len(got) != 2 || got[0].Category != domain.CategoryClass9 || got[1].Category != domain.CategoryGym {
		t.Errorf("Suggest() = %+v", got)
	}

	none := Suggest("holiday")
	if len(none) != 1 || none[0].Category != domain.CategoryOther || none[0].Confidence != domain.ConfidenceDefault {
		t.Errorf("Suggest() = %+v", none)
	}
}
