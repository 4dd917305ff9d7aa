package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, delay time.Duration) *MetadataStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.json")
	return NewMetadataStore(path, delay, testLogger())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func video(id string, category domain.Category, uploaded time.Time) domain.Video {
	return domain.Video{
		ID:         domain.VideoID(id),
		Filename:   id + ".mp4",
		SavedAs:    "1700000000000-" + id + ".mp4",
		Path:       "/tmp/" + id + ".mp4",
		Size:       100,
		MimeType:   "video/mp4",
		Category:   category,
		UploadedAt: uploaded,
	}
}

func TestNewMetadataStore_MissingFile(t *testing.T) {
	store := newTestStore(t, time.Second)
	if got := store.GetVideos(domain.VideoFilter{}); len(got) != 0 {
		t.Errorf("GetVideos() len = %d, want 0", len(got))
	}
	if got := store.GetExports(); len(got) != 0 {
		t.Errorf("GetExports() len = %d, want 0", len(got))
	}
}

func TestMetadataStore_AddAndGet(t *testing.T) {
	store := newTestStore(t, time.Hour)
	now := time.Now().UTC()

	added, err := store.AddVideo(video("v1", domain.CategoryClass7, now))
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}
	if added.ID != "v1" {
		t.Errorf("AddVideo() ID = %q", added.ID)
	}

	got, err := store.GetVideo("v1")
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got.Category != domain.CategoryClass7 || got.Filename != "v1.mp4" {
		t.Errorf("GetVideo() = %+v", got)
	}

	if _, err := store.GetVideo("missing"); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("GetVideo(missing) error = %v, want ErrVideoNotFound", err)
	}
}

func TestMetadataStore_AddVideo_MergesDuplicateID(t *testing.T) {
	store := newTestStore(t, time.Hour)
	now := time.Now().UTC()

	store.AddVideo(video("v1", domain.CategoryOther, now))
	merged, _ := store.AddVideo(domain.Video{ID: "v1", Size: 999})

	if merged.Size != 999 {
		t.Errorf("Size = %d, want 999", merged.Size)
	}
	if merged.Filename != "v1.mp4" {
		t.Errorf("Filename = %q, merge should keep existing fields", merged.Filename)
	}
	if merged.Category != domain.CategoryOther {
		t.Errorf("Category = %q, merge should keep existing category", merged.Category)
	}
	if n := len(store.GetVideos(domain.VideoFilter{})); n != 1 {
		t.Errorf("video count = %d, want 1", n)
	}
}

func TestMetadataStore_AddVideo_CoercesUnknownCategory(t *testing.T) {
	store := newTestStore(t, time.Hour)
	got, _ := store.AddVideo(video("v1", "Holidays", time.Now()))
	if got.Category != domain.CategoryOther {
		t.Errorf("Category = %q, want Other", got.Category)
	}

	empty, _ := store.AddVideo(domain.Video{ID: "v2"})
	if empty.Category != domain.CategoryOther {
		t.Errorf("Category = %q, want Other", empty.Category)
	}
}

func TestMetadataStore_AddVideo_RejectsMissingID(t *testing.T) {
	store := newTestStore(t, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := store.AddVideo(domain.Video{Filename: "orphan.mp4", Size: 10}); !errors.Is(err, domain.ErrMissingVideoID) {
			t.Fatalf("AddVideo() error = %v, want ErrMissingVideoID", err)
		}
	}
	if n := len(store.GetVideos(domain.VideoFilter{})); n != 0 {
		t.Errorf("video count = %d, want 0", n)
	}
	if stats := store.Stats(); stats.TotalVideos != 0 {
		t.Errorf("TotalVideos = %d, want 0", stats.TotalVideos)
	}
}

func TestMetadataStore_GetVideos_SortAndFilter(t *testing.T) {
	store := newTestStore(t, time.Hour)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	store.AddVideo(video("old", domain.CategoryGym, base))
	store.AddVideo(video("new", domain.CategoryGym, base.Add(2*time.Hour)))
	store.AddVideo(video("mid", domain.CategoryClass9, base.Add(time.Hour)))

	all := store.GetVideos(domain.VideoFilter{})
	want := []domain.VideoID{"new", "mid", "old"}
	for i, v := range all {
		if v.ID != want[i] {
			t.Errorf("all[%d] = %q, want %q", i, v.ID, want[i])
		}
	}

	gym := domain.CategoryGym
	gymOnly := store.GetVideos(domain.VideoFilter{Category: &gym})
	if len(gymOnly) != 2 || gymOnly[0].ID != "new" || gymOnly[1].ID != "old" {
		t.Errorf("gym filter = %+v", gymOnly)
	}

	exportedAt := base.Add(3 * time.Hour)
	if _, err := store.UpdateVideo("mid", domain.VideoUpdate{ExportedAt: &exportedAt}); err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}
	yes, no := true, false
	if got := store.GetVideos(domain.VideoFilter{Exported: &yes}); len(got) != 1 || got[0].ID != "mid" {
		t.Errorf("exported filter = %+v", got)
	}
	if got := store.GetVideos(domain.VideoFilter{Exported: &no}); len(got) != 2 || got[0].ID != "new" {
		t.Errorf("not-exported filter = %+v", got)
	}
}

func TestMetadataStore_UpdateVideo(t *testing.T) {
	store := newTestStore(t, time.Hour)
	store.AddVideo(video("v1", domain.CategoryOther, time.Now()))

	at := time.Now().UTC()
	updated, err := store.UpdateVideo("v1", domain.VideoUpdate{
		Classification: &domain.Classification{Category: domain.CategoryClass10, ManualOverride: true, ClassifiedAt: &at},
	})
	if err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}
	if updated.Category != domain.CategoryClass10 || !updated.ManualOverride {
		t.Errorf("UpdateVideo() = %+v", updated)
	}

	if _, err := store.UpdateVideo("missing", domain.VideoUpdate{}); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("UpdateVideo(missing) error = %v", err)
	}
}

func TestMetadataStore_UpdateVideo_InvalidCategoryDoesNotMutate(t *testing.T) {
	store := newTestStore(t, time.Hour)
	store.AddVideo(video("v1", domain.CategoryGym, time.Now()))

	_, err := store.UpdateVideo("v1", domain.VideoUpdate{
		Classification: &domain.Classification{Category: "Class 11"},
	})
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("error = %v, want ErrInvalidCategory", err)
	}

	got, _ := store.GetVideo("v1")
	if got.Category != domain.CategoryGym {
		t.Errorf("Category = %q, want unchanged Gym Videos", got.Category)
	}
}

func TestMetadataStore_DeleteVideo(t *testing.T) {
	store := newTestStore(t, time.Hour)
	store.AddVideo(video("v1", domain.CategoryOther, time.Now()))
	store.AddVideo(video("v2", domain.CategoryOther, time.Now()))

	deleted, err := store.DeleteVideo("v1")
	if err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}
	if deleted.ID != "v1" {
		t.Errorf("deleted ID = %q", deleted.ID)
	}
	if _, err := store.GetVideo("v1"); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Error("video still present after delete")
	}
	if n := len(store.GetVideos(domain.VideoFilter{})); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if _, err := store.DeleteVideo("v1"); !errors.Is(err, domain.ErrVideoNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestMetadataStore_Exports_NewestFirst(t *testing.T) {
	store := newTestStore(t, time.Hour)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.AddExport(domain.ExportRecord{ID: "e1", Timestamp: base})
	store.AddExport(domain.ExportRecord{ID: "e3", Timestamp: base.Add(2 * time.Hour)})
	store.AddExport(domain.ExportRecord{ID: "e2", Timestamp: base.Add(time.Hour)})

	got := store.GetExports()
	want := []string{"e3", "e2", "e1"}
	for i, rec := range got {
		if rec.ID != want[i] {
			t.Errorf("exports[%d] = %q, want %q", i, rec.ID, want[i])
		}
	}
}

func TestMetadataStore_Stats(t *testing.T) {
	store := newTestStore(t, time.Hour)
	store.AddVideo(video("a", domain.CategoryGym, time.Now()))
	store.AddVideo(video("b", domain.CategoryGym, time.Now()))
	store.AddVideo(video("c", domain.CategoryClass7, time.Now()))

	stats := store.Stats()
	if stats.TotalVideos != 3 || stats.TotalSize != 300 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.ByCategory[domain.CategoryGym] != 2 || stats.ByCategory[domain.CategoryClass7] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set after mutations")
	}
}

func TestMetadataStore_DebouncedSave(t *testing.T) {
	store := newTestStore(t, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		store.AddVideo(video(fmt.Sprintf("v%d", i), domain.CategoryOther, time.Now()))
	}

	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatal("file written before debounce window elapsed")
	}

	waitFor(t, 2*time.Second, func() bool { return store.saves.Load() > 0 })
	time.Sleep(250 * time.Millisecond)

	if n := store.saves.Load(); n != 1 {
		t.Errorf("saves = %d, want 1 for a burst of mutations", n)
	}
}

func TestMetadataStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	store := NewMetadataStore(path, 50*time.Millisecond, testLogger())

	uploaded := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store.AddVideo(video("v1", domain.CategoryClass8, uploaded))
	store.AddExport(domain.ExportRecord{ID: "e1", Timestamp: uploaded, Status: domain.ExportStatusCompleted})

	waitFor(t, 2*time.Second, func() bool { return store.saves.Load() > 0 })

	reloaded := NewMetadataStore(path, time.Second, testLogger())
	videos := reloaded.GetVideos(domain.VideoFilter{})
	if len(videos) != 1 {
		t.Fatalf("reloaded videos = %d, want 1", len(videos))
	}
	if videos[0].ID != "v1" || videos[0].Category != domain.CategoryClass8 || !videos[0].UploadedAt.Equal(uploaded) {
		t.Errorf("reloaded video = %+v", videos[0])
	}
	if exports := reloaded.GetExports(); len(exports) != 1 || exports[0].ID != "e1" {
		t.Errorf("reloaded exports = %+v", exports)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Version != DocumentVersion {
		t.Errorf("Version = %q, want %q", doc.Version, DocumentVersion)
	}
}

func TestMetadataStore_Flush(t *testing.T) {
	store := newTestStore(t, time.Hour)
	store.AddVideo(video("v1", domain.CategoryOther, time.Now()))

	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("file missing after Flush: %v", err)
	}

	reloaded := NewMetadataStore(store.Path(), time.Hour, testLogger())
	if _, err := reloaded.GetVideo("v1"); err != nil {
		t.Errorf("GetVideo after reload: %v", err)
	}
}

func TestMetadataStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewMetadataStore(path, time.Hour, testLogger())
	if n := len(store.GetVideos(domain.VideoFilter{})); n != 0 {
		t.Errorf("videos = %d, want 0", n)
	}

	store.AddVideo(video("v1", domain.CategoryOther, time.Now()))
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() over corrupt file: %v", err)
	}
}

func TestMetadataStore_ConcurrentAdds(t *testing.T) {
	store := newTestStore(t, 20*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AddVideo(video(fmt.Sprintf("v%02d", i), domain.CategoryOther, time.Now()))
		}(i)
	}
	wg.Wait()

	if n := len(store.GetVideos(domain.VideoFilter{})); n != 50 {
		t.Errorf("videos = %d, want 50", n)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reloaded := NewMetadataStore(store.Path(), time.Hour, testLogger())
	if n := len(reloaded.GetVideos(domain.VideoFilter{})); n != 50 {
		t.Errorf("reloaded videos = %d, want 50", n)
	}
}
