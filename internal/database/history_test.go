package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/brewcrawl/internal/model"
)

func openTestDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestRun(id, brewery string, started time.Time) *model.Run {
	ds := model.NewDataset()
	r := model.NewRecord()
	r.Set("Name", "Pale Ale")
	r.Set("ABV:", "5.2%")
	ds.Put("/beer/pale-ale/1/", r)
	ds.Put("/beer/old-name/2/", model.NewAliasRecord())

	return &model.Run{
		ID:             id,
		SeedURL:        "https://www.ratebeer.com/brewers/" + brewery + "/1/",
		BreweryName:    brewery,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Minute),
		BeerURLs:       []string{"/beer/pale-ale/1/", "/beer/old-name/2/", "/beer/gone/3/"},
		Dataset:        ds,
		PerformedSteps: []string{"crawl", "extract"},
		Failures: []model.Failure{
			{URL: "/beer/gone/3/", Kind: model.FailureFetch, Message: "fetch failed: 404"},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file missing: %v", err)
		}
		if db.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()
		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopen existing database", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		_ = db.Close()
	})
}

func TestHistoryDB_SaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := createTestRun("run-1", "acme", started)

	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil")
	}

	if got.SeedURL != run.SeedURL || got.BreweryName != "acme" {
		t.Errorf("metadata = %q %q", got.SeedURL, got.BreweryName)
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started.Add(time.Minute)) {
		t.Errorf("times = %v %v", got.StartedAt, got.FinishedAt)
	}
	if diff := cmp.Diff(run.BeerURLs, got.BeerURLs); diff != "" {
		t.Errorf("BeerURLs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(run.PerformedSteps, got.PerformedSteps); diff != "" {
		t.Errorf("PerformedSteps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(run.Failures, got.Failures); diff != "" {
		t.Errorf("Failures mismatch (-want +got):\n%s", diff)
	}

	if got.Dataset.Len() != 2 {
		t.Fatalf("Dataset.Len() = %d, want 2", got.Dataset.Len())
	}
	if diff := cmp.Diff(run.Dataset.URLs(), got.Dataset.URLs()); diff != "" {
		t.Errorf("dataset order mismatch (-want +got):\n%s", diff)
	}
	rec, _ := got.Dataset.Get("/beer/pale-ale/1/")
	if diff := cmp.Diff([]string{"Name", "ABV:"}, rec.Keys()); diff != "" {
		t.Errorf("record keys mismatch (-want +got):\n%s", diff)
	}
	alias, _ := got.Dataset.Get("/beer/old-name/2/")
	if !alias.IsAlias() {
		t.Error("alias record lost its marker")
	}
	if got.Status() != "completed with failures" {
		t.Errorf("Status() = %q", got.Status())
	}
}

func TestHistoryDB_GetRunNotFound(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	got, err := db.GetRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun() = %+v, want nil", got)
	}
}

func TestHistoryDB_SaveRunReplaces(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	run := createTestRun("run-1", "acme", time.Now().UTC())
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	run.BeerURLs = run.BeerURLs[:1]
	run.Failures = nil
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(got.BeerURLs) != 1 {
		t.Errorf("BeerURLs = %v, want 1 link", got.BeerURLs)
	}
	if len(got.Failures) != 0 {
		t.Errorf("Failures = %v, want none", got.Failures)
	}

	runs, err := db.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns() returned %d runs, want 1", len(runs))
	}
}

func TestHistoryDB_SaveFailedRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	run := &model.Run{
		ID:        "failed",
		SeedURL:   "https://www.ratebeer.com/brewers/acme/1/",
		StartedAt: time.Now().UTC(),
		Err:       errors.New("crawl aborted"),
	}
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := db.GetRun(ctx, "failed")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status() != "failed: crawl aborted" {
		t.Errorf("Status() = %q", got.Status())
	}
	if got.Dataset.Len() != 0 {
		t.Errorf("Dataset.Len() = %d, want 0", got.Dataset.Len())
	}
}

func TestHistoryDB_ListRuns(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, brewery := range []string{"acme", "other", "acme"} {
		run := createTestRun("run-"+string(rune('a'+i)), brewery, base.Add(time.Duration(i)*time.Hour))
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		brewery string
		limit   int
		want    []string
	}{
		{name: "all newest first", want: []string{"run-c", "run-b", "run-a"}},
		{name: "filter by brewery", brewery: "acme", want: []string{"run-c", "run-a"}},
		{name: "limit", limit: 1, want: []string{"run-c"}},
		{name: "unknown brewery", brewery: "nobody", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := db.ListRuns(ctx, tt.brewery, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ListRuns() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	runs, err := db.ListRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	s := runs[0]
	if s.BeerLinks != 3 || s.Records != 2 || s.Failures != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", s.BeerLinks, s.Records, s.Failures)
	}
}

func TestHistoryDB_LatestRecord(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := createTestRun("older", "acme", base)
	newer := createTestRun("newer", "acme", base.Add(time.Hour))
	rec, _ := newer.Dataset.Get("/beer/pale-ale/1/")
	rec.Set("ABV:", "5.5%")

	for _, r := range []*model.Run{newer, older} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	got, err := db.LatestRecord(ctx, "/beer/pale-ale/1/")
	if err != nil {
		t.Fatalf("LatestRecord() error = %v", err)
	}
	if got.String("ABV:") != "5.5%" {
		t.Errorf("ABV = %q, want 5.5%%", got.String("ABV:"))
	}

	missing, err := db.LatestRecord(ctx, "/beer/unknown/9/")
	if err != nil {
		t.Fatalf("LatestRecord() error = %v", err)
	}
	if missing != nil {
		t.Errorf("LatestRecord() = %v, want nil", missing)
	}
}

func TestHistoryDB_DeleteRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	if err := db.SaveRun(ctx, createTestRun("run-1", "acme", time.Now().UTC())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	deleted, err := db.DeleteRun(ctx, "run-1")
	if err != nil || !deleted {
		t.Fatalf("DeleteRun() = %v, %v", deleted, err)
	}
	deleted, err = db.DeleteRun(ctx, "run-1")
	if err != nil || deleted {
		t.Errorf("second DeleteRun() = %v, %v", deleted, err)
	}

	rec, err := db.LatestRecord(ctx, "/beer/pale-ale/1/")
	if err != nil {
		t.Fatalf("LatestRecord() error = %v", err)
	}
	if rec != nil {
		t.Error("records survived run deletion")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "rfc3339 nano", input: "2024-05-01T12:00:00.5Z", want: time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
		{name: "rfc3339", input: "2024-05-01T12:00:00Z", want: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{name: "sqlite datetime", input: "2024-05-01 12:00:00", want: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{name: "empty", input: "", want: time.Time{}},
		{name: "garbage", input: "yesterday", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
