package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/medline/expocrawl/pkg/models"
)

func sampleRun() *models.CrawlRun {
	run := models.NewRun("20260825-120000-deadbeef", "https://site.test/")
	sec := run.AddSection("Imaging")
	sub := sec.AddSubcategory("Endoscopes", "https://site.test/cat/endo")
	entry := &models.IndexEntry{Title: "Rigid endoscopes", URL: "https://site.test/list/rigid"}
	sub.AddEntry(entry)

	tile := &models.TileSummary{Title: "Scope X", DetailURL: "https://site.test/prod/scope-x"}
	tile.Record = models.MergeRecord(tile, &models.ProductDetail{Price: "$99", Currency: "USD"})
	entry.AddTile(tile)

	failed := &models.TileSummary{Title: "Scope Y"}
	failed.Failure = models.NewFailure("tiles", models.FailureNoDetailURL, "no product link in tile")
	entry.AddTile(failed)

	run.Finalize(false)
	return run
}

func TestArchiveRoundTrip(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer a.Close()

	run := sampleRun()
	if err := a.Save(context.Background(), run); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := a.LoadRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Status != run.Status {
		t.Errorf("status mismatch: saved %s, loaded %s", run.Status, loaded.Status)
	}
	if got, want := len(loaded.Records()), len(run.Records()); got != want {
		t.Errorf("record count mismatch: saved %d, loaded %d", want, got)
	}
	if loaded.Sections[0].Subcategories[0].Entries[0].Tiles[1].Failure == nil {
		t.Error("failure marker lost in round trip")
	}

	infos, err := a.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one archived run, got %d", len(infos))
	}
	if infos[0].ID != run.ID || infos[0].Records != 1 || infos[0].Failures != 1 {
		t.Errorf("unexpected listing row: %+v", infos[0])
	}
}

func TestArchiveLoadMissingRun(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer a.Close()

	if _, err := a.LoadRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestFlattenRecordsCarriesPath(t *testing.T) {
	rows := FlattenRecords(sampleRun())
	if len(rows) != 1 {
		t.Fatalf("expected one flattened record, got %d", len(rows))
	}
	r := rows[0]
	if r.Section != "Imaging" || r.Subcategory != "Endoscopes" || r.Entry != "Rigid endoscopes" {
		t.Errorf("unexpected hierarchy path: %+v", r)
	}
}
