// Package archive persists finished crawl runs to SQLite so they can be
// listed, inspected and re-exported later.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/medline/expocrawl/pkg/models"
)

// ErrRunNotFound is returned when the requested run ID is not archived.
var ErrRunNotFound = errors.New("run not found")

// RunInfo is the listing row for one archived run.
type RunInfo struct {
	ID         string
	StartURL   string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     models.RunStatus
	Records    int
	Failures   int
}

// Archive is a single-writer SQLite store. The runs table keeps the full tree
// as JSON; the records table flattens one row per ProductRecord with its
// hierarchy path for querying without re-walking the tree.
type Archive struct {
	db *sql.DB
}

// DefaultPath returns the archive location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile("expocrawl/archive.db")
}

// Open opens or creates the archive at path and applies the schema.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// modernc/sqlite serializes writes; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Archive opened")
	return &Archive{db: db}, nil
}

func applySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		start_url   TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status      TEXT NOT NULL,
		records     INTEGER NOT NULL,
		failures    INTEGER NOT NULL,
		tree        TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS records (
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		section     TEXT NOT NULL,
		subcategory TEXT NOT NULL,
		entry       TEXT NOT NULL,
		detail_url  TEXT NOT NULL,
		record      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores a finalized run. The run must be frozen: Save reads the tree
// without locking.
func (a *Archive) Save(ctx context.Context, run *models.CrawlRun) error {
	tree, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run tree: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	totals := run.Totals()
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, start_url, started_at, finished_at, status, records, failures, tree)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartURL,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(run.Status), totals.Records, totals.Failures, string(tree))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear run records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, section, subcategory, entry, detail_url, record)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range FlattenRecords(run) {
		data, err := json.Marshal(row.Record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, row.Section, row.Subcategory, row.Entry, row.Record.DetailURL, string(data)); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	log.Info().
		Str("run_id", run.ID).
		Int("records", totals.Records).
		Msg("Run archived")
	return nil
}

// ListRuns returns archived runs, most recent first.
func (a *Archive) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, start_url, started_at, finished_at, status, records, failures
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var started, finished string
		if err := rows.Scan(&info.ID, &info.StartURL, &started, &finished,
			&info.Status, &info.Records, &info.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		info.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		info.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadRun reconstructs a run tree from the archive.
func (a *Archive) LoadRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	var tree string
	err := a.db.QueryRowContext(ctx, `SELECT tree FROM runs WHERE id = ?`, id).Scan(&tree)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run models.CrawlRun
	if err := json.Unmarshal([]byte(tree), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run tree: %w", err)
	}
	return &run, nil
}

// RecordRow is one flattened record with its hierarchy path.
type RecordRow struct {
	Section     string
	Subcategory string
	Entry       string
	Record      *models.ProductRecord
}

// FlattenRecords walks the tree in order and pairs every record with the
// names of the branch it hangs from. Shared with the CSV export.
func FlattenRecords(run *models.CrawlRun) []RecordRow {
	var out []RecordRow
	for _, sec := range run.Sections {
		for _, sub := range sec.Subcategories {
			for _, e := range sub.Entries {
				for _, t := range e.Tiles {
					if t.Record != nil {
						out = append(out, RecordRow{
							Section:     sec.Name,
							Subcategory: sub.Name,
							Entry:       e.Title,
							Record:      t.Record,
						})
					}
				}
			}
		}
	}
	return out
}
