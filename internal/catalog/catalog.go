// Package catalog maintains a SQLite index over an annotation directory:
// one row per (image, layer) with mask presence and certification state, so
// large directories can be searched without opening every file. The index is
// local-only; it scans the filesystem directly.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/masklab/internal/meta"
	"github.com/MeKo-Tech/masklab/internal/storage"
)

// Entry is one indexed (image, layer) pair.
type Entry struct {
	Image       string
	Layer       string
	HasMask     bool
	Certified   bool
	HardExample bool
	MD5Sum      string
	Timestamp   string
}

// Index is an open catalog database.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the catalog at path and ensures its schema.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	schema := `
		CREATE TABLE IF NOT EXISTS annotations (
			image TEXT NOT NULL,
			layer TEXT NOT NULL,
			has_mask INTEGER NOT NULL,
			certified INTEGER NOT NULL,
			hard_example INTEGER NOT NULL,
			md5sum TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			PRIMARY KEY (image, layer)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &Index{db: db, logger: logger}, nil
}

// Close releases the database.
func (ix *Index) Close() error { return ix.db.Close() }

// maskFileRe matches <stem>.mask_<layer>.png and its .json sibling.
var maskFileRe = regexp.MustCompile(`^(.+)\.mask_([^.]+)\.(png|json)$`)

// Rebuild rescans dir and replaces the index content. Certification records
// are read through the storage backend so corruption degrades to defaults
// instead of failing the scan.
func (ix *Index) Rebuild(ctx context.Context, dir string) error {
	names, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}

	type key struct{ image, layer string }
	seen := map[key]*Entry{}
	backend := storage.Local{}
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		m := maskFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		k := key{image: m[1], layer: m[2]}
		e := seen[k]
		if e == nil {
			e = &Entry{Image: k.image, Layer: k.layer}
			seen[k] = e
		}
		switch m[3] {
		case "png":
			e.HasMask = true
		case "json":
			c := meta.LoadCertification(ctx, backend,
				strings.TrimSuffix(dir, "/")+"/"+de.Name(), ix.logger)
			e.Certified = c.Certified
			e.HardExample = c.HardExample
			e.MD5Sum = c.MD5Sum
			e.Timestamp = c.Timestamp
		}
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM annotations"); err != nil {
		return fmt.Errorf("clear annotations: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO annotations (image, layer, has_mask, certified, hard_example, md5sum, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range seen {
		if _, err := stmt.Exec(e.Image, e.Layer,
			boolInt(e.HasMask), boolInt(e.Certified), boolInt(e.HardExample),
			e.MD5Sum, e.Timestamp); err != nil {
			return fmt.Errorf("insert %s/%s: %w", e.Image, e.Layer, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	ix.logger.Info("catalog rebuilt", "dir", dir, "entries", len(seen))
	return nil
}

// Uncertified returns entries that have a mask but no certification yet,
// the review backlog.
func (ix *Index) Uncertified(ctx context.Context) ([]Entry, error) {
	return ix.query(ctx, "WHERE has_mask = 1 AND certified = 0")
}

// HardExamples returns entries flagged as hard examples.
func (ix *Index) HardExamples(ctx context.Context) ([]Entry, error) {
	return ix.query(ctx, "WHERE hard_example = 1")
}

// Image returns every layer entry for one image stem.
func (ix *Index) Image(ctx context.Context, stem string) ([]Entry, error) {
	return ix.query(ctx, "WHERE image = ?", stem)
}

// All returns the whole index.
func (ix *Index) All(ctx context.Context) ([]Entry, error) {
	return ix.query(ctx, "")
}

func (ix *Index) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	q := `SELECT image, layer, has_mask, certified, hard_example, md5sum, timestamp
		FROM annotations ` + where + ` ORDER BY image, layer`
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var hasMask, certified, hard int
		if err := rows.Scan(&e.Image, &e.Layer, &hasMask, &certified, &hard,
			&e.MD5Sum, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		e.HasMask = hasMask != 0
		e.Certified = certified != 0
		e.HardExample = hard != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
