package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"skywarp/pkg/warp"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS warps (
	tract      INTEGER NOT NULL,
	patch      TEXT    NOT NULL,
	visit      INTEGER NOT NULL,
	variant    TEXT    NOT NULL,
	path       TEXT    NOT NULL,
	good_pix   INTEGER NOT NULL,
	created_at TEXT    NOT NULL,
	PRIMARY KEY (tract, patch, visit, variant)
);
CREATE INDEX IF NOT EXISTS warps_by_patch ON warps (tract, patch);
`

// Registry is the done-work index: one row per persisted warp output,
// keyed by output identity. It is what makes skip-if-present cheap —
// existence is a single indexed lookup, no pixel files touched.
type Registry struct {
	db *sql.DB
}

func OpenRegistry(filename string) (*Registry, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open registry '%s': %v", filename, err)
	}
	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry schema: %v", err)
	}
	return &Registry{db: db}, nil
}

func (r *Registry)Close() error { return r.db.Close() }

// Exists reports whether an output identity has been recorded.
func (r *Registry)Exists(id warp.OutputID) (bool, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM warps WHERE tract = ? AND patch = ? AND visit = ? AND variant = ?`,
		id.Tract, id.Patch, id.Visit, string(id.Type)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("registry lookup %s: %v", id, err)
	}
	return n > 0, nil
}

// Record upserts one output row. Re-recording an identity (an
// overwrite run) replaces the old row.
func (r *Registry)Record(id warp.OutputID, path string, goodPix int, createdAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO warps (tract, patch, visit, variant, path, good_pix, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.Tract, id.Patch, id.Visit, string(id.Type), path, goodPix,
		createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("registry record %s: %v", id, err)
	}
	return nil
}

// Entry is one registry row.
type Entry struct {
	ID        warp.OutputID
	Path      string
	GoodPix   int
	CreatedAt time.Time
}

// List returns every recorded output for a patch, ordered by visit
// then variant.
func (r *Registry)List(tract int, patch string) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT visit, variant, path, good_pix, created_at
		 FROM warps WHERE tract = ? AND patch = ? ORDER BY visit, variant`,
		tract, patch)
	if err != nil {
		return nil, fmt.Errorf("registry list %d/%s: %v", tract, patch, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			variant string
			created string
		)
		e.ID.Tract, e.ID.Patch = tract, patch
		if err := rows.Scan(&e.ID.Visit, &variant, &e.Path, &e.GoodPix, &created); err != nil {
			return nil, fmt.Errorf("registry scan: %v", err)
		}
		e.ID.Type = warp.Type(variant)
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
