package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urbemaps/geofence/internal/model"
)

// SQLiteStore persists one row per area in a SQLite database, with the raw
// record serialized as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn, configures WAL mode, and creates the
// areas table if needed.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS areas (
		slug   TEXT PRIMARY KEY,
		record TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]model.Area, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, record FROM areas`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select areas")
	}
	defer rows.Close()

	areas := map[string]model.Area{}
	for rows.Next() {
		var slug, record string
		if err := rows.Scan(&slug, &record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area")
		}
		var a model.Area
		if err := json.Unmarshal([]byte(record), &a); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode area %s", slug)
		}
		areas[slug] = a
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate areas")
	}
	return areas, nil
}

// Save replaces the stored mapping in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, areas map[string]model.Area) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM areas`); err != nil {
		return eris.Wrap(err, "sqlite: clear areas")
	}
	for slug, a := range areas {
		record, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode area %s", slug)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO areas (slug, record) VALUES (?, ?)`,
			slug, string(record),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert area %s", slug)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
