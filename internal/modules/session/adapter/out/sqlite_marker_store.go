package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	marker "beatmark/internal/modules/marker/domain"
	sessionout "beatmark/internal/modules/session/port/out"

	_ "modernc.org/sqlite"
)

// SQLiteMarkerStore keeps the last saved marker set of every dataset.
type SQLiteMarkerStore struct {
	db *sql.DB
}

func NewSQLiteMarkerStore(dbPath string) (*SQLiteMarkerStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &SQLiteMarkerStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ sessionout.MarkerRepository = (*SQLiteMarkerStore)(nil)

func (s *SQLiteMarkerStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS datasets (
  key TEXT PRIMARY KEY,
  marker_count INTEGER NOT NULL,
  saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS markers (
  dataset_key TEXT NOT NULL,
  position INTEGER NOT NULL,
  time REAL NOT NULL,
  label TEXT NOT NULL,
  PRIMARY KEY (dataset_key, position)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create marker tables: %w", err)
	}
	return nil
}

// Load reports false when the dataset was never saved.
func (s *SQLiteMarkerStore) Load(ctx context.Context, datasetKey string) ([]marker.Seed, bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT marker_count FROM datasets WHERE key = ?`, datasetKey).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load dataset %s: %w", datasetKey, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT time, label FROM markers WHERE dataset_key = ? ORDER BY position`, datasetKey)
	if err != nil {
		return nil, false, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()
	seeds := make([]marker.Seed, 0, count)
	for rows.Next() {
		var seed marker.Seed
		var label string
		if err := rows.Scan(&seed.Time, &label); err != nil {
			return nil, false, fmt.Errorf("scan marker: %w", err)
		}
		seed.Label = marker.Label(label)
		seeds = append(seeds, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate markers: %w", err)
	}
	return seeds, true, nil
}

// Save replaces the stored set in one transaction.
func (s *SQLiteMarkerStore) Save(ctx context.Context, datasetKey string, markers []marker.Marker, savedAt time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin marker save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM markers WHERE dataset_key = ?`, datasetKey); err != nil {
		return fmt.Errorf("clear markers: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO markers (dataset_key, position, time, label) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare marker insert: %w", err)
	}
	defer stmt.Close()
	for i, m := range markers {
		if _, err = stmt.ExecContext(ctx, datasetKey, i, m.Time, string(m.Label)); err != nil {
			return fmt.Errorf("insert marker %d: %w", m.ID, err)
		}
	}
	const upsert = `
INSERT INTO datasets (key, marker_count, saved_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  marker_count=excluded.marker_count,
  saved_at=excluded.saved_at;
`
	if _, err = tx.ExecContext(ctx, upsert, datasetKey, len(markers), savedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit marker save: %w", err)
	}
	return nil
}

func (s *SQLiteMarkerStore) Close() error {
	return s.db.Close()
}
