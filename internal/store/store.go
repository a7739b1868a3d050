// Package store archives characterization runs in a local SQLite database so
// results can be listed and re-reported without re-running the solver.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rilla-project/rilla/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run statuses, matching the report envelope.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunRecord is one archived characterization run.
type RunRecord struct {
	ID           string
	ModelName    string
	Engine       string
	Status       string
	VthVolts     float64
	TempC        float64
	ErrorMessage string
	VgsVolts     []float64
	IdAmps       []float64
	CreatedAt    time.Time
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc sqlite serializes on a single connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts a run record, assigning a fresh id when the record carries
// none. The record's ID and CreatedAt are filled in on return.
func (s *Store) SaveRun(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	vgsJSON, err := json.Marshal(curveOrEmpty(rec.VgsVolts))
	if err != nil {
		return fmt.Errorf("encoding gate curve: %w", err)
	}
	idJSON, err := json.Marshal(curveOrEmpty(rec.IdAmps))
	if err != nil {
		return fmt.Errorf("encoding current curve: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, model_name, engine, status, vth_volts, temp_c,
		                  error_message, vgs_json, id_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ModelName, rec.Engine, rec.Status, rec.VthVolts, rec.TempC,
		rec.ErrorMessage, string(vgsJSON), string(idJSON), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	monitoring.Logf("store: saved run %s for model %s (%s)", rec.ID, rec.ModelName, rec.Status)
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model_name, engine, status, vth_volts, temp_c,
		       error_message, vgs_json, id_json, created_at
		FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListRuns returns the most recent runs, newest first. An empty modelName
// matches all models; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, modelName string, limit int) ([]*RunRecord, error) {
	query := `
		SELECT id, model_name, engine, status, vth_volts, temp_c,
		       error_message, vgs_json, id_json, created_at
		FROM runs`
	args := []any{}
	if modelName != "" {
		query += " WHERE model_name = ?"
		args = append(args, modelName)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var vgsJSON, idJSON string
	err := row.Scan(&rec.ID, &rec.ModelName, &rec.Engine, &rec.Status,
		&rec.VthVolts, &rec.TempC, &rec.ErrorMessage, &vgsJSON, &idJSON,
		&rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vgsJSON), &rec.VgsVolts); err != nil {
		return nil, fmt.Errorf("decoding gate curve for run %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(idJSON), &rec.IdAmps); err != nil {
		return nil, fmt.Errorf("decoding current curve for run %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func curveOrEmpty(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
