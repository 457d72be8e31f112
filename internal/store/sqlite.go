// Package store provides relational persistence for canonical records and
// their metadata entries, one records table and one child metadata table
// per index family, backed by sqlite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

// Error is a persistence failure. It surfaces to the caller of the
// affected operation; batch saves are not retried per record.
type Error struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Store persists canonical records and metadata entries.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path. Use ":memory:" in tests.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	}
	for _, spec := range family.All() {
		statements = append(statements,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				period_month INTEGER NOT NULL,
				period_year INTEGER NOT NULL,
				region TEXT NOT NULL,
				method TEXT NOT NULL,
				index_points REAL NOT NULL,
				monthly_change REAL NOT NULL,
				annual_change REAL NOT NULL,
				ytd_change REAL NOT NULL,
				warning TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				UNIQUE (period_month, period_year, region)
			);`, spec.ID),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s_metadata (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				record_id INTEGER NOT NULL REFERENCES %s_records(id) ON DELETE CASCADE,
				category TEXT NOT NULL,
				field TEXT NOT NULL,
				v_index TEXT NOT NULL DEFAULT '',
				v_monthly TEXT NOT NULL DEFAULT '',
				v_annual TEXT NOT NULL DEFAULT '',
				v_ytd TEXT NOT NULL DEFAULT ''
			);`, spec.ID, spec.ID),
		)
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return &Error{Op: "migrate", Cause: err}
		}
	}
	return nil
}

// tableFor maps a family id to its records table name, rejecting ids that
// are not registered so table names never carry untrusted input.
func tableFor(familyID string) (string, error) {
	if _, err := family.Get(familyID); err != nil {
		return "", err
	}
	return familyID + "_records", nil
}

// dbtx is the slice of database/sql shared by *sql.DB and *sql.Tx that
// the upsert needs.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// upsert inserts or replaces one record on q and resolves its row id. A
// record for the same (period, region) is replaced: a secondary-path
// re-run supersedes the earlier attempt, keeping the row identity.
func upsert(ctx context.Context, q dbtx, rec *domain.CanonicalRecord) (int64, error) {
	table, err := tableFor(rec.Family)
	if err != nil {
		return 0, err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (period_month, period_year, region, method,
			index_points, monthly_change, annual_change, ytd_change, warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (period_month, period_year, region) DO UPDATE SET
			method = excluded.method,
			index_points = excluded.index_points,
			monthly_change = excluded.monthly_change,
			annual_change = excluded.annual_change,
			ytd_change = excluded.ytd_change,
			warning = excluded.warning,
			created_at = excluded.created_at
	`, table),
		rec.Period.Month, rec.Period.Year, rec.Region.String(), string(rec.Method),
		rec.IndexPoints, rec.MonthlyChange, rec.AnnualChange, rec.YTDChange,
		rec.Warning, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}

	// LastInsertId is stale when the upsert replaced an existing row, so
	// the id is always resolved by lookup.
	var id int64
	err = q.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id FROM %s WHERE period_month = ? AND period_year = ? AND region = ?`, table),
		rec.Period.Month, rec.Period.Year, rec.Region.String(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// Save inserts one canonical record and returns its identifier.
func (s *Store) Save(ctx context.Context, rec *domain.CanonicalRecord) (int64, error) {
	id, err := upsert(ctx, s.db, rec)
	if err != nil {
		return 0, &Error{Op: "save", Cause: err}
	}
	return id, nil
}

// SaveBatch inserts records in one transaction and returns their ids in
// input order. A failure rolls the whole batch back.
func (s *Store) SaveBatch(ctx context.Context, recs []*domain.CanonicalRecord) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &Error{Op: "save_batch", Cause: err}
	}

	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		id, err := upsert(ctx, tx, rec)
		if err != nil {
			_ = tx.Rollback()
			return nil, &Error{Op: "save_batch", Cause: err}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, &Error{Op: "save_batch", Cause: err}
	}
	return ids, nil
}

// SaveMetadata inserts the metadata entries belonging to one record.
func (s *Store) SaveMetadata(ctx context.Context, familyID string, recordID int64, entries []domain.MetadataEntry) error {
	if _, err := family.Get(familyID); err != nil {
		return &Error{Op: "save_metadata", Cause: err}
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "save_metadata", Cause: err}
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s_metadata (record_id, category, field, v_index, v_monthly, v_annual, v_ytd)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, familyID))
	if err != nil {
		_ = tx.Rollback()
		return &Error{Op: "save_metadata", Cause: err}
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, recordID, e.Category, e.Field, e.Index, e.Monthly, e.Annual, e.YTD); err != nil {
			_ = tx.Rollback()
			return &Error{Op: "save_metadata", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Op: "save_metadata", Cause: err}
	}
	return nil
}

// HasMetadata reports whether any metadata rows exist for a record. The
// reconciliation pass uses it to stay idempotent.
func (s *Store) HasMetadata(ctx context.Context, familyID string, recordID int64) (bool, error) {
	if _, err := family.Get(familyID); err != nil {
		return false, &Error{Op: "has_metadata", Cause: err}
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(1) FROM %s_metadata WHERE record_id = ?`, familyID),
		recordID,
	).Scan(&n)
	if err != nil {
		return false, &Error{Op: "has_metadata", Cause: err}
	}
	return n > 0, nil
}

// MetadataCount returns the number of metadata rows linked to a record.
func (s *Store) MetadataCount(ctx context.Context, familyID string, recordID int64) (int, error) {
	if _, err := family.Get(familyID); err != nil {
		return 0, &Error{Op: "metadata_count", Cause: err}
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(1) FROM %s_metadata WHERE record_id = ?`, familyID),
		recordID,
	).Scan(&n)
	if err != nil {
		return 0, &Error{Op: "metadata_count", Cause: err}
	}
	return n, nil
}

// Periods returns every period already persisted for a family and region,
// in chronological order. Gap-mode planning consumes this.
func (s *Store) Periods(ctx context.Context, familyID string, region domain.RegionCode) ([]domain.Period, error) {
	table, err := tableFor(familyID)
	if err != nil {
		return nil, &Error{Op: "periods", Cause: err}
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT period_month, period_year FROM %s
		WHERE region = ?
		ORDER BY period_year, period_month
	`, table), region.String())
	if err != nil {
		return nil, &Error{Op: "periods", Cause: err}
	}
	defer rows.Close()

	var out []domain.Period
	for rows.Next() {
		var p domain.Period
		if err := rows.Scan(&p.Month, &p.Year); err != nil {
			return nil, &Error{Op: "periods", Cause: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindByPeriodRegion returns the persisted record for one (period,
// region), or nil when none exists.
func (s *Store) FindByPeriodRegion(ctx context.Context, familyID string, p domain.Period, region domain.RegionCode) (*domain.CanonicalRecord, error) {
	table, err := tableFor(familyID)
	if err != nil {
		return nil, &Error{Op: "find", Cause: err}
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, method, index_points, monthly_change, annual_change, ytd_change, warning, created_at
		FROM %s WHERE period_month = ? AND period_year = ? AND region = ?
	`, table), p.Month, p.Year, region.String())

	rec := &domain.CanonicalRecord{Family: familyID, Period: p, Region: region}
	var method, createdAt string
	err = row.Scan(&rec.ID, &method, &rec.IndexPoints, &rec.MonthlyChange, &rec.AnnualChange, &rec.YTDChange, &rec.Warning, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "find", Cause: err}
	}
	rec.Method = domain.ExtractionMethod(method)
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

// DeleteAll removes every record and metadata row for one family.
func (s *Store) DeleteAll(ctx context.Context, familyID string) error {
	table, err := tableFor(familyID)
	if err != nil {
		return &Error{Op: "delete_all", Cause: err}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_metadata`, familyID)); err != nil {
		return &Error{Op: "delete_all", Cause: err}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return &Error{Op: "delete_all", Cause: err}
	}
	return nil
}
