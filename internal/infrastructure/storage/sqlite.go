package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// Storage provides SQLite database access for reconciliation data.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database.
// A single connection with immediate transactions serializes writers, so a
// match batch and its conflict check cannot interleave with another.
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, slog.Default())
}

// NewStorageWithLogger is NewStorage with an explicit logger for migrations.
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version
func (s *Storage) SchemaVersion(ctx context.Context) (int64, error) {
	return schemaVersion(ctx, s.db)
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// InsertEntries stores entries of either side in one transaction
func (s *Storage) InsertEntries(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		bankStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bank_statements (id, owner_id, date, description, amount)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = bankStmt.Close() }()

		internalStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO financial_entries (id, owner_id, date, description, amount, sub_group)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = internalStmt.Close() }()

		for i, e := range entries {
			switch e.Side {
			case ledger.SideBank:
				_, err = bankStmt.ExecContext(ctx, e.ID, e.OwnerID, e.Date.String(), e.Description, e.Amount.String())
			case ledger.SideInternal:
				_, err = internalStmt.ExecContext(ctx, e.ID, e.OwnerID, e.Date.String(), e.Description, e.Amount.String(), e.SubGroup)
			default:
				err = fmt.Errorf("invalid side %q", e.Side)
			}
			if err != nil {
				return fmt.Errorf("failed to insert entry %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListEntries returns an owner's entries for one side in import order
func (s *Storage) ListEntries(ctx context.Context, ownerID string, side ledger.Side) ([]ledger.Entry, error) {
	var query string
	switch side {
	case ledger.SideBank:
		query = `
			SELECT id, owner_id, date, description, amount, ''
			FROM bank_statements WHERE owner_id = ? ORDER BY rowid
		`
	case ledger.SideInternal:
		query = `
			SELECT id, owner_id, date, description, amount, sub_group
			FROM financial_entries WHERE owner_id = ? ORDER BY rowid
		`
	default:
		return nil, fmt.Errorf("invalid side %q", side)
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []ledger.Entry{}
	for rows.Next() {
		var (
			e            ledger.Entry
			date, amount string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &date, &e.Description, &amount, &e.SubGroup); err != nil {
			return nil, err
		}
		if e.Date, err = ledger.ParseDate(date); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("entry %s: invalid amount %q: %w", e.ID, amount, err)
		}
		e.Side = side
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteOwnerData removes all matches and entries of an owner. Rules and
// the import log are kept.
func (s *Storage) DeleteOwnerData(ctx context.Context, ownerID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		queries := []string{
			`DELETE FROM reconciliation_matches WHERE owner_id = ?`,
			`DELETE FROM bank_statements WHERE owner_id = ?`,
			`DELETE FROM financial_entries WHERE owner_id = ?`,
		}
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx, q, ownerID); err != nil {
				return fmt.Errorf("failed to clear owner data: %w", err)
			}
		}
		return nil
	})
}

// InsertMatches stores a batch of match records atomically
func (s *Storage) InsertMatches(ctx context.Context, matches []ledger.MatchRecord) error {
	if len(matches) == 0 {
		return nil
	}
	if err := validateMatchTypes(matches); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		conflictStmt, err := tx.PrepareContext(ctx, `
			SELECT 1 FROM reconciliation_matches
			WHERE owner_id = ? AND group_id <> ?
			  AND (bank_statement_id = ? OR financial_entry_id = ?)
			LIMIT 1
		`)
		if err != nil {
			return err
		}
		defer func() { _ = conflictStmt.Close() }()

		insertStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO reconciliation_matches
			(id, owner_id, bank_statement_id, financial_entry_id, match_type, group_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = insertStmt.Close() }()

		for _, m := range matches {
			var one int
			err := conflictStmt.QueryRowContext(ctx, m.OwnerID, m.GroupID, m.BankEntryID, m.InternalEntryID).Scan(&one)
			switch {
			case err == nil:
				return fmt.Errorf("%w: bank %s / internal %s", ErrMatchConflict, m.BankEntryID, m.InternalEntryID)
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}

			_, err = insertStmt.ExecContext(ctx,
				m.ID,
				m.OwnerID,
				m.BankEntryID,
				m.InternalEntryID,
				string(m.MatchType),
				m.GroupID,
				m.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: bank %s / internal %s", ErrMatchConflict, m.BankEntryID, m.InternalEntryID)
				}
				return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

const matchColumns = `id, owner_id, bank_statement_id, financial_entry_id, match_type, group_id, created_at`

// ListMatches returns an owner's match records, oldest first
func (s *Storage) ListMatches(ctx context.Context, ownerID string) ([]ledger.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+`
		FROM reconciliation_matches WHERE owner_id = ? ORDER BY rowid
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	matches := []ledger.MatchRecord{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

// GetMatch retrieves one match record by ID
func (s *Storage) GetMatch(ctx context.Context, ownerID, matchID string) (*ledger.MatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM reconciliation_matches WHERE owner_id = ? AND id = ?
	`, ownerID, matchID)

	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return m, err
}

// DeleteMatch removes one match record
func (s *Storage) DeleteMatch(ctx context.Context, ownerID, matchID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM reconciliation_matches WHERE owner_id = ? AND id = ?`,
		ownerID, matchID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*ledger.MatchRecord, error) {
	var (
		m         ledger.MatchRecord
		matchType string
		createdAt string
	)
	err := row.Scan(&m.ID, &m.OwnerID, &m.BankEntryID, &m.InternalEntryID, &matchType, &m.GroupID, &createdAt)
	if err != nil {
		return nil, err
	}

	m.MatchType = ledger.MatchType(matchType)
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("match %s: invalid created_at %q: %w", m.ID, createdAt, err)
	}
	return &m, nil
}

// GetRules returns the owner's saved rules
func (s *Storage) GetRules(ctx context.Context, ownerID string) (*ledger.RuleConfig, error) {
	var (
		rules     = ledger.RuleConfig{OwnerID: ownerID}
		tolerance string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value_tolerance, date_tolerance_days, updated_at
		FROM reconciliation_rules WHERE owner_id = ?
	`, ownerID).Scan(&tolerance, &rules.DateToleranceDays, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rules for %s: %w", ownerID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if rules.ValueTolerance, err = decimal.NewFromString(tolerance); err != nil {
		return nil, fmt.Errorf("invalid stored tolerance %q: %w", tolerance, err)
	}
	if rules.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid stored updated_at %q: %w", updatedAt, err)
	}
	return &rules, nil
}

// SaveRules creates or replaces the owner's rules
func (s *Storage) SaveRules(ctx context.Context, rules ledger.RuleConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_rules (owner_id, value_tolerance, date_tolerance_days, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			value_tolerance = excluded.value_tolerance,
			date_tolerance_days = excluded.date_tolerance_days,
			updated_at = excluded.updated_at
	`,
		rules.OwnerID,
		rules.ValueTolerance.String(),
		rules.DateToleranceDays,
		rules.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecordImportRun stores an import run and sets its ID
func (s *Storage) RecordImportRun(ctx context.Context, run *ImportRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs
		(owner_id, side, file_name, format, status, accepted, rejected, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.OwnerID,
		run.Side,
		run.FileName,
		run.Format,
		run.Status,
		run.Accepted,
		run.Rejected,
		run.Error,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	run.ID, err = result.LastInsertId()
	return err
}

// ListImportRuns returns an owner's most recent import runs first
func (s *Storage) ListImportRuns(ctx context.Context, ownerID string, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = DefaultImportRunLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, side, file_name, format, status, accepted, rejected, error, created_at
		FROM import_runs
		WHERE owner_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := []ImportRun{}
	for rows.Next() {
		var (
			run       ImportRun
			createdAt string
		)
		err := rows.Scan(
			&run.ID,
			&run.OwnerID,
			&run.Side,
			&run.FileName,
			&run.Format,
			&run.Status,
			&run.Accepted,
			&run.Rejected,
			&run.Error,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("import run %d: invalid created_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
