package storage

import (
	"context"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	EntryRepository
	MatchRepository
	RuleRepository
	ImportRunRepository
	Close() error
}

// EntryRepository handles bank statement and internal ledger entries
type EntryRepository interface {
	// InsertEntries stores a batch of entries in one transaction
	InsertEntries(ctx context.Context, entries []ledger.Entry) error

	// ListEntries returns an owner's entries for one side in import order
	ListEntries(ctx context.Context, ownerID string, side ledger.Side) ([]ledger.Entry, error)

	// DeleteOwnerData removes all entries and matches of an owner
	DeleteOwnerData(ctx context.Context, ownerID string) error
}

// MatchRepository handles match records
type MatchRepository interface {
	// InsertMatches stores a batch atomically. It fails with ErrMatchConflict
	// if any entry already belongs to a different group.
	InsertMatches(ctx context.Context, matches []ledger.MatchRecord) error

	// ListMatches returns an owner's match records, oldest first
	ListMatches(ctx context.Context, ownerID string) ([]ledger.MatchRecord, error)

	// GetMatch retrieves one match record
	GetMatch(ctx context.Context, ownerID, matchID string) (*ledger.MatchRecord, error)

	// DeleteMatch removes one match record; siblings in its group are kept
	DeleteMatch(ctx context.Context, ownerID, matchID string) error
}

// RuleRepository handles per-owner matching tolerances
type RuleRepository interface {
	// GetRules returns ErrNotFound when the owner has no saved rules
	GetRules(ctx context.Context, ownerID string) (*ledger.RuleConfig, error)

	// SaveRules creates or replaces the owner's rules
	SaveRules(ctx context.Context, rules ledger.RuleConfig) error
}

// ImportRunRepository handles the import audit log
type ImportRunRepository interface {
	// RecordImportRun stores a run and sets its ID
	RecordImportRun(ctx context.Context, run *ImportRun) error

	// ListImportRuns returns an owner's most recent runs first
	ListImportRuns(ctx context.Context, ownerID string, limit int) ([]ImportRun, error)
}
