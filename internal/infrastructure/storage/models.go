package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMatchConflict is returned when a match batch would put an entry
	// into a second group. Refetch the unmatched pool and retry.
	ErrMatchConflict = errors.New("entry already matched in another group")

	// ErrInvalidMatchType is returned when a match record carries an
	// unknown match type. Nothing in the batch is stored.
	ErrInvalidMatchType = errors.New("invalid match type")
)

// validateMatchTypes rejects a batch holding an unknown match type.
func validateMatchTypes(matches []ledger.MatchRecord) error {
	for _, m := range matches {
		if !m.MatchType.Valid() {
			return fmt.Errorf("%w: %q on match %s", ErrInvalidMatchType, m.MatchType, m.ID)
		}
	}
	return nil
}

// Import run statuses
const (
	ImportStatusImported = "imported"
	ImportStatusNoData   = "no_data"
	ImportStatusFailed   = "failed"
)

// DefaultImportRunLimit is used when ListImportRuns gets a limit <= 0.
const DefaultImportRunLimit = 50

// ImportRun records the outcome of importing one file
type ImportRun struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Side      string    `json:"side"`
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Status    string    `json:"status"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
