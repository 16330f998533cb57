// Package matcher links bank statement entries to internal ledger entries.
//
// Four strategies are provided:
//   - ManualMatch: cartesian product of two explicit selections, no checks
//   - ExactMatch: greedy first-fit 1:1 within the value and date tolerances
//   - IdentifierMatch: N:1, bank entries sharing an embedded code sum to one internal entry
//   - SubsetSumMatch: 1:N, same-day same-sign internal entries sum to one bank entry
//
// Every strategy works on in-memory pools of unmatched entries and returns
// new MatchRecords; nothing is persisted here. Iteration follows pool order
// and never backtracks, so reordering a pool can change the result.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.ConfigFromRules(rules))
//	pass := m.ExactMatch(bankPool, internalPool)
//	for _, rec := range pass.Records {
//		// persist rec
//	}
package matcher

import (
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// Matcher matches bank entries with internal entries
type Matcher struct {
	config Config
	newID  func() string
	now    func() time.Time
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, opts ...Option) *Matcher {
	m := &Matcher{
		config: config,
		newID:  defaultID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the tolerances this matcher applies.
func (m *Matcher) Config() Config {
	return m.config
}

// ExactMatch pairs each bank entry with the first unclaimed internal entry
// within both tolerances. Each pair gets its own group ID.
func (m *Matcher) ExactMatch(bank, internal []ledger.Entry) *PassResult {
	result := newPassResult(ledger.MatchExact)
	claimed := make(map[string]bool)
	createdAt := m.now().UTC()

	for _, b := range bank {
		for _, f := range internal {
			if claimed[f.ID] {
				continue
			}
			if !m.withinTolerance(b, f) {
				continue
			}

			claimed[f.ID] = true
			result.Records = append(result.Records, m.record(b, f, ledger.MatchExact, m.newID(), createdAt))
			result.Groups++
			break
		}
	}

	return result
}

// withinTolerance compares signed amounts and absolute day difference.
func (m *Matcher) withinTolerance(b, f ledger.Entry) bool {
	days := b.Date.DaysSince(f.Date)
	if days < 0 {
		days = -days
	}
	if days > m.config.DateToleranceDays {
		return false
	}

	amountDiff := b.Amount.Sub(f.Amount).Abs()
	return amountDiff.LessThanOrEqual(m.config.ValueTolerance)
}

func (m *Matcher) record(b, f ledger.Entry, t ledger.MatchType, groupID string, createdAt time.Time) ledger.MatchRecord {
	return ledger.MatchRecord{
		ID:              m.newID(),
		OwnerID:         b.OwnerID,
		BankEntryID:     b.ID,
		InternalEntryID: f.ID,
		MatchType:       t,
		GroupID:         groupID,
		CreatedAt:       createdAt,
	}
}
