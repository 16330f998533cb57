package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu         sync.Mutex
	entries    map[ledger.Side][]ledger.Entry
	matches    []ledger.MatchRecord
	rules      map[string]ledger.RuleConfig
	importRuns []ImportRun
	nextRunID  int64

	// Hooks for test assertions
	InsertMatchesCalls int
	GetRulesCalls      int

	// Error injection for testing error paths
	InsertEntriesErr error
	ListEntriesErr   error
	InsertMatchesErr error
	SaveRulesErr     error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		entries:   make(map[ledger.Side][]ledger.Entry),
		rules:     make(map[string]ledger.RuleConfig),
		nextRunID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// InsertEntries appends entries; the batch is rejected whole on a bad side
func (m *MockRepository) InsertEntries(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertEntriesErr != nil {
		return m.InsertEntriesErr
	}
	for i, e := range entries {
		if e.Side != ledger.SideBank && e.Side != ledger.SideInternal {
			return fmt.Errorf("failed to insert entry %d: invalid side %q", i, e.Side)
		}
	}
	for _, e := range entries {
		m.entries[e.Side] = append(m.entries[e.Side], e)
	}
	return nil
}

// ListEntries returns an owner's entries for one side in insertion order
func (m *MockRepository) ListEntries(_ context.Context, ownerID string, side ledger.Side) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListEntriesErr != nil {
		return nil, m.ListEntriesErr
	}
	out := []ledger.Entry{}
	for _, e := range m.entries[side] {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteOwnerData drops an owner's entries and matches
func (m *MockRepository) DeleteOwnerData(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for side, list := range m.entries {
		kept := list[:0]
		for _, e := range list {
			if e.OwnerID != ownerID {
				kept = append(kept, e)
			}
		}
		m.entries[side] = kept
	}
	m.matches = m.filterMatches(func(r ledger.MatchRecord) bool { return r.OwnerID != ownerID })
	return nil
}

// InsertMatches applies the same group conflict rule as Storage
func (m *MockRepository) InsertMatches(_ context.Context, matches []ledger.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertMatchesCalls++
	if m.InsertMatchesErr != nil {
		return m.InsertMatchesErr
	}
	if err := validateMatchTypes(matches); err != nil {
		return err
	}

	// Validate against existing rows plus the batch so far, then commit.
	pending := append([]ledger.MatchRecord(nil), m.matches...)
	for _, r := range matches {
		for _, existing := range pending {
			if existing.OwnerID != r.OwnerID {
				continue
			}
			samePair := existing.BankEntryID == r.BankEntryID && existing.InternalEntryID == r.InternalEntryID
			shared := existing.BankEntryID == r.BankEntryID || existing.InternalEntryID == r.InternalEntryID
			if samePair || (shared && existing.GroupID != r.GroupID) {
				return fmt.Errorf("%w: bank %s / internal %s", ErrMatchConflict, r.BankEntryID, r.InternalEntryID)
			}
		}
		pending = append(pending, r)
	}

	m.matches = pending
	return nil
}

// ListMatches returns an owner's match records in insertion order
func (m *MockRepository) ListMatches(_ context.Context, ownerID string) ([]ledger.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []ledger.MatchRecord{}
	for _, r := range m.matches {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetMatch retrieves one match record
func (m *MockRepository) GetMatch(_ context.Context, ownerID, matchID string) (*ledger.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.matches {
		if r.OwnerID == ownerID && r.ID == matchID {
			copied := r
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
}

// DeleteMatch removes one match record
func (m *MockRepository) DeleteMatch(_ context.Context, ownerID, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.matches)
	m.matches = m.filterMatches(func(r ledger.MatchRecord) bool {
		return r.OwnerID != ownerID || r.ID != matchID
	})
	if len(m.matches) == before {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return nil
}

func (m *MockRepository) filterMatches(keep func(ledger.MatchRecord) bool) []ledger.MatchRecord {
	out := m.matches[:0]
	for _, r := range m.matches {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// GetRules returns the owner's saved rules
func (m *MockRepository) GetRules(_ context.Context, ownerID string) (*ledger.RuleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetRulesCalls++
	rules, ok := m.rules[ownerID]
	if !ok {
		return nil, fmt.Errorf("rules for %s: %w", ownerID, ErrNotFound)
	}
	return &rules, nil
}

// SaveRules creates or replaces the owner's rules
func (m *MockRepository) SaveRules(_ context.Context, rules ledger.RuleConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveRulesErr != nil {
		return m.SaveRulesErr
	}
	m.rules[rules.OwnerID] = rules
	return nil
}

// RecordImportRun stores an import run and sets its ID
func (m *MockRepository) RecordImportRun(_ context.Context, run *ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.ID = m.nextRunID
	m.nextRunID++
	m.importRuns = append(m.importRuns, *run)
	return nil
}

// ListImportRuns returns an owner's most recent import runs first
func (m *MockRepository) ListImportRuns(_ context.Context, ownerID string, limit int) ([]ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultImportRunLimit
	}
	out := []ImportRun{}
	for _, run := range m.importRuns {
		if run.OwnerID == ownerID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
