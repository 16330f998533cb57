package matcher

import (
	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// ManualMatch links every selected bank entry to every selected internal
// entry under one group ID. Amounts and dates are not checked. Duplicate IDs
// in a selection are ignored.
func (m *Matcher) ManualMatch(ownerID string, bankIDs, internalIDs []string) ([]ledger.MatchRecord, error) {
	bankIDs = dedupe(bankIDs)
	internalIDs = dedupe(internalIDs)
	if len(bankIDs) == 0 || len(internalIDs) == 0 {
		return nil, ErrEmptySelection
	}

	groupID := m.newID()
	createdAt := m.now().UTC()

	records := make([]ledger.MatchRecord, 0, len(bankIDs)*len(internalIDs))
	for _, b := range bankIDs {
		for _, f := range internalIDs {
			records = append(records, ledger.MatchRecord{
				ID:              m.newID(),
				OwnerID:         ownerID,
				BankEntryID:     b,
				InternalEntryID: f,
				MatchType:       ledger.MatchManual,
				GroupID:         groupID,
				CreatedAt:       createdAt,
			})
		}
	}
	return records, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
