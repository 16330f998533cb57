package ledger

// MatchedIDs returns the set of entry IDs (from either side) referenced by
// at least one of the given match records.
func MatchedIDs(matches []MatchRecord) map[string]bool {
	ids := make(map[string]bool, len(matches)*2)
	for _, m := range matches {
		ids[m.BankEntryID] = true
		ids[m.InternalEntryID] = true
	}
	return ids
}

// Unmatched returns the entries not referenced by any active match record,
// preserving input order. It is recomputed from persisted state before every
// matching operation and must never be cached across operations.
func Unmatched(entries []Entry, matches []MatchRecord) []Entry {
	matched := MatchedIDs(matches)
	pool := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !matched[e.ID] {
			pool = append(pool, e)
		}
	}
	return pool
}

// SplitBySide partitions entries into bank and internal slices,
// preserving order within each side.
func SplitBySide(entries []Entry) (bank, internal []Entry) {
	for _, e := range entries {
		switch e.Side {
		case SideBank:
			bank = append(bank, e)
		case SideInternal:
			internal = append(internal, e)
		}
	}
	return bank, internal
}
