package matcher

import (
	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// subsetCandidate is an internal entry reduced to what the search needs.
type subsetCandidate struct {
	entry ledger.Entry
	cents int64 // absolute value
}

// SubsetSumMatch links each bank entry to a subset of at least two same-day,
// same-sign internal entries whose amounts sum to the bank amount exactly, in
// cents. The first subset found by an order-preserving depth-first search is
// used, not the smallest. Only the first MaxSubsetCandidates candidates of a
// bank entry are searched.
func (m *Matcher) SubsetSumMatch(bank, internal []ledger.Entry) *PassResult {
	result := newPassResult(ledger.MatchGroupedBySum)
	claimed := make(map[string]bool)
	createdAt := m.now().UTC()

	for _, b := range bank {
		target := b.Cents()
		negative := target < 0
		if negative {
			target = -target
		}
		if target == 0 {
			continue
		}

		candidates := m.subsetCandidates(b, negative, internal, claimed)
		if len(candidates) < 2 {
			continue
		}

		subset := findSubset(candidates, target)
		if subset == nil {
			continue
		}

		groupID := m.newID()
		for _, idx := range subset {
			f := candidates[idx].entry
			claimed[f.ID] = true
			result.Records = append(result.Records, m.record(b, f, ledger.MatchGroupedBySum, groupID, createdAt))
		}
		result.Groups++
	}

	return result
}

func (m *Matcher) subsetCandidates(b ledger.Entry, negative bool, internal []ledger.Entry, claimed map[string]bool) []subsetCandidate {
	candidates := make([]subsetCandidate, 0, MaxSubsetCandidates)
	for _, f := range internal {
		if len(candidates) == MaxSubsetCandidates {
			break
		}
		if claimed[f.ID] || f.Date != b.Date {
			continue
		}

		cents := f.Cents()
		if cents == 0 || (cents < 0) != negative {
			continue
		}
		if cents < 0 {
			cents = -cents
		}
		candidates = append(candidates, subsetCandidate{entry: f, cents: cents})
	}
	return candidates
}

// findSubset returns indexes into candidates of the first subset with at
// least two members summing to target, or nil. Candidates are visited in
// order, each one included before it is skipped.
func findSubset(candidates []subsetCandidate, target int64) []int {
	path := make([]int, 0, len(candidates))

	var search func(start int, sum int64) bool
	search = func(start int, sum int64) bool {
		if sum == target && len(path) >= 2 {
			return true
		}
		for i := start; i < len(candidates); i++ {
			next := sum + candidates[i].cents
			if next > target {
				continue
			}
			path = append(path, i)
			if search(i+1, next) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if !search(0, 0) {
		return nil
	}
	return path
}
