package matcher

import (
	"regexp"
	"strings"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// identifierPattern matches plate-like codes: three letters, an optional
// dash, then digit / letter-or-digit / digit / digit ("ABC1D23", "abc-1234").
// Codes glued to other text still match ("PEDAGIOABC1D23").
var identifierPattern = regexp.MustCompile(`(?i)([a-z]{3})-?([0-9][a-z0-9][0-9]{2})`)

// ExtractIdentifier returns the first identifier embedded in text,
// upper-cased with the dash removed, or "" when none is present.
func ExtractIdentifier(text string) string {
	m := identifierPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1] + m[2])
}

// identifierGroup is a set of bank entries sharing one identifier.
type identifierGroup struct {
	id      string
	entries []ledger.Entry
	cents   int64
}

// IdentifierMatch groups bank entries by embedded identifier and links each
// group to the first unclaimed internal entry whose sub-group carries the
// same identifier and whose amount equals the group sum exactly, in cents.
// No tolerance is applied.
func (m *Matcher) IdentifierMatch(bank, internal []ledger.Entry) *PassResult {
	result := newPassResult(ledger.MatchGroupedByIdentifier)
	createdAt := m.now().UTC()

	groups := groupByIdentifier(bank)

	internalIDs := make([]string, len(internal))
	for i, f := range internal {
		internalIDs[i] = ExtractIdentifier(f.SubGroup)
	}

	claimed := make(map[string]bool)
	for _, g := range groups {
		for i, f := range internal {
			if claimed[f.ID] || internalIDs[i] != g.id {
				continue
			}
			if f.Cents() != g.cents {
				continue
			}

			claimed[f.ID] = true
			groupID := m.newID()
			for _, b := range g.entries {
				result.Records = append(result.Records, m.record(b, f, ledger.MatchGroupedByIdentifier, groupID, createdAt))
			}
			result.Groups++
			break
		}
	}

	return result
}

// groupByIdentifier returns groups in order of first appearance.
func groupByIdentifier(bank []ledger.Entry) []*identifierGroup {
	var groups []*identifierGroup
	index := make(map[string]*identifierGroup)

	for _, b := range bank {
		id := ExtractIdentifier(b.Description)
		if id == "" {
			continue
		}
		g, ok := index[id]
		if !ok {
			g = &identifierGroup{id: id}
			index[id] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, b)
		g.cents += b.Cents()
	}

	return groups
}
