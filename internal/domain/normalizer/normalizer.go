// Package normalizer turns spreadsheet exports into ledger entries.
//
// Each Format resolves to an ordered list of Detectors. Header detectors
// look for keyword columns in the first rows of the sheet; fixed layouts
// use known column offsets. Every row after the header is then reduced to
// a date, a description and a signed amount. Rows that cannot be read are
// skipped and only counted.
package normalizer

import (
	"html"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// balanceMarker flags running-balance lines, which are not transactions.
const balanceMarker = "saldo"

// Result is the outcome of normalizing one grid.
type Result struct {
	Entries  []ledger.Entry
	Accepted int
	Rejected int
	// Detected is false when no detector recognized the grid.
	Detected bool
}

// Empty reports whether the grid yielded no usable entries.
func (r *Result) Empty() bool {
	return len(r.Entries) == 0
}

// Normalizer converts grids into entries.
type Normalizer struct {
	policy *bluemonday.Policy
	logger *slog.Logger
	newID  func() string
}

// NewNormalizer creates a normalizer. A nil logger discards output.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Normalizer{
		policy: bluemonday.StrictPolicy(),
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Normalize extracts entries from grid using format. side and ownerID are
// stamped on every entry. Only an unknown format or a format used for the
// wrong side is an error; an unrecognized grid gives an empty Result.
func (n *Normalizer) Normalize(grid Grid, format Format, side ledger.Side, ownerID string) (*Result, error) {
	if err := format.CheckSide(side); err != nil {
		return nil, err
	}

	result := &Result{Entries: []ledger.Entry{}}

	cm, ok := Detect(grid, detectorsFor[format]...)
	if !ok {
		n.logger.Debug("no header recognized",
			"format", format,
			"side", side,
			"rows", len(grid))
		return result, nil
	}
	result.Detected = true

	for i := cm.FirstDataRow; i < len(grid); i++ {
		row := grid[i]
		if blankRow(row) {
			continue
		}

		entry, ok := n.extract(row, cm)
		if !ok {
			result.Rejected++
			continue
		}

		entry.ID = n.newID()
		entry.OwnerID = ownerID
		entry.Side = side
		if side != ledger.SideInternal {
			entry.SubGroup = ""
		}
		result.Entries = append(result.Entries, entry)
		result.Accepted++
	}

	n.logger.Debug("normalized grid",
		"format", format,
		"side", side,
		"accepted", result.Accepted,
		"rejected", result.Rejected)

	return result, nil
}

func (n *Normalizer) extract(row []Cell, cm ColumnMap) (ledger.Entry, bool) {
	date, err := ParseDate(at(row, cm.Date))
	if err != nil {
		return ledger.Entry{}, false
	}

	description := n.sanitize(at(row, cm.Description).String())
	if description == "" {
		return ledger.Entry{}, false
	}
	if strings.Contains(strings.ToLower(description), balanceMarker) {
		return ledger.Entry{}, false
	}

	amount := rowAmount(row, cm)
	if amount.IsZero() {
		return ledger.Entry{}, false
	}

	return ledger.Entry{
		Date:        date,
		Description: description,
		Amount:      amount,
		SubGroup:    n.sanitize(at(row, cm.SubGroup).String()),
	}, true
}

func rowAmount(row []Cell, cm ColumnMap) decimal.Decimal {
	switch cm.AmountLayout {
	case AmountSignedSuffix:
		return ParseSignedAmount(at(row, cm.Amount))
	case AmountInflowOutflow:
		inflow := ParseAmount(at(row, cm.Inflow))
		if !inflow.IsZero() {
			return inflow.Abs()
		}
		return ParseAmount(at(row, cm.Outflow)).Abs().Neg()
	default:
		return ParseAmount(at(row, cm.Amount))
	}
}

// sanitize strips markup, decodes entities and collapses whitespace.
func (n *Normalizer) sanitize(s string) string {
	s = html.UnescapeString(n.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
