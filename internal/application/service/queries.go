package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/workbook"
)

// EntryStatus filters entries by whether they are matched.
type EntryStatus string

const (
	EntryStatusAny       EntryStatus = ""
	EntryStatusMatched   EntryStatus = "matched"
	EntryStatusUnmatched EntryStatus = "unmatched"
)

// ParseEntryStatus parses a status filter; empty means any.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch st := EntryStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case EntryStatusAny, EntryStatusMatched, EntryStatusUnmatched:
		return st, nil
	}
	return "", fmt.Errorf("%w: status %q", ErrInvalidFilter, s)
}

// EntryFilter selects entries for ListEntries. An empty Side lists both.
type EntryFilter struct {
	Side   ledger.Side
	Status EntryStatus
}

// EntryView is an entry with its match state.
type EntryView struct {
	ledger.Entry
	Matched bool `json:"matched"`
}

// ListEntries returns the owner's entries, bank side first, each side in
// import order.
func (s *ReconcileService) ListEntries(ctx context.Context, ownerID string, filter EntryFilter) ([]EntryView, error) {
	st, err := s.loadState(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	matched := ledger.MatchedIDs(st.matches)

	var entries []ledger.Entry
	switch filter.Side {
	case ledger.SideBank:
		entries = st.bank
	case ledger.SideInternal:
		entries = st.internal
	case "":
		entries = append(append(entries, st.bank...), st.internal...)
	default:
		return nil, fmt.Errorf("%w: side %q", ErrInvalidFilter, filter.Side)
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		isMatched := matched[e.ID]
		if filter.Status == EntryStatusMatched && !isMatched {
			continue
		}
		if filter.Status == EntryStatusUnmatched && isMatched {
			continue
		}
		views = append(views, EntryView{Entry: e, Matched: isMatched})
	}
	return views, nil
}

// SideSummary totals one side of the reconciliation.
type SideSummary struct {
	Entries         int             `json:"entries"`
	Matched         int             `json:"matched"`
	Unmatched       int             `json:"unmatched"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
}

// Summary describes an owner's reconciliation progress.
type Summary struct {
	Bank     SideSummary              `json:"bank"`
	Internal SideSummary              `json:"internal"`
	Matches  int                      `json:"matches"`
	Groups   int                      `json:"groups"`
	ByType   map[ledger.MatchType]int `json:"by_type"`
}

// Summary counts and totals matched and unmatched entries per side.
func (s *ReconcileService) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	st, err := s.loadState(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	matched := ledger.MatchedIDs(st.matches)

	groups := make(map[string]bool)
	byType := make(map[ledger.MatchType]int)
	for _, r := range st.matches {
		groups[r.GroupID] = true
		byType[r.MatchType]++
	}

	return &Summary{
		Bank:     summarize(st.bank, matched),
		Internal: summarize(st.internal, matched),
		Matches:  len(st.matches),
		Groups:   len(groups),
		ByType:   byType,
	}, nil
}

func summarize(entries []ledger.Entry, matched map[string]bool) SideSummary {
	sum := SideSummary{
		Entries:         len(entries),
		MatchedAmount:   decimal.Zero,
		UnmatchedAmount: decimal.Zero,
	}
	for _, e := range entries {
		if matched[e.ID] {
			sum.Matched++
			sum.MatchedAmount = sum.MatchedAmount.Add(e.Amount)
		} else {
			sum.Unmatched++
			sum.UnmatchedAmount = sum.UnmatchedAmount.Add(e.Amount)
		}
	}
	return sum
}

// ReportFormat is the file type of an exported report.
type ReportFormat string

const (
	ReportCSV  ReportFormat = "csv"
	ReportXLSX ReportFormat = "xlsx"
)

// ParseReportFormat parses a report format; empty means CSV.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ReportCSV, nil
	case ReportCSV, ReportXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: report format %q", ErrInvalidFilter, s)
}

// ContentType returns the MIME type for the format.
func (f ReportFormat) ContentType() string {
	if f == ReportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ReportHeader is the column order of exported reports.
var ReportHeader = []string{"Date", "Description", "Amount", "Source", "Status"}

// Report builds the flat reconciliation report: every entry of both sides
// sorted by date, bank before internal on the same day. Amounts are
// numbers for XLSX and fixed two-decimal text for CSV.
func (s *ReconcileService) Report(ctx context.Context, ownerID string, format ReportFormat) (workbook.Table, error) {
	views, err := s.ListEntries(ctx, ownerID, EntryFilter{})
	if err != nil {
		return workbook.Table{}, err
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Date.Before(views[j].Date)
	})

	table := workbook.Table{Sheet: "Reconciliation", Header: ReportHeader, Rows: make([][]any, 0, len(views))}
	for _, v := range views {
		status := EntryStatusUnmatched
		if v.Matched {
			status = EntryStatusMatched
		}
		var amount any = v.Amount.StringFixed(2)
		if format == ReportXLSX {
			amount = v.Amount.InexactFloat64()
		}
		table.Rows = append(table.Rows, []any{v.Date.String(), v.Description, amount, string(v.Side), string(status)})
	}
	return table, nil
}

// WriteReport writes the report for ownerID to w.
func (s *ReconcileService) WriteReport(ctx context.Context, ownerID string, format ReportFormat, w io.Writer) error {
	table, err := s.Report(ctx, ownerID, format)
	if err != nil {
		return err
	}
	if format == ReportXLSX {
		return workbook.WriteXLSX(w, table)
	}
	return workbook.WriteCSV(w, table)
}
