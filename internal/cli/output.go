package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/eshaffer321/reconcile-backend/internal/application/service"
	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/domain/normalizer"
)

const rule = 60

// PrintHeader prints the command header
func PrintHeader(w io.Writer, command, owner string) {
	fmt.Fprintf(w, "reconcile: %s (owner %s)\n", command, owner)
}

// PrintImportResult prints one line per imported file
func PrintImportResult(w io.Writer, result *service.ImportResult) {
	for _, report := range []*service.FileReport{result.Bank, result.Internal} {
		if report == nil {
			continue
		}
		fmt.Fprintf(w, "%-8s %s [%s] %s: accepted=%d rejected=%d",
			report.Side, report.FileName, report.Format, report.Status, report.Accepted, report.Rejected)
		if report.Error != "" {
			fmt.Fprintf(w, " error=%q", report.Error)
		}
		fmt.Fprintln(w)
	}
}

// PrintAutoMatch prints the outcome of each automatic pass
func PrintAutoMatch(w io.Writer, result *service.AutoMatchResult) {
	total := 0
	for _, p := range result.Passes {
		fmt.Fprintf(w, "%-10s records=%d groups=%d\n", p.Type, p.Records, p.Groups)
		total += p.Records
	}
	fmt.Fprintln(w, strings.Repeat("-", rule))
	fmt.Fprintf(w, "Matched: %d records\n", total)
}

// PrintMatches prints match records grouped the way they were stored
func PrintMatches(w io.Writer, records []ledger.MatchRecord) {
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-10s group=%s bank=%s internal=%s\n",
			r.ID, r.MatchType, r.GroupID, r.BankEntryID, r.InternalEntryID)
	}
}

// PrintRules prints an owner's matching rules
func PrintRules(w io.Writer, rules *ledger.RuleConfig) {
	fmt.Fprintf(w, "Value tolerance: %s\n", normalizer.FormatAmount(rules.ValueTolerance))
	fmt.Fprintf(w, "Date tolerance:  %d day(s)\n", rules.DateToleranceDays)
	if !rules.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:         %s\n", rules.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

// PrintSummary prints matched and unmatched totals per side
func PrintSummary(w io.Writer, summary *service.Summary) {
	printSide := func(name string, s service.SideSummary) {
		fmt.Fprintf(w, "%-8s entries=%d matched=%d (%s) unmatched=%d (%s)\n",
			name,
			s.Entries,
			s.Matched, normalizer.FormatAmount(s.MatchedAmount),
			s.Unmatched, normalizer.FormatAmount(s.UnmatchedAmount))
	}

	printSide("Bank", summary.Bank)
	printSide("Internal", summary.Internal)
	fmt.Fprintln(w, strings.Repeat("-", rule))
	fmt.Fprintf(w, "Matches=%d Groups=%d", summary.Matches, summary.Groups)

	types := make([]string, 0, len(summary.ByType))
	for t := range summary.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, " %s=%d", t, summary.ByType[ledger.MatchType(t)])
	}
	fmt.Fprintln(w)
}
