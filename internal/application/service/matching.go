package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/domain/matcher"
)

// Strategy names an automatic matching pass.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyIdentifier Strategy = "identifier"
	StrategySubsetSum  Strategy = "subset_sum"
	StrategyAll        Strategy = "all"
)

// ParseStrategy parses a strategy name case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyExact, StrategyIdentifier, StrategySubsetSum, StrategyAll:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// passes returns the automatic passes a strategy runs, in order.
func (st Strategy) passes() []Strategy {
	if st == StrategyAll {
		return []Strategy{StrategyExact, StrategyIdentifier, StrategySubsetSum}
	}
	return []Strategy{st}
}

// PassSummary reports what one automatic pass persisted.
type PassSummary struct {
	Type    ledger.MatchType `json:"match_type"`
	Records int              `json:"records"`
	Groups  int              `json:"groups"`
}

// AutoMatchResult reports every pass an AutoMatch call ran.
type AutoMatchResult struct {
	Passes  []PassSummary        `json:"passes"`
	Records []ledger.MatchRecord `json:"records"`
}

// ManualMatch links every selected bank entry to every selected internal
// entry under one new group. Every id must belong to the owner on the
// named side.
func (s *ReconcileService) ManualMatch(ctx context.Context, ownerID string, bankIDs, internalIDs []string) ([]ledger.MatchRecord, error) {
	m, err := s.newMatcher(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	records, err := m.ManualMatch(ownerID, bankIDs, internalIDs)
	if err != nil {
		return nil, err
	}

	st, err := s.loadState(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := checkKnown(st.bank, records, func(r ledger.MatchRecord) string { return r.BankEntryID }, ledger.SideBank); err != nil {
		return nil, err
	}
	if err := checkKnown(st.internal, records, func(r ledger.MatchRecord) string { return r.InternalEntryID }, ledger.SideInternal); err != nil {
		return nil, err
	}

	if err := s.repo.InsertMatches(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to store manual match: %w", err)
	}

	s.logger.Info("manual match stored",
		"owner_id", ownerID,
		"group_id", records[0].GroupID,
		"records", len(records))
	return records, nil
}

func checkKnown(entries []ledger.Entry, records []ledger.MatchRecord, id func(ledger.MatchRecord) string, side ledger.Side) error {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}
	for _, r := range records {
		if !known[id(r)] {
			return fmt.Errorf("%w: %s entry %s", ErrUnknownEntry, strings.ToLower(string(side)), id(r))
		}
	}
	return nil
}

// AutoMatch runs one automatic strategy, or all three in order. Every pass
// recomputes the unmatched pools from storage and persists its records as
// one batch before the next pass starts.
func (s *ReconcileService) AutoMatch(ctx context.Context, ownerID string, strategy Strategy) (*AutoMatchResult, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	m, err := s.newMatcher(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	cfg := m.Config()
	s.logger.Debug("auto match started",
		"owner_id", ownerID,
		"strategy", string(strategy),
		"value_tolerance", cfg.ValueTolerance.String(),
		"date_tolerance_days", cfg.DateToleranceDays)

	result := &AutoMatchResult{Passes: []PassSummary{}, Records: []ledger.MatchRecord{}}
	for _, pass := range strategy.passes() {
		st, err := s.loadState(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		bank, internal := st.pools()

		var pr *matcher.PassResult
		switch pass {
		case StrategyExact:
			pr = m.ExactMatch(bank, internal)
		case StrategyIdentifier:
			pr = m.IdentifierMatch(bank, internal)
		case StrategySubsetSum:
			pr = m.SubsetSumMatch(bank, internal)
		}

		if len(pr.Records) > 0 {
			if err := s.repo.InsertMatches(ctx, pr.Records); err != nil {
				return nil, fmt.Errorf("failed to store %s matches: %w", pass, err)
			}
		}

		s.logger.Info("matching pass complete",
			"owner_id", ownerID,
			"match_type", pr.Type,
			"bank_pool", len(bank),
			"internal_pool", len(internal),
			"records", len(pr.Records),
			"groups", pr.Groups)

		result.Passes = append(result.Passes, PassSummary{Type: pr.Type, Records: len(pr.Records), Groups: pr.Groups})
		result.Records = append(result.Records, pr.Records...)
	}
	return result, nil
}

// Unmatch deletes one match record. Other records of its group are kept.
func (s *ReconcileService) Unmatch(ctx context.Context, ownerID, matchID string) error {
	record, err := s.repo.GetMatch(ctx, ownerID, matchID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMatch(ctx, ownerID, matchID); err != nil {
		return err
	}
	s.logger.Info("match removed",
		"owner_id", ownerID,
		"match_id", matchID,
		"group_id", record.GroupID,
		"match_type", string(record.MatchType))
	return nil
}

// ListMatches returns the owner's match records.
func (s *ReconcileService) ListMatches(ctx context.Context, ownerID string) ([]ledger.MatchRecord, error) {
	return s.repo.ListMatches(ctx, ownerID)
}

// ClearAll deletes the owner's entries and matches. Rules and the import
// history are kept.
func (s *ReconcileService) ClearAll(ctx context.Context, ownerID string) error {
	if err := s.repo.DeleteOwnerData(ctx, ownerID); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	s.logger.Info("owner data cleared", "owner_id", ownerID)
	return nil
}
