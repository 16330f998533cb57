package dto

import (
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SchemaVersion int64  `json:"schema_version,omitempty"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID          string `json:"id"`
	Side        string `json:"side"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	SubGroup    string `json:"sub_group,omitempty"`
	Matched     bool   `json:"matched"`
}

// EntryListResponse is returned when listing entries.
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Count   int             `json:"count"`
}

// MatchResponse represents a match record in API responses.
type MatchResponse struct {
	ID              string `json:"id"`
	BankEntryID     string `json:"bank_entry_id"`
	InternalEntryID string `json:"internal_entry_id"`
	MatchType       string `json:"match_type"`
	GroupID         string `json:"group_id"`
	CreatedAt       string `json:"created_at"`
}

// MatchListResponse is returned when listing or creating matches.
type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
	Count   int             `json:"count"`
}

// PassResponse reports one automatic matching pass.
type PassResponse struct {
	MatchType string `json:"match_type"`
	Records   int    `json:"records"`
	Groups    int    `json:"groups"`
}

// AutoMatchResponse is returned by POST /api/matches/auto.
type AutoMatchResponse struct {
	Strategy string          `json:"strategy"`
	Passes   []PassResponse  `json:"passes"`
	Matches  []MatchResponse `json:"matches"`
}

// RulesResponse represents an owner's matching rules.
type RulesResponse struct {
	ValueTolerance    string `json:"value_tolerance"`
	DateToleranceDays int    `json:"date_tolerance_days"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// ImportFileResponse reports the import of one file.
type ImportFileResponse struct {
	FileName string `json:"file_name"`
	Format   string `json:"format"`
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// ImportResponse is returned by POST /api/imports.
type ImportResponse struct {
	Bank     *ImportFileResponse `json:"bank,omitempty"`
	Internal *ImportFileResponse `json:"internal,omitempty"`
}

// ImportRunResponse represents an import run in API responses.
type ImportRunResponse struct {
	ID        int64  `json:"id"`
	Side      string `json:"side"`
	FileName  string `json:"file_name"`
	Format    string `json:"format"`
	Status    string `json:"status"`
	Accepted  int    `json:"accepted"`
	Rejected  int    `json:"rejected"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ImportRunListResponse is returned when listing import runs.
type ImportRunListResponse struct {
	Runs  []ImportRunResponse `json:"runs"`
	Count int                 `json:"count"`
}

// SideSummaryResponse totals one side.
type SideSummaryResponse struct {
	Entries         int    `json:"entries"`
	Matched         int    `json:"matched"`
	Unmatched       int    `json:"unmatched"`
	MatchedAmount   string `json:"matched_amount"`
	UnmatchedAmount string `json:"unmatched_amount"`
}

// SummaryResponse is returned by GET /api/summary.
type SummaryResponse struct {
	Bank     SideSummaryResponse `json:"bank"`
	Internal SideSummaryResponse `json:"internal"`
	Matches  int                 `json:"matches"`
	Groups   int                 `json:"groups"`
	ByType   map[string]int      `json:"by_type"`
}

// NewMatchResponse converts a match record.
func NewMatchResponse(m ledger.MatchRecord) MatchResponse {
	return MatchResponse{
		ID:              m.ID,
		BankEntryID:     m.BankEntryID,
		InternalEntryID: m.InternalEntryID,
		MatchType:       string(m.MatchType),
		GroupID:         m.GroupID,
		CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewMatchListResponse converts match records.
func NewMatchListResponse(matches []ledger.MatchRecord) MatchListResponse {
	resp := MatchListResponse{Matches: make([]MatchResponse, 0, len(matches)), Count: len(matches)}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, NewMatchResponse(m))
	}
	return resp
}

// NewRulesResponse converts a rule config.
func NewRulesResponse(r ledger.RuleConfig) RulesResponse {
	resp := RulesResponse{
		ValueTolerance:    r.ValueTolerance.String(),
		DateToleranceDays: r.DateToleranceDays,
	}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
