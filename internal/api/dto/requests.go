package dto

import "github.com/shopspring/decimal"

// ManualMatchRequest is the body of POST /api/matches/manual.
type ManualMatchRequest struct {
	BankEntryIDs     []string `json:"bank_entry_ids"`
	InternalEntryIDs []string `json:"internal_entry_ids"`
}

// AutoMatchRequest is the body of POST /api/matches/auto.
type AutoMatchRequest struct {
	Strategy string `json:"strategy"`
}

// UpdateRulesRequest is the body of PUT /api/rules. Omitted fields keep
// their current value. value_tolerance accepts a number or a string.
type UpdateRulesRequest struct {
	ValueTolerance    *decimal.Decimal `json:"value_tolerance"`
	DateToleranceDays *int             `json:"date_tolerance_days"`
}

// ImportRunListParams represents query parameters for listing import runs.
type ImportRunListParams struct {
	Limit int `json:"limit"`
}

// DefaultImportRunListParams returns default values for import run list params.
func DefaultImportRunListParams() ImportRunListParams {
	return ImportRunListParams{
		Limit: 20,
	}
}
