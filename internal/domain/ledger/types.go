// Package ledger holds the reconciliation data model shared by the
// normalizer, the match engine and the storage layer.
//
// An Entry is one monetary movement from either the bank statement or the
// internal (ERP) ledger. A MatchRecord links exactly one bank entry to
// exactly one internal entry; records produced by the same matching
// operation share a GroupID so N:M linkages can be expressed with strictly
// 1:1 records.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which ledger an entry came from.
type Side string

const (
	SideBank     Side = "BANK"
	SideInternal Side = "INTERNAL"
)

// ParseSide parses a side name case-insensitively ("bank", "internal").
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBank:
		return SideBank, nil
	case SideInternal:
		return SideInternal, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Entry is one normalized monetary movement.
// Amount is signed: positive is an inflow/credit, negative an outflow/debit.
type Entry struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Side        Side            `json:"side"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	SubGroup    string          `json:"sub_group,omitempty"` // internal side only
}

// Cents returns the amount in integer minor units.
func (e Entry) Cents() int64 {
	return ToCents(e.Amount)
}

// MatchType records which strategy produced a MatchRecord.
type MatchType string

const (
	MatchManual              MatchType = "MANUAL"
	MatchExact               MatchType = "EXACT"
	MatchGroupedByIdentifier MatchType = "GROUPED_BY_IDENTIFIER"
	MatchGroupedBySum        MatchType = "GROUPED_BY_SUM"
)

// Valid reports whether t is one of the known match types.
func (t MatchType) Valid() bool {
	switch t {
	case MatchManual, MatchExact, MatchGroupedByIdentifier, MatchGroupedBySum:
		return true
	}
	return false
}

// MatchRecord links one bank entry to one internal entry.
type MatchRecord struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	BankEntryID     string    `json:"bank_entry_id"`
	InternalEntryID string    `json:"internal_entry_id"`
	MatchType       MatchType `json:"match_type"`
	GroupID         string    `json:"group_id"`
	CreatedAt       time.Time `json:"created_at"`
}
