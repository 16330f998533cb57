package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRules is returned when a RuleConfig carries negative tolerances.
var ErrInvalidRules = errors.New("invalid reconciliation rules")

// Default tolerances applied when an owner has no saved rules.
var (
	DefaultValueTolerance    = decimal.RequireFromString("0.05")
	DefaultDateToleranceDays = 1
)

// RuleConfig holds one owner's matching tolerances.
type RuleConfig struct {
	OwnerID           string          `json:"owner_id"`
	ValueTolerance    decimal.Decimal `json:"value_tolerance"`
	DateToleranceDays int             `json:"date_tolerance_days"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DefaultRules returns the default RuleConfig for an owner.
func DefaultRules(ownerID string) RuleConfig {
	return RuleConfig{
		OwnerID:           ownerID,
		ValueTolerance:    DefaultValueTolerance,
		DateToleranceDays: DefaultDateToleranceDays,
	}
}

// Validate checks that both tolerances are non-negative.
func (r RuleConfig) Validate() error {
	if r.ValueTolerance.IsNegative() {
		return fmt.Errorf("%w: value tolerance %s is negative", ErrInvalidRules, r.ValueTolerance)
	}
	if r.DateToleranceDays < 0 {
		return fmt.Errorf("%w: date tolerance %d is negative", ErrInvalidRules, r.DateToleranceDays)
	}
	return nil
}
