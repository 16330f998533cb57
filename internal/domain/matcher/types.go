package matcher

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// MaxSubsetCandidates bounds the subset-sum search. Valid subsets that need
// the 21st or later same-day candidate are not found.
const MaxSubsetCandidates = 20

// ErrEmptySelection is returned by ManualMatch when either side is empty.
var ErrEmptySelection = errors.New("manual match requires at least one bank and one internal entry")

// Config holds matcher configuration
type Config struct {
	ValueTolerance    decimal.Decimal // Default: 0.05
	DateToleranceDays int             // Default: 1
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return ConfigFromRules(ledger.DefaultRules(""))
}

// ConfigFromRules builds a matcher Config from an owner's RuleConfig.
func ConfigFromRules(rules ledger.RuleConfig) Config {
	return Config{
		ValueTolerance:    rules.ValueTolerance,
		DateToleranceDays: rules.DateToleranceDays,
	}
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithIDGenerator replaces the UUID generator used for record and group IDs.
func WithIDGenerator(fn func() string) Option {
	return func(m *Matcher) { m.newID = fn }
}

// WithClock replaces the clock used for CreatedAt.
func WithClock(fn func() time.Time) Option {
	return func(m *Matcher) { m.now = fn }
}

// PassResult is the output of one automatic matching pass.
type PassResult struct {
	Type    ledger.MatchType
	Records []ledger.MatchRecord
	Groups  int // number of distinct group IDs emitted
}

func newPassResult(t ledger.MatchType) *PassResult {
	return &PassResult{Type: t, Records: []ledger.MatchRecord{}}
}

func defaultID() string {
	return uuid.NewString()
}
