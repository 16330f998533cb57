package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/domain/matcher"
	"github.com/eshaffer321/reconcile-backend/internal/domain/normalizer"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
)

var (
	// ErrUnknownEntry is returned when a selection names an entry the owner
	// does not have on that side.
	ErrUnknownEntry = errors.New("unknown entry")

	// ErrUnknownStrategy is returned for an automatic strategy name that is
	// not recognized.
	ErrUnknownStrategy = errors.New("unknown matching strategy")

	// ErrNoFiles is returned when an import carries neither file.
	ErrNoFiles = errors.New("no files to import")

	// ErrInvalidFilter is returned for an unrecognized list filter or
	// report format.
	ErrInvalidFilter = errors.New("invalid filter")
)

// DefaultRulesCacheTTL is how long an owner's rules are served from memory.
const DefaultRulesCacheTTL = 5 * time.Minute

// ReconcileService runs each reconciliation action as one unit: read the
// owner's persisted state, compute, write one batch.
type ReconcileService struct {
	repo       storage.Repository
	normalizer *normalizer.Normalizer
	logger     *slog.Logger

	rulesCache   *gocache.Cache
	defaultRules func(ownerID string) ledger.RuleConfig

	matcherOpts []matcher.Option
	now         func() time.Time
}

// Option customizes a ReconcileService.
type Option func(*ReconcileService)

// WithDefaultRules sets the tolerances given to owners without saved rules.
func WithDefaultRules(valueTolerance decimal.Decimal, dateToleranceDays int) Option {
	return func(s *ReconcileService) {
		s.defaultRules = func(ownerID string) ledger.RuleConfig {
			return ledger.RuleConfig{
				OwnerID:           ownerID,
				ValueTolerance:    valueTolerance,
				DateToleranceDays: dateToleranceDays,
			}
		}
	}
}

// WithRulesCacheTTL sets the rules cache lifetime. Zero or less disables
// caching.
func WithRulesCacheTTL(ttl time.Duration) Option {
	return func(s *ReconcileService) {
		if ttl <= 0 {
			s.rulesCache = nil
			return
		}
		s.rulesCache = gocache.New(ttl, 2*ttl)
	}
}

// WithMatcherOptions passes options to every matcher the service builds.
func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(s *ReconcileService) { s.matcherOpts = append(s.matcherOpts, opts...) }
}

// WithClock replaces the clock used for rule timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ReconcileService) { s.now = now }
}

// NewReconcileService creates a reconciliation service over repo.
func NewReconcileService(repo storage.Repository, logger *slog.Logger, opts ...Option) *ReconcileService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &ReconcileService{
		repo:         repo,
		normalizer:   normalizer.NewNormalizer(logger),
		logger:       logger,
		rulesCache:   gocache.New(DefaultRulesCacheTTL, 2*DefaultRulesCacheTTL),
		defaultRules: ledger.DefaultRules,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newMatcher builds a matcher configured with the owner's current rules.
func (s *ReconcileService) newMatcher(ctx context.Context, ownerID string) (*matcher.Matcher, error) {
	rules, err := s.GetRules(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return matcher.NewMatcher(matcher.ConfigFromRules(*rules), s.matcherOpts...), nil
}

// state is one owner's persisted entries and matches, read together.
type state struct {
	bank     []ledger.Entry
	internal []ledger.Entry
	matches  []ledger.MatchRecord
}

func (s *ReconcileService) loadState(ctx context.Context, ownerID string) (*state, error) {
	bank, err := s.repo.ListEntries(ctx, ownerID, ledger.SideBank)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank entries: %w", err)
	}
	internal, err := s.repo.ListEntries(ctx, ownerID, ledger.SideInternal)
	if err != nil {
		return nil, fmt.Errorf("failed to load internal entries: %w", err)
	}
	matches, err := s.repo.ListMatches(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	return &state{bank: bank, internal: internal, matches: matches}, nil
}

// pools returns the unmatched entries of each side.
func (st *state) pools() (bank, internal []ledger.Entry) {
	all := make([]ledger.Entry, 0, len(st.bank)+len(st.internal))
	all = append(append(all, st.bank...), st.internal...)
	return ledger.SplitBySide(ledger.Unmatched(all, st.matches))
}
