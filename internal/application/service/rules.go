package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
)

// GetRules returns the owner's rules, saving the defaults on first use.
func (s *ReconcileService) GetRules(ctx context.Context, ownerID string) (*ledger.RuleConfig, error) {
	if s.rulesCache != nil {
		if cached, ok := s.rulesCache.Get(ownerID); ok {
			rules := cached.(ledger.RuleConfig)
			return &rules, nil
		}
	}

	rules, err := s.repo.GetRules(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		defaults := s.defaultRules(ownerID)
		defaults.UpdatedAt = s.now().UTC()
		if err := s.repo.SaveRules(ctx, defaults); err != nil {
			return nil, fmt.Errorf("failed to create default rules: %w", err)
		}
		s.logger.Debug("created default rules", "owner_id", ownerID)
		rules = &defaults
	} else if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	s.cacheRules(*rules)
	return rules, nil
}

// UpdateRules replaces the owner's tolerances.
func (s *ReconcileService) UpdateRules(ctx context.Context, ownerID string, valueTolerance decimal.Decimal, dateToleranceDays int) (*ledger.RuleConfig, error) {
	rules := ledger.RuleConfig{
		OwnerID:           ownerID,
		ValueTolerance:    valueTolerance,
		DateToleranceDays: dateToleranceDays,
		UpdatedAt:         s.now().UTC(),
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	if s.rulesCache != nil {
		s.rulesCache.Delete(ownerID)
	}
	if err := s.repo.SaveRules(ctx, rules); err != nil {
		return nil, fmt.Errorf("failed to save rules: %w", err)
	}
	s.cacheRules(rules)

	s.logger.Info("rules updated",
		"owner_id", ownerID,
		"value_tolerance", rules.ValueTolerance.String(),
		"date_tolerance_days", rules.DateToleranceDays)
	return &rules, nil
}

func (s *ReconcileService) cacheRules(rules ledger.RuleConfig) {
	if s.rulesCache != nil {
		s.rulesCache.SetDefault(rules.OwnerID, rules)
	}
}
