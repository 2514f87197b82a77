package allocation

import (
	"fmt"

	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared"
	"github.com/openlms/backend/internal/domain/shared/strategy"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// AdvancedRuleBasedStrategy resolves its allocation order from configured
// rules instead of a fixed built-in order. Each transaction type may carry
// its own rule; everything else falls back to the mandatory DEFAULT rule.
type AdvancedRuleBasedStrategy struct {
	strategy.BaseStrategy
	rules map[string]loan.PaymentAllocationRule
}

// NewAdvancedRuleBasedStrategy creates a rule-based strategy from a
// validated rule set. The set must contain a DEFAULT rule.
func NewAdvancedRuleBasedStrategy(rules []loan.PaymentAllocationRule) (*AdvancedRuleBasedStrategy, error) {
	if err := loan.ValidateRuleSet(rules); err != nil {
		return nil, err
	}
	byType := make(map[string]loan.PaymentAllocationRule, len(rules))
	for _, r := range rules {
		byType[r.TransactionType] = r
	}
	return &AdvancedRuleBasedStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"advanced-rule-based",
			strategy.StrategyTypeRepayment,
			"Allocate following configured per-transaction-type rules",
		),
		rules: byType,
	}, nil
}

// ResolveRule returns the rule configured for the transaction type, falling
// back to DEFAULT.
func (s *AdvancedRuleBasedStrategy) ResolveRule(t loan.TransactionType) (loan.PaymentAllocationRule, error) {
	if rule, ok := s.rules[t.String()]; ok {
		return rule, nil
	}
	if rule, ok := s.rules[loan.DefaultRuleKey]; ok {
		return rule, nil
	}
	return loan.PaymentAllocationRule{}, fmt.Errorf("%w: transaction type %s", shared.ErrAllocationRuleMissing, t)
}

// RefundRule unwinds payments in the reverse of the DEFAULT order, starting
// from the last future installment.
func (s *AdvancedRuleBasedStrategy) RefundRule() (*loan.PaymentAllocationRule, error) {
	base, ok := s.rules[loan.DefaultRuleKey]
	if !ok {
		return nil, fmt.Errorf("%w: no DEFAULT rule to derive refund order from", shared.ErrAllocationRuleMissing)
	}
	reversed := base.Reversed()
	reversed.FutureInstallmentRule = loan.FutureInstallmentLast
	return &reversed, nil
}

// OnOverpayment forwards the overpayment to the account-level sink
func (s *AdvancedRuleBasedStrategy) OnOverpayment(tx *loan.Transaction, amount valueobject.Money, sink loan.OverpaymentSink) {
	sink(tx, amount)
}
