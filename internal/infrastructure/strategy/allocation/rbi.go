package allocation

import (
	"fmt"

	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared"
	"github.com/openlms/backend/internal/domain/shared/strategy"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// RBIStyleStrategy follows the Reserve Bank of India ordering: overdue and
// due principal and interest are recovered before any penalty or fee, and
// overpayments are left to the surrounding account logic untouched.
type RBIStyleStrategy struct {
	strategy.BaseStrategy
	rule loan.PaymentAllocationRule
}

// NewRBIStyleStrategy creates an RBI-style strategy
func NewRBIStyleStrategy() *RBIStyleStrategy {
	return &RBIStyleStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"rbi-style",
			strategy.StrategyTypeRepayment,
			"Recover principal and interest before penalties and fees, per RBI ordering",
		),
		rule: loan.PaymentAllocationRule{
			TransactionType: loan.DefaultRuleKey,
			Order: []loan.AllocationType{
				{Due: loan.DueTypePastDue, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypePastDue, Component: loan.ComponentInterest},
				{Due: loan.DueTypeDue, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypeDue, Component: loan.ComponentInterest},
				{Due: loan.DueTypePastDue, Component: loan.ComponentPenalty},
				{Due: loan.DueTypePastDue, Component: loan.ComponentFee},
				{Due: loan.DueTypeDue, Component: loan.ComponentPenalty},
				{Due: loan.DueTypeDue, Component: loan.ComponentFee},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentInterest},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentPenalty},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentFee},
			},
			FutureInstallmentRule: loan.FutureInstallmentNext,
		},
	}
}

// ResolveRule returns the fixed RBI order for every transaction type
func (s *RBIStyleStrategy) ResolveRule(loan.TransactionType) (loan.PaymentAllocationRule, error) {
	return s.rule, nil
}

// RefundRule is not implemented for the RBI variant
func (s *RBIStyleStrategy) RefundRule() (*loan.PaymentAllocationRule, error) {
	return nil, fmt.Errorf("%w: strategy %s does not support refunds", shared.ErrUnsupportedOperation, s.Name())
}

// OnOverpayment declines to act; the overpaid balance stays with the caller
func (s *RBIStyleStrategy) OnOverpayment(*loan.Transaction, valueobject.Money, loan.OverpaymentSink) {
}
