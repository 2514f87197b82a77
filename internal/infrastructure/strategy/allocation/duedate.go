package allocation

import (
	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared/strategy"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// DueDateRespectiveStrategy allocates strictly by the schedule's due dates:
// overdue installments are cleared first, then installments due on the
// transaction date, each penalty, fee, interest, principal in turn. Early
// payments go to the next upcoming installment, principal first.
type DueDateRespectiveStrategy struct {
	strategy.BaseStrategy
	rule loan.PaymentAllocationRule
}

// NewDueDateRespectiveStrategy creates a due-date-respective strategy
func NewDueDateRespectiveStrategy() *DueDateRespectiveStrategy {
	return &DueDateRespectiveStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"due-date-respective",
			strategy.StrategyTypeRepayment,
			"Clear overdue amounts first, penalties before fees before interest before principal",
		),
		rule: loan.PaymentAllocationRule{
			TransactionType: loan.DefaultRuleKey,
			Order: []loan.AllocationType{
				{Due: loan.DueTypePastDue, Component: loan.ComponentPenalty},
				{Due: loan.DueTypePastDue, Component: loan.ComponentFee},
				{Due: loan.DueTypePastDue, Component: loan.ComponentInterest},
				{Due: loan.DueTypePastDue, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypeDue, Component: loan.ComponentPenalty},
				{Due: loan.DueTypeDue, Component: loan.ComponentFee},
				{Due: loan.DueTypeDue, Component: loan.ComponentInterest},
				{Due: loan.DueTypeDue, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentPrincipal},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentPenalty},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentFee},
				{Due: loan.DueTypeInAdvance, Component: loan.ComponentInterest},
			},
			FutureInstallmentRule: loan.FutureInstallmentNext,
		},
	}
}

// ResolveRule returns the fixed due-date-respective order for every
// transaction type.
func (s *DueDateRespectiveStrategy) ResolveRule(loan.TransactionType) (loan.PaymentAllocationRule, error) {
	return s.rule, nil
}

// RefundRule selects the built-in reverse walk
func (s *DueDateRespectiveStrategy) RefundRule() (*loan.PaymentAllocationRule, error) {
	return nil, nil
}

// OnOverpayment forwards the overpayment to the account-level sink
func (s *DueDateRespectiveStrategy) OnOverpayment(tx *loan.Transaction, amount valueobject.Money, sink loan.OverpaymentSink) {
	sink(tx, amount)
}
