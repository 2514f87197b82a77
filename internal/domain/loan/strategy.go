package loan

import (
	"github.com/openlms/backend/internal/domain/shared/strategy"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// OverpaymentSink is the account-level callback invoked when a strategy acts
// on an overpayment. The amount is positive when a transaction adds to the
// loan's overpaid balance and negative when a credit transaction consumes
// from it.
type OverpaymentSink func(tx *Transaction, amount valueobject.Money)

// RepaymentStrategy is the capability surface a repayment processing variant
// must provide. The set of implementations is closed; an unimplemented
// capability fails with ErrUnsupportedOperation rather than falling back to
// another variant's behavior.
type RepaymentStrategy interface {
	strategy.Strategy

	// ResolveRule returns the allocation rule for the given transaction
	// type, falling back to the DEFAULT rule. A missing DEFAULT is a
	// configuration error (ErrAllocationRuleMissing).
	ResolveRule(t TransactionType) (PaymentAllocationRule, error)

	// RefundRule returns the allocation rule a refund unwinds payments
	// with. A nil rule selects the built-in reverse walk over installments.
	// Strategies without refund support return ErrUnsupportedOperation.
	RefundRule() (*PaymentAllocationRule, error)

	// OnOverpayment lets the strategy act on an overpayment movement,
	// typically by forwarding it to the sink. Declining (no-op) is valid.
	OnOverpayment(tx *Transaction, amount valueobject.Money, sink OverpaymentSink)
}
