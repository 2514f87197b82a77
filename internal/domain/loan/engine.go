package loan

import (
	"sort"
	"time"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// AllocationAction selects the direction the engine moves money in. Pay is
// the normal allocation of an inbound amount; Unpay unwinds previously paid
// components for rule-driven refunds.
type AllocationAction int

const (
	ActionPay AllocationAction = iota
	ActionUnpay
)

// Allocate spends a transaction's amount across the installment schedule
// following the rule's allocation order and returns the unprocessed
// remainder. Every non-zero movement accumulates into the transaction's
// per-installment mappings.
//
// Each allocation-type entry repeats while a target installment exists, the
// remainder is positive and the last movement made progress. An entry whose
// targets cannot absorb more of its component leaves its residual to the
// next entry; only what survives the whole order is the caller's to treat
// as overpayment.
func Allocate(tx *Transaction, installments []*Installment, rule PaymentAllocationRule, action AllocationAction) valueobject.Money {
	return AllocateAmount(tx, tx.Amount, installments, rule, action)
}

// AllocateAmount is Allocate over a partial amount. Charge payments use it
// to push only what is left after the referenced charge has been settled
// through the normal allocation order.
func AllocateAmount(tx *Transaction, amount valueobject.Money, installments []*Installment, rule PaymentAllocationRule, action AllocationAction) valueobject.Money {
	remainder := amount
	for _, entry := range rule.Order {
		if !remainder.IsPositive() {
			break
		}
		remainder = allocateEntry(tx, installments, entry, rule.FutureInstallmentRule, remainder, action)
	}
	return remainder
}

func allocateEntry(tx *Transaction, installments []*Installment, entry AllocationType, future FutureInstallmentRule, remainder valueobject.Money, action AllocationAction) valueobject.Money {
	c := remainder.Currency()
	for remainder.IsPositive() {
		switch entry.Due {
		case DueTypePastDue, DueTypeDue:
			target := selectByDueDate(installments, c, tx.Date, entry.Due, action)
			if target == nil {
				return remainder
			}
			applied := applyComponent(tx, target, entry.Component, remainder, action)
			remainder = remainder.MustSubtract(applied)
			if !applied.IsPositive() {
				return remainder
			}
		case DueTypeInAdvance:
			targets := selectFuture(installments, c, tx.Date, future, action)
			if len(targets) == 0 {
				return remainder
			}
			var applied valueobject.Money
			remainder, applied = allocateAcross(tx, targets, entry.Component, remainder, action)
			if !applied.IsPositive() {
				return remainder
			}
		default:
			return remainder
		}
	}
	return remainder
}

// allocateAcross splits the remainder into even shares over the selected
// future installments. The rounding residue goes entirely to the last
// selected installment so the split sums back exactly. Returns the new
// remainder and the largest single portion applied, the progress signal for
// the caller's repeat loop.
func allocateAcross(tx *Transaction, targets []*Installment, component ComponentType, remainder valueobject.Money, action AllocationAction) (valueobject.Money, valueobject.Money) {
	n := int64(len(targets))
	share := remainder.DividedBy(n)
	residue := remainder.MustSubtract(share.MultipliedBy(n))

	largest := remainder.Zero()
	for idx, target := range targets {
		portion := share
		if idx == len(targets)-1 {
			portion = portion.MustAdd(residue)
		}
		// A share rounded upwards times n can exceed what is left; each
		// portion is capped at the running remainder so the split never
		// allocates money the transaction does not carry.
		portion = portion.Min(remainder)
		if !portion.IsPositive() {
			continue
		}
		applied := applyComponent(tx, target, component, portion, action)
		remainder = remainder.MustSubtract(applied)
		if applied.GreaterThan(largest) {
			largest = applied
		}
	}
	return remainder, largest
}

// applyComponent moves at most amount on one installment component and
// records the movement in the transaction's mapping for that installment.
func applyComponent(tx *Transaction, target *Installment, component ComponentType, amount valueobject.Money, action AllocationAction) valueobject.Money {
	var applied valueobject.Money
	switch action {
	case ActionUnpay:
		switch component {
		case ComponentPenalty:
			applied = target.UnpayPenaltyComponent(tx.Date, amount)
		case ComponentFee:
			applied = target.UnpayFeeComponent(tx.Date, amount)
		case ComponentInterest:
			applied = target.UnpayInterestComponent(tx.Date, amount)
		default:
			applied = target.UnpayPrincipalComponent(tx.Date, amount)
		}
	default:
		switch component {
		case ComponentPenalty:
			applied = target.PayPenaltyComponent(tx.Date, amount)
		case ComponentFee:
			applied = target.PayFeeComponent(tx.Date, amount)
		case ComponentInterest:
			applied = target.PayInterestComponent(tx.Date, amount)
		default:
			applied = target.PayPrincipalComponent(tx.Date, amount)
		}
	}
	if applied.IsPositive() {
		recordMapping(tx, target.Number, component, applied)
	}
	return applied
}

func recordMapping(tx *Transaction, installmentNumber int, component ComponentType, applied valueobject.Money) {
	m := tx.MappingFor(installmentNumber)
	zero := applied.Zero()
	switch component {
	case ComponentPenalty:
		m.Accumulate(zero, zero, zero, applied)
	case ComponentFee:
		m.Accumulate(zero, zero, applied, zero)
	case ComponentInterest:
		m.Accumulate(zero, applied, zero, zero)
	default:
		m.Accumulate(applied, zero, zero, zero)
	}
}

// available reports whether an installment can still take part in an
// allocation step: something outstanding for pay, something paid for unpay.
func available(i *Installment, c valueobject.Currency, action AllocationAction) bool {
	if action == ActionUnpay {
		totalPaid := i.PrincipalPaid.Add(i.InterestPaid).Add(i.FeePaid).Add(i.PenaltyPaid)
		return valueobject.NewMoney(totalPaid, c).IsPositive()
	}
	return i.IsNotFullyPaid(c)
}

// selectByDueDate finds the target for a PAST_DUE or DUE entry. Pay picks
// the lowest installment number among candidates; unpay unwinds newest
// first and picks the highest. Selection never depends on input list order.
func selectByDueDate(installments []*Installment, c valueobject.Currency, txDate time.Time, due DueType, action AllocationAction) *Installment {
	var target *Installment
	for _, i := range installments {
		if due == DueTypePastDue && !i.DueDate.Before(txDate) {
			continue
		}
		if due == DueTypeDue && !i.DueDate.Equal(txDate) {
			continue
		}
		if !available(i, c, action) {
			continue
		}
		if target == nil || betterTarget(i, target, action) {
			target = i
		}
	}
	return target
}

func betterTarget(candidate, current *Installment, action AllocationAction) bool {
	if action == ActionUnpay {
		return candidate.Number > current.Number
	}
	return candidate.Number < current.Number
}

// selectFuture returns the installments an IN_ADVANCE entry targets, ordered
// by installment number: every future candidate for REAMORTIZATION, the
// lowest-numbered one for NEXT_INSTALLMENT, the highest-numbered one for
// LAST_INSTALLMENT.
func selectFuture(installments []*Installment, c valueobject.Currency, txDate time.Time, future FutureInstallmentRule, action AllocationAction) []*Installment {
	var candidates []*Installment
	for _, i := range installments {
		if !i.DueDate.After(txDate) {
			continue
		}
		if !available(i, c, action) {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return nil
	}

	switch future {
	case FutureInstallmentReamortization:
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].Number < candidates[b].Number
		})
		return candidates
	case FutureInstallmentLast:
		target := candidates[0]
		for _, i := range candidates[1:] {
			if i.Number > target.Number {
				target = i
			}
		}
		return []*Installment{target}
	default:
		target := candidates[0]
		for _, i := range candidates[1:] {
			if i.Number < target.Number {
				target = i
			}
		}
		return []*Installment{target}
	}
}
