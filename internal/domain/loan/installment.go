package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// Installment is one amortization period of a loan schedule. Component
// balances are stored as raw decimals; every operation that needs rounding
// or comparison goes through Money in the loan's currency.
//
// Installments are mutated in place by the allocation engine's pay and unpay
// operations and are never created or deleted during reprocessing, only
// reset and replayed.
type Installment struct {
	Number   int       `json:"number"`
	FromDate time.Time `json:"from_date"`
	DueDate  time.Time `json:"due_date"`

	PrincipalDue    decimal.Decimal `json:"principal_due"`
	PrincipalPaid   decimal.Decimal `json:"principal_paid"`
	PrincipalWaived decimal.Decimal `json:"principal_waived"`
	// CreditedPrincipal tracks principal added back by credit transactions
	// (chargebacks) on top of the scheduled principal.
	CreditedPrincipal decimal.Decimal `json:"credited_principal"`

	InterestDue    decimal.Decimal `json:"interest_due"`
	InterestPaid   decimal.Decimal `json:"interest_paid"`
	InterestWaived decimal.Decimal `json:"interest_waived"`

	FeeDue    decimal.Decimal `json:"fee_due"`
	FeePaid   decimal.Decimal `json:"fee_paid"`
	FeeWaived decimal.Decimal `json:"fee_waived"`

	PenaltyDue    decimal.Decimal `json:"penalty_due"`
	PenaltyPaid   decimal.Decimal `json:"penalty_paid"`
	PenaltyWaived decimal.Decimal `json:"penalty_waived"`

	ObligationsMet       bool       `json:"obligations_met"`
	ObligationsMetOnDate *time.Time `json:"obligations_met_on_date,omitempty"`

	TotalPaidInAdvance decimal.Decimal `json:"total_paid_in_advance"`
	TotalPaidLate      decimal.Decimal `json:"total_paid_late"`
}

// NewInstallment creates an installment with the given due amounts and a
// clean payment state.
func NewInstallment(number int, fromDate, dueDate time.Time, principal, interest, fee, penalty decimal.Decimal) *Installment {
	return &Installment{
		Number:       number,
		FromDate:     fromDate,
		DueDate:      dueDate,
		PrincipalDue: principal,
		InterestDue:  interest,
		FeeDue:       fee,
		PenaltyDue:   penalty,
	}
}

// PrincipalOutstanding returns due - paid - waived for the principal component
func (i *Installment) PrincipalOutstanding(c valueobject.Currency) valueobject.Money {
	outstanding := i.PrincipalDue.Sub(i.PrincipalPaid).Sub(i.PrincipalWaived)
	return valueobject.NewMoney(outstanding, c)
}

// InterestOutstanding returns due - paid - waived for the interest component
func (i *Installment) InterestOutstanding(c valueobject.Currency) valueobject.Money {
	outstanding := i.InterestDue.Sub(i.InterestPaid).Sub(i.InterestWaived)
	return valueobject.NewMoney(outstanding, c)
}

// FeeOutstanding returns due - paid - waived for the fee component
func (i *Installment) FeeOutstanding(c valueobject.Currency) valueobject.Money {
	outstanding := i.FeeDue.Sub(i.FeePaid).Sub(i.FeeWaived)
	return valueobject.NewMoney(outstanding, c)
}

// PenaltyOutstanding returns due - paid - waived for the penalty component
func (i *Installment) PenaltyOutstanding(c valueobject.Currency) valueobject.Money {
	outstanding := i.PenaltyDue.Sub(i.PenaltyPaid).Sub(i.PenaltyWaived)
	return valueobject.NewMoney(outstanding, c)
}

// TotalOutstanding returns the sum of all four component outstandings
func (i *Installment) TotalOutstanding(c valueobject.Currency) valueobject.Money {
	return i.PrincipalOutstanding(c).
		MustAdd(i.InterestOutstanding(c)).
		MustAdd(i.FeeOutstanding(c)).
		MustAdd(i.PenaltyOutstanding(c))
}

// IsFullyPaid returns true if nothing remains outstanding on any component
func (i *Installment) IsFullyPaid(c valueobject.Currency) bool {
	return i.TotalOutstanding(c).IsZero()
}

// IsNotFullyPaid returns true if any component still has an outstanding amount
func (i *Installment) IsNotFullyPaid(c valueobject.Currency) bool {
	return !i.IsFullyPaid(c)
}

// PayPrincipalComponent applies at most the outstanding principal and returns
// the portion actually applied. The result is never negative.
func (i *Installment) PayPrincipalComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	applied := clampApplied(amount, i.PrincipalOutstanding(c))
	i.PrincipalPaid = i.PrincipalPaid.Add(applied.Amount())
	i.trackAdvanceAndLate(date, applied)
	i.checkObligationsMet(date, c)
	return applied
}

// PayInterestComponent applies at most the outstanding interest and returns
// the portion actually applied.
func (i *Installment) PayInterestComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	applied := clampApplied(amount, i.InterestOutstanding(c))
	i.InterestPaid = i.InterestPaid.Add(applied.Amount())
	i.trackAdvanceAndLate(date, applied)
	i.checkObligationsMet(date, c)
	return applied
}

// PayFeeComponent applies at most the outstanding fee and returns the portion
// actually applied.
func (i *Installment) PayFeeComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	applied := clampApplied(amount, i.FeeOutstanding(c))
	i.FeePaid = i.FeePaid.Add(applied.Amount())
	i.trackAdvanceAndLate(date, applied)
	i.checkObligationsMet(date, c)
	return applied
}

// PayPenaltyComponent applies at most the outstanding penalty and returns the
// portion actually applied.
func (i *Installment) PayPenaltyComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	applied := clampApplied(amount, i.PenaltyOutstanding(c))
	i.PenaltyPaid = i.PenaltyPaid.Add(applied.Amount())
	i.trackAdvanceAndLate(date, applied)
	i.checkObligationsMet(date, c)
	return applied
}

// UnpayPrincipalComponent reverses at most the paid principal and returns the
// portion actually reversed. Used by refund and chargeback paths only.
func (i *Installment) UnpayPrincipalComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	reversed := clampApplied(amount, valueobject.NewMoney(i.PrincipalPaid, c))
	i.PrincipalPaid = i.PrincipalPaid.Sub(reversed.Amount())
	i.clearObligationsMet(c)
	return reversed
}

// UnpayInterestComponent reverses at most the paid interest and returns the
// portion actually reversed.
func (i *Installment) UnpayInterestComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	reversed := clampApplied(amount, valueobject.NewMoney(i.InterestPaid, c))
	i.InterestPaid = i.InterestPaid.Sub(reversed.Amount())
	i.clearObligationsMet(c)
	return reversed
}

// UnpayFeeComponent reverses at most the paid fee and returns the portion
// actually reversed.
func (i *Installment) UnpayFeeComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	reversed := clampApplied(amount, valueobject.NewMoney(i.FeePaid, c))
	i.FeePaid = i.FeePaid.Sub(reversed.Amount())
	i.clearObligationsMet(c)
	return reversed
}

// UnpayPenaltyComponent reverses at most the paid penalty and returns the
// portion actually reversed.
func (i *Installment) UnpayPenaltyComponent(date time.Time, amount valueobject.Money) valueobject.Money {
	c := amount.Currency()
	reversed := clampApplied(amount, valueobject.NewMoney(i.PenaltyPaid, c))
	i.PenaltyPaid = i.PenaltyPaid.Sub(reversed.Amount())
	i.clearObligationsMet(c)
	return reversed
}

// AddToPrincipal increases the scheduled principal of this installment. Used
// when a chargeback reinstates principal the borrower owes again.
func (i *Installment) AddToPrincipal(date time.Time, amount valueobject.Money) {
	i.PrincipalDue = i.PrincipalDue.Add(amount.Amount())
	i.CreditedPrincipal = i.CreditedPrincipal.Add(amount.Amount())
	i.clearObligationsMet(amount.Currency())
}

// ResetDerivedComponents zeroes everything replay recomputes: paid amounts,
// credited principal, the advance/late rollups and the obligations-met state.
// Due and waived amounts come from the schedule source and are kept.
func (i *Installment) ResetDerivedComponents() {
	i.PrincipalPaid = decimal.Zero
	i.PrincipalDue = i.PrincipalDue.Sub(i.CreditedPrincipal)
	i.CreditedPrincipal = decimal.Zero
	i.InterestPaid = decimal.Zero
	i.FeePaid = decimal.Zero
	i.PenaltyPaid = decimal.Zero
	i.TotalPaidInAdvance = decimal.Zero
	i.TotalPaidLate = decimal.Zero
	i.ObligationsMet = false
	i.ObligationsMetOnDate = nil
}

// UpdateDerivedFields recomputes the obligations-met state against the given
// reference date. Called once after reset and again in the consistency pass
// at the end of a replay.
func (i *Installment) UpdateDerivedFields(c valueobject.Currency, on time.Time) {
	if !i.ObligationsMet && i.TotalOutstanding(c).IsZero() {
		i.ObligationsMet = true
		met := on
		i.ObligationsMetOnDate = &met
	}
}

func (i *Installment) trackAdvanceAndLate(date time.Time, applied valueobject.Money) {
	if applied.IsZero() {
		return
	}
	if date.Before(i.DueDate) {
		i.TotalPaidInAdvance = i.TotalPaidInAdvance.Add(applied.Amount())
	} else if date.After(i.DueDate) {
		i.TotalPaidLate = i.TotalPaidLate.Add(applied.Amount())
	}
}

func (i *Installment) checkObligationsMet(date time.Time, c valueobject.Currency) {
	if i.TotalOutstanding(c).IsZero() {
		i.ObligationsMet = true
		met := date
		i.ObligationsMetOnDate = &met
	}
}

func (i *Installment) clearObligationsMet(c valueobject.Currency) {
	if i.TotalOutstanding(c).IsPositive() {
		i.ObligationsMet = false
		i.ObligationsMetOnDate = nil
	}
}

// clampApplied caps the requested amount at what is available and floors the
// result at zero so pay/unpay can never produce a negative movement.
func clampApplied(requested, available valueobject.Money) valueobject.Money {
	applied := requested.Min(available)
	if applied.IsNegative() {
		return applied.Zero()
	}
	return applied
}
