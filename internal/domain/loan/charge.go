package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// Charge is a due-dated fee or penalty attached to a loan. Charges live
// outside the installment schedule but their paid bookkeeping is kept in
// sync with the fee and penalty portions allocation produces.
type Charge struct {
	Number            int             `json:"number"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	Penalty           bool            `json:"penalty"`
	Amount            decimal.Decimal `json:"amount"`
	Paid              decimal.Decimal `json:"paid"`
	Waived            decimal.Decimal `json:"waived"`
	Active            bool            `json:"active"`
	DueAtDisbursement bool            `json:"due_at_disbursement"`
}

// NewCharge creates an active charge with a clean paid state
func NewCharge(number int, dueDate *time.Time, penalty bool, amount decimal.Decimal) *Charge {
	return &Charge{
		Number:  number,
		DueDate: dueDate,
		Penalty: penalty,
		Amount:  amount,
		Active:  true,
	}
}

// IsActive returns true if the charge participates in allocation
func (ch *Charge) IsActive() bool {
	return ch.Active
}

// IsDueAtDisbursement returns true for charges collected with the
// disbursement itself. Their paid state survives a replay reset.
func (ch *Charge) IsDueAtDisbursement() bool {
	return ch.DueAtDisbursement
}

// IsPenalty returns true for penalty charges
func (ch *Charge) IsPenalty() bool {
	return ch.Penalty
}

// Outstanding returns amount - paid - waived
func (ch *Charge) Outstanding(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(ch.Amount.Sub(ch.Paid).Sub(ch.Waived), c)
}

// IsNotFullyPaid returns true if the charge still has an outstanding amount
func (ch *Charge) IsNotFullyPaid(c valueobject.Currency) bool {
	return ch.Outstanding(c).IsPositive()
}

// IsPaid returns true if the paid amount is positive
func (ch *Charge) IsPaid() bool {
	return ch.Paid.IsPositive()
}

// EffectiveDueDate returns the charge's due date, or the zero time for
// charges without one so they sort before every dated charge.
func (ch *Charge) EffectiveDueDate() time.Time {
	if ch.DueDate == nil {
		return time.Time{}
	}
	return *ch.DueDate
}

// ResetPaidAmount clears the paid bookkeeping ahead of a replay
func (ch *Charge) ResetPaidAmount(c valueobject.Currency) {
	ch.Paid = decimal.Zero
}

// UpdatePaidAmountBy increases the paid amount by at most the outstanding
// amount and returns the portion actually applied.
func (ch *Charge) UpdatePaidAmountBy(amount valueobject.Money) valueobject.Money {
	applied := clampApplied(amount, ch.Outstanding(amount.Currency()))
	ch.Paid = ch.Paid.Add(applied.Amount())
	return applied
}

// UndoPaidAmountBy decreases the paid amount by at most what has been paid
// and returns the portion actually reversed.
func (ch *Charge) UndoPaidAmountBy(amount valueobject.Money) valueobject.Money {
	reversed := clampApplied(amount, valueobject.NewMoney(ch.Paid, amount.Currency()))
	ch.Paid = ch.Paid.Sub(reversed.Amount())
	return reversed
}
