package loan

import (
	"github.com/shopspring/decimal"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// TransactionMapping is the audit trail of one transaction against one
// installment: how much of each component the allocation attributed there.
// There is at most one mapping per (transaction, installment) pair and
// repeated allocations accumulate into it.
type TransactionMapping struct {
	InstallmentNumber int             `json:"installment_number"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	Fee               decimal.Decimal `json:"fee"`
	Penalty           decimal.Decimal `json:"penalty"`
}

// Accumulate adds the given component amounts onto the mapping
func (m *TransactionMapping) Accumulate(principal, interest, fee, penalty valueobject.Money) {
	m.Principal = m.Principal.Add(principal.Amount())
	m.Interest = m.Interest.Add(interest.Amount())
	m.Fee = m.Fee.Add(fee.Amount())
	m.Penalty = m.Penalty.Add(penalty.Amount())
}

// Total returns the sum of the four component amounts
func (m *TransactionMapping) Total(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(m.Principal.Add(m.Interest).Add(m.Fee).Add(m.Penalty), c)
}
