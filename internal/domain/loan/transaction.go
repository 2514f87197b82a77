package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// Transaction is a dated monetary event against a loan. After processing it
// carries the breakdown of its amount into principal, interest, fee, penalty
// and overpayment portions plus the per-installment mappings that breakdown
// came from.
type Transaction struct {
	// ID is uuid.Nil until the transaction has been persisted. Replay uses
	// this to tell new transactions from ones whose stored breakdown must be
	// compared against the recomputed one.
	ID         uuid.UUID         `json:"id"`
	ExternalID string            `json:"external_id,omitempty"`
	Type       TransactionType   `json:"type"`
	Date       time.Time         `json:"date"`
	Amount     valueobject.Money `json:"amount"`
	Reversed   bool              `json:"reversed"`
	Manual     bool              `json:"manual"`
	// ChargeNumber references the charge a CHARGE_PAYMENT settles; zero for
	// every other type.
	ChargeNumber int `json:"charge_number,omitempty"`

	PrincipalPortion   decimal.Decimal `json:"principal_portion"`
	InterestPortion    decimal.Decimal `json:"interest_portion"`
	FeePortion         decimal.Decimal `json:"fee_portion"`
	PenaltyPortion     decimal.Decimal `json:"penalty_portion"`
	OverpaymentPortion decimal.Decimal `json:"overpayment_portion"`

	Mappings []*TransactionMapping `json:"mappings,omitempty"`
}

// NewTransaction creates an unpersisted transaction (ID uuid.Nil)
func NewTransaction(txType TransactionType, date time.Time, amount valueobject.Money) *Transaction {
	return &Transaction{
		Type:   txType,
		Date:   date,
		Amount: amount,
	}
}

// NewPersistedTransaction creates a transaction that already has an identity
func NewPersistedTransaction(id uuid.UUID, txType TransactionType, date time.Time, amount valueobject.Money) *Transaction {
	tx := NewTransaction(txType, date, amount)
	tx.ID = id
	return tx
}

// IsPersisted returns true once the transaction has an identity
func (t *Transaction) IsPersisted() bool {
	return t.ID != uuid.Nil
}

// Currency returns the currency of the transaction amount
func (t *Transaction) Currency() valueobject.Currency {
	return t.Amount.Currency()
}

// ResetDerivedComponents clears all portions and mappings ahead of replay
func (t *Transaction) ResetDerivedComponents() {
	t.PrincipalPortion = decimal.Zero
	t.InterestPortion = decimal.Zero
	t.FeePortion = decimal.Zero
	t.PenaltyPortion = decimal.Zero
	t.OverpaymentPortion = decimal.Zero
	t.Mappings = nil
}

// AddComponents accumulates the given amounts onto the transaction's portions
func (t *Transaction) AddComponents(principal, interest, fee, penalty valueobject.Money) {
	t.PrincipalPortion = t.PrincipalPortion.Add(principal.Amount())
	t.InterestPortion = t.InterestPortion.Add(interest.Amount())
	t.FeePortion = t.FeePortion.Add(fee.Amount())
	t.PenaltyPortion = t.PenaltyPortion.Add(penalty.Amount())
}

// SetComponents replaces the transaction's portions outright. Used by
// write-off style aggregation where portions are computed in one pass.
func (t *Transaction) SetComponents(principal, interest, fee, penalty valueobject.Money) {
	t.PrincipalPortion = principal.Amount()
	t.InterestPortion = interest.Amount()
	t.FeePortion = fee.Amount()
	t.PenaltyPortion = penalty.Amount()
}

// SetOverpaymentPortion records the part of the amount that found no home in
// the schedule.
func (t *Transaction) SetOverpaymentPortion(amount valueobject.Money) {
	t.OverpaymentPortion = amount.Amount()
}

// AdjustInterestComponent folds rounding drift into the interest portion of
// an interest waiver so the portions always add up to the raw amount.
func (t *Transaction) AdjustInterestComponent(c valueobject.Currency) {
	if t.Type != TransactionTypeInterestWaiver {
		return
	}
	adjusted := t.Amount.Amount().Sub(t.FeePortion).Sub(t.PenaltyPortion)
	t.InterestPortion = c.Round(adjusted)
}

// PrincipalMoney returns the principal portion as Money
func (t *Transaction) PrincipalMoney(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(t.PrincipalPortion, c)
}

// InterestMoney returns the interest portion as Money
func (t *Transaction) InterestMoney(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(t.InterestPortion, c)
}

// FeeMoney returns the fee portion as Money
func (t *Transaction) FeeMoney(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(t.FeePortion, c)
}

// PenaltyMoney returns the penalty portion as Money
func (t *Transaction) PenaltyMoney(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(t.PenaltyPortion, c)
}

// OverpaymentMoney returns the overpayment portion as Money
func (t *Transaction) OverpaymentMoney(c valueobject.Currency) valueobject.Money {
	return valueobject.NewMoney(t.OverpaymentPortion, c)
}

// AmountsMatch compares this transaction's five portions against another's
// at the currency's precision. Mappings are not compared; they may legally
// differ while the aggregates agree.
func (t *Transaction) AmountsMatch(c valueobject.Currency, other *Transaction) bool {
	return t.PrincipalMoney(c).Equal(other.PrincipalMoney(c)) &&
		t.InterestMoney(c).Equal(other.InterestMoney(c)) &&
		t.FeeMoney(c).Equal(other.FeeMoney(c)) &&
		t.PenaltyMoney(c).Equal(other.PenaltyMoney(c)) &&
		t.OverpaymentMoney(c).Equal(other.OverpaymentMoney(c))
}

// CopyForReplay returns a detached copy with no identity and a clean derived
// state, ready to be processed in place of the original.
func (t *Transaction) CopyForReplay() *Transaction {
	cp := &Transaction{
		ExternalID:   t.ExternalID,
		Type:         t.Type,
		Date:         t.Date,
		Amount:       t.Amount,
		Manual:       t.Manual,
		ChargeNumber: t.ChargeNumber,
	}
	return cp
}

// Reverse marks the transaction as logically reversed. Reversed transactions
// are skipped on subsequent replays.
func (t *Transaction) Reverse() {
	t.Reversed = true
}

// TransplantMappings replaces this transaction's mapping list with the one
// freshly computed on a replay copy.
func (t *Transaction) TransplantMappings(from *Transaction) {
	t.Mappings = from.Mappings
	from.Mappings = nil
}

// MappingFor returns the mapping entry for the given installment number,
// creating it when the transaction touches that installment for the first
// time.
func (t *Transaction) MappingFor(installmentNumber int) *TransactionMapping {
	for _, m := range t.Mappings {
		if m.InstallmentNumber == installmentNumber {
			return m
		}
	}
	m := &TransactionMapping{InstallmentNumber: installmentNumber}
	t.Mappings = append(t.Mappings, m)
	return m
}
