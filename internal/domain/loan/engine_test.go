package loan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

func twoDueInstallments() []*Installment {
	// both due on 2024-03-01
	return []*Installment{
		NewInstallment(1, date(2024, 1, 1), date(2024, 3, 1), dec("200"), dec("20"), decimal.Zero, decimal.Zero),
		NewInstallment(2, date(2024, 2, 1), date(2024, 3, 1), dec("200"), dec("20"), decimal.Zero, decimal.Zero),
	}
}

func dueRule(order ...AllocationType) PaymentAllocationRule {
	return PaymentAllocationRule{
		TransactionType:       DefaultRuleKey,
		Order:                 order,
		FutureInstallmentRule: FutureInstallmentNext,
	}
}

func TestAllocateInterestThenPrincipalOnDue(t *testing.T) {
	installments := twoDueInstallments()
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 3, 1), money(t, "40"))
	rule := dueRule(
		AllocationType{Due: DueTypeDue, Component: ComponentInterest},
		AllocationType{Due: DueTypeDue, Component: ComponentPrincipal},
	)

	remainder := Allocate(tx, installments, rule, ActionPay)

	assert.True(t, remainder.IsZero())
	assert.True(t, dec("20").Equal(installments[0].InterestPaid))
	assert.True(t, dec("20").Equal(installments[0].PrincipalPaid))
	assert.True(t, installments[1].InterestPaid.IsZero())
	assert.True(t, installments[1].PrincipalPaid.IsZero())

	require.Len(t, tx.Mappings, 1)
	assert.Equal(t, 1, tx.Mappings[0].InstallmentNumber)
	assert.True(t, dec("20").Equal(tx.Mappings[0].Interest))
	assert.True(t, dec("20").Equal(tx.Mappings[0].Principal))
}

func TestAllocateEntryStopsWhenTargetCannotAbsorb(t *testing.T) {
	installments := twoDueInstallments()
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 3, 1), money(t, "30"))
	rule := dueRule(AllocationType{Due: DueTypeDue, Component: ComponentInterest})

	remainder := Allocate(tx, installments, rule, ActionPay)

	// 20 clears installment 1's interest. Installment 1 still has principal
	// outstanding so it stays the selected target, the next interest pay
	// applies nothing and the loop guard ends the entry with the residual.
	assert.Equal(t, "10.00 EUR", remainder.String())
	assert.True(t, dec("20").Equal(installments[0].InterestPaid))
	assert.True(t, installments[1].InterestPaid.IsZero())
}

func TestAllocatePastDuePicksLowestNumberRegardlessOfOrder(t *testing.T) {
	late1 := NewInstallment(1, date(2024, 1, 1), date(2024, 2, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	late2 := NewInstallment(2, date(2024, 2, 1), date(2024, 3, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	// input order deliberately shuffled
	installments := []*Installment{late2, late1}

	tx := NewTransaction(TransactionTypeRepayment, date(2024, 4, 1), money(t, "150"))
	rule := dueRule(AllocationType{Due: DueTypePastDue, Component: ComponentPrincipal})

	remainder := Allocate(tx, installments, rule, ActionPay)

	assert.True(t, remainder.IsZero())
	assert.True(t, dec("100").Equal(late1.PrincipalPaid))
	assert.True(t, dec("50").Equal(late2.PrincipalPaid))
}

func TestAllocateInAdvanceNextInstallment(t *testing.T) {
	future := NewInstallment(1, date(2024, 1, 1), date(2024, 6, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 2, 1), money(t, "30"))
	rule := dueRule(AllocationType{Due: DueTypeInAdvance, Component: ComponentPrincipal})

	remainder := Allocate(tx, []*Installment{future}, rule, ActionPay)

	assert.True(t, remainder.IsZero())
	assert.True(t, dec("30").Equal(future.PrincipalPaid))
}

func TestAllocateInAdvanceLastInstallment(t *testing.T) {
	f1 := NewInstallment(1, date(2024, 1, 1), date(2024, 6, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	f2 := NewInstallment(2, date(2024, 6, 1), date(2024, 7, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 2, 1), money(t, "30"))
	rule := PaymentAllocationRule{
		TransactionType:       DefaultRuleKey,
		Order:                 []AllocationType{{Due: DueTypeInAdvance, Component: ComponentPrincipal}},
		FutureInstallmentRule: FutureInstallmentLast,
	}

	remainder := Allocate(tx, []*Installment{f1, f2}, rule, ActionPay)

	assert.True(t, remainder.IsZero())
	assert.True(t, f1.PrincipalPaid.IsZero())
	assert.True(t, dec("30").Equal(f2.PrincipalPaid))
}

func TestAllocateReamortizationSplitClosure(t *testing.T) {
	installments := []*Installment{
		NewInstallment(1, date(2024, 1, 1), date(2024, 6, 1), dec("50"), decimal.Zero, decimal.Zero, decimal.Zero),
		NewInstallment(2, date(2024, 6, 1), date(2024, 7, 1), dec("50"), decimal.Zero, decimal.Zero, decimal.Zero),
		NewInstallment(3, date(2024, 7, 1), date(2024, 8, 1), dec("50"), decimal.Zero, decimal.Zero, decimal.Zero),
	}
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 2, 1), money(t, "100"))
	rule := PaymentAllocationRule{
		TransactionType:       DefaultRuleKey,
		Order:                 []AllocationType{{Due: DueTypeInAdvance, Component: ComponentPrincipal}},
		FutureInstallmentRule: FutureInstallmentReamortization,
	}

	remainder := Allocate(tx, installments, rule, ActionPay)

	// 100 / 3 = 33.33 per share, residue 0.01 on the last installment
	assert.True(t, remainder.IsZero())
	assert.True(t, dec("33.33").Equal(installments[0].PrincipalPaid), "got %s", installments[0].PrincipalPaid)
	assert.True(t, dec("33.33").Equal(installments[1].PrincipalPaid), "got %s", installments[1].PrincipalPaid)
	assert.True(t, dec("33.34").Equal(installments[2].PrincipalPaid), "got %s", installments[2].PrincipalPaid)

	total := installments[0].PrincipalPaid.Add(installments[1].PrincipalPaid).Add(installments[2].PrincipalPaid)
	assert.True(t, dec("100").Equal(total), "no cent may be lost in the split")
}

func TestAllocateReamortizationRoundUpNeverOverAllocates(t *testing.T) {
	// 0.02 over four shares rounds each share of 0.005 up to 0.01 under
	// these modes. Uncapped, the shares would place 0.03 and drive the
	// remainder negative.
	for _, mode := range []valueobject.RoundingMode{valueobject.RoundHalfUp, valueobject.RoundUp, valueobject.RoundCeiling} {
		t.Run(string(mode), func(t *testing.T) {
			currency := valueobject.MustCurrency("USD", 2, mode)
			installments := []*Installment{
				NewInstallment(1, date(2024, 1, 1), date(2024, 6, 1), dec("10"), decimal.Zero, decimal.Zero, decimal.Zero),
				NewInstallment(2, date(2024, 6, 1), date(2024, 7, 1), dec("10"), decimal.Zero, decimal.Zero, decimal.Zero),
				NewInstallment(3, date(2024, 7, 1), date(2024, 8, 1), dec("10"), decimal.Zero, decimal.Zero, decimal.Zero),
				NewInstallment(4, date(2024, 8, 1), date(2024, 9, 1), dec("10"), decimal.Zero, decimal.Zero, decimal.Zero),
			}
			amount, err := valueobject.NewMoneyFromString("0.02", currency)
			require.NoError(t, err)
			tx := NewTransaction(TransactionTypeRepayment, date(2024, 2, 1), amount)
			rule := PaymentAllocationRule{
				TransactionType:       DefaultRuleKey,
				Order:                 []AllocationType{{Due: DueTypeInAdvance, Component: ComponentPrincipal}},
				FutureInstallmentRule: FutureInstallmentReamortization,
			}

			remainder := Allocate(tx, installments, rule, ActionPay)

			assert.True(t, remainder.IsZero(), "got remainder %s", remainder)
			total := decimal.Zero
			for _, inst := range installments {
				assert.False(t, inst.PrincipalPaid.IsNegative())
				total = total.Add(inst.PrincipalPaid)
			}
			assert.True(t, dec("0.02").Equal(total), "allocated %s in total", total)
		})
	}
}

func TestAllocateResidualFallsThroughToNextEntry(t *testing.T) {
	// interest is exhausted after 20; the rest must reach the principal
	// entry instead of becoming overpayment straight away
	inst := NewInstallment(1, date(2024, 1, 1), date(2024, 2, 1), dec("200"), dec("20"), decimal.Zero, decimal.Zero)
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 3, 1), money(t, "100"))
	rule := dueRule(
		AllocationType{Due: DueTypePastDue, Component: ComponentInterest},
		AllocationType{Due: DueTypePastDue, Component: ComponentPrincipal},
	)

	remainder := Allocate(tx, []*Installment{inst}, rule, ActionPay)

	assert.True(t, remainder.IsZero())
	assert.True(t, dec("20").Equal(inst.InterestPaid))
	assert.True(t, dec("80").Equal(inst.PrincipalPaid))
}

func TestAllocateUnplaceableRemainderSurvives(t *testing.T) {
	inst := NewInstallment(1, date(2024, 1, 1), date(2024, 2, 1), dec("50"), decimal.Zero, decimal.Zero, decimal.Zero)
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 3, 1), money(t, "80"))
	rule := dueRule(AllocationType{Due: DueTypePastDue, Component: ComponentPrincipal})

	remainder := Allocate(tx, []*Installment{inst}, rule, ActionPay)

	assert.Equal(t, "30.00 EUR", remainder.String())
	assert.True(t, dec("50").Equal(inst.PrincipalPaid))
}

func TestAllocateConservation(t *testing.T) {
	installments := []*Installment{
		NewInstallment(1, date(2024, 1, 1), date(2024, 2, 1), dec("100"), dec("10"), dec("5"), dec("2")),
		NewInstallment(2, date(2024, 2, 1), date(2024, 3, 1), dec("100"), dec("8"), decimal.Zero, decimal.Zero),
		NewInstallment(3, date(2024, 3, 1), date(2024, 4, 1), dec("100"), dec("6"), decimal.Zero, decimal.Zero),
	}
	tx := NewTransaction(TransactionTypeRepayment, date(2024, 3, 1), money(t, "275.55"))
	rule := dueRule(
		AllocationType{Due: DueTypePastDue, Component: ComponentPenalty},
		AllocationType{Due: DueTypePastDue, Component: ComponentFee},
		AllocationType{Due: DueTypePastDue, Component: ComponentInterest},
		AllocationType{Due: DueTypePastDue, Component: ComponentPrincipal},
		AllocationType{Due: DueTypeDue, Component: ComponentInterest},
		AllocationType{Due: DueTypeDue, Component: ComponentPrincipal},
		AllocationType{Due: DueTypeInAdvance, Component: ComponentPrincipal},
	)

	remainder := Allocate(tx, installments, rule, ActionPay)

	mapped := decimal.Zero
	for _, m := range tx.Mappings {
		mapped = mapped.Add(m.Principal).Add(m.Interest).Add(m.Fee).Add(m.Penalty)
	}
	total := valueobject.NewMoney(mapped, testCurrency).MustAdd(remainder)
	assert.True(t, total.Equal(tx.Amount), "mapped %s + remainder %s must equal %s", mapped, remainder, tx.Amount)

	// non-negativity after the run
	for _, inst := range installments {
		assert.False(t, inst.PrincipalOutstanding(testCurrency).IsNegative())
		assert.False(t, inst.InterestOutstanding(testCurrency).IsNegative())
		assert.False(t, inst.FeeOutstanding(testCurrency).IsNegative())
		assert.False(t, inst.PenaltyOutstanding(testCurrency).IsNegative())
	}
}

func TestAllocateUnpayReversesNewestFirst(t *testing.T) {
	i1 := NewInstallment(1, date(2024, 1, 1), date(2024, 2, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	i2 := NewInstallment(2, date(2024, 2, 1), date(2024, 3, 1), dec("100"), decimal.Zero, decimal.Zero, decimal.Zero)
	i1.PayPrincipalComponent(date(2024, 2, 1), money(t, "100"))
	i2.PayPrincipalComponent(date(2024, 3, 1), money(t, "40"))

	tx := NewTransaction(TransactionTypeRefundForActiveLoan, date(2024, 4, 1), money(t, "60"))
	rule := dueRule(AllocationType{Due: DueTypePastDue, Component: ComponentPrincipal})

	remainder := Allocate(tx, []*Installment{i1, i2}, rule, ActionUnpay)

	assert.True(t, remainder.IsZero())
	// installment 2 is unwound before installment 1
	assert.True(t, i2.PrincipalPaid.IsZero())
	assert.True(t, dec("80").Equal(i1.PrincipalPaid))
}
