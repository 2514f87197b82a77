package loan

// TransactionType tags a loan transaction with its business meaning. The
// processor dispatches on this tag during replay.
type TransactionType string

const (
	TransactionTypeRepayment            TransactionType = "REPAYMENT"
	TransactionTypeMerchantIssuedRefund TransactionType = "MERCHANT_ISSUED_REFUND"
	TransactionTypePayoutRefund         TransactionType = "PAYOUT_REFUND"
	TransactionTypeGoodwillCredit       TransactionType = "GOODWILL_CREDIT"
	TransactionTypeChargeRefund         TransactionType = "CHARGE_REFUND"
	TransactionTypeChargeAdjustment     TransactionType = "CHARGE_ADJUSTMENT"
	TransactionTypeDownPayment          TransactionType = "DOWN_PAYMENT"
	TransactionTypeInterestWaiver       TransactionType = "INTEREST_WAIVER"
	TransactionTypeRecoveryRepayment    TransactionType = "RECOVERY_REPAYMENT"
	TransactionTypeChargePayment        TransactionType = "CHARGE_PAYMENT"
	TransactionTypeChargesWaiver        TransactionType = "CHARGES_WAIVER"
	TransactionTypeWriteOff             TransactionType = "WRITE_OFF"
	TransactionTypeChargeOff            TransactionType = "CHARGE_OFF"
	TransactionTypeChargeback           TransactionType = "CHARGEBACK"
	TransactionTypeCreditBalanceRefund  TransactionType = "CREDIT_BALANCE_REFUND"
	TransactionTypeRefundForActiveLoan  TransactionType = "REFUND_FOR_ACTIVE_LOAN"
	TransactionTypeAccrual              TransactionType = "ACCRUAL"
)

// String returns the string representation of the transaction type
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is one of the known tags
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeRepayment, TransactionTypeMerchantIssuedRefund,
		TransactionTypePayoutRefund, TransactionTypeGoodwillCredit,
		TransactionTypeChargeRefund, TransactionTypeChargeAdjustment,
		TransactionTypeDownPayment, TransactionTypeInterestWaiver,
		TransactionTypeRecoveryRepayment, TransactionTypeChargePayment,
		TransactionTypeChargesWaiver, TransactionTypeWriteOff,
		TransactionTypeChargeOff, TransactionTypeChargeback,
		TransactionTypeCreditBalanceRefund, TransactionTypeRefundForActiveLoan,
		TransactionTypeAccrual:
		return true
	default:
		return false
	}
}

// IsRepaymentLike returns true for transaction types that allocate their
// amount across installment components through the allocation engine.
func (t TransactionType) IsRepaymentLike() bool {
	switch t {
	case TransactionTypeRepayment, TransactionTypeMerchantIssuedRefund,
		TransactionTypePayoutRefund, TransactionTypeGoodwillCredit,
		TransactionTypeChargeRefund, TransactionTypeChargeAdjustment,
		TransactionTypeDownPayment, TransactionTypeInterestWaiver,
		TransactionTypeRecoveryRepayment:
		return true
	default:
		return false
	}
}

// IsWaiver returns true for waiver transaction types. Waivers do not update
// charge paid bookkeeping.
func (t TransactionType) IsWaiver() bool {
	return t == TransactionTypeInterestWaiver || t == TransactionTypeChargesWaiver
}

// IsAccrual returns true for accrual transactions, which never touch charge
// paid bookkeeping either.
func (t TransactionType) IsAccrual() bool {
	return t == TransactionTypeAccrual
}

// IsChargeTransaction returns true for transaction types that settle a
// specific charge rather than the schedule at large.
func (t TransactionType) IsChargeTransaction() bool {
	return t == TransactionTypeChargePayment
}

// IsCredit returns true for transaction types that draw on the loan's
// overpayment balance instead of allocating against the schedule.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeChargeback || t == TransactionTypeCreditBalanceRefund
}
