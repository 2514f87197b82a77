package loan

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openlms/backend/internal/domain/shared/valueobject"
)

// ChargeReattacher reattaches charges to installments in chronological order
// before a replay. Implementations live outside the core; the default does
// nothing.
type ChargeReattacher interface {
	Reattach(disbursementDate time.Time, installments []*Installment, charges []*Charge)
}

// NopChargeReattacher is the default no-op reattacher
type NopChargeReattacher struct{}

// Reattach does nothing
func (NopChargeReattacher) Reattach(time.Time, []*Installment, []*Charge) {}

// Processor drives per-transaction dispatch and full-history reprocessing
// for one repayment strategy. It is a pure in-memory transformation: no
// I/O, no clock, single-threaded per loan. Callers own locking when the
// same loan can be reprocessed concurrently.
type Processor struct {
	strategy RepaymentStrategy
	sink     OverpaymentSink
	reattach ChargeReattacher
	logger   *zap.Logger
}

// NewProcessor creates a processor for the given strategy. The sink,
// reattacher and logger may be nil; nil values select no-op defaults.
func NewProcessor(strategy RepaymentStrategy, sink OverpaymentSink, reattach ChargeReattacher, logger *zap.Logger) *Processor {
	if sink == nil {
		sink = func(*Transaction, valueobject.Money) {}
	}
	if reattach == nil {
		reattach = NopChargeReattacher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		strategy: strategy,
		sink:     sink,
		reattach: reattach,
		logger:   logger,
	}
}

// Strategy returns the repayment strategy the processor dispatches with
func (p *Processor) Strategy() RepaymentStrategy {
	return p.strategy
}

// Reprocess replays the full transaction history against a freshly reset
// schedule and returns the change-set of persisted transactions whose
// recomputed breakdown no longer matches their stored one.
//
// Rule resolution for every transaction type in the stream happens before
// any state is touched, so a configuration error never leaves the schedule
// half mutated. The replay itself is deterministic: same inputs, same
// installment state, same change-set.
func (p *Processor) Reprocess(disbursementDate time.Time, transactions []*Transaction, currency valueobject.Currency, installments []*Installment, charges []*Charge) (*ChangedTransactionDetail, error) {
	if err := p.resolveRulesUpFront(transactions); err != nil {
		return nil, err
	}

	for _, ch := range charges {
		if !ch.IsDueAtDisbursement() {
			ch.ResetPaidAmount(currency)
		}
	}
	for _, inst := range installments {
		inst.ResetDerivedComponents()
		inst.UpdateDerivedFields(currency, disbursementDate)
	}
	p.reattach.Reattach(disbursementDate, installments, charges)

	changes := NewChangedTransactionDetail()
	overpaid := valueobject.Zero(currency)
	for _, tx := range transactions {
		if tx.Reversed {
			continue
		}
		if !tx.IsPersisted() {
			next, err := p.ProcessLatestTransaction(tx, currency, installments, charges, overpaid)
			if err != nil {
				return nil, err
			}
			overpaid = next
			tx.AdjustInterestComponent(currency)
			continue
		}

		replay := tx.CopyForReplay()
		next, err := p.ProcessLatestTransaction(replay, currency, installments, charges, overpaid)
		if err != nil {
			return nil, err
		}
		overpaid = next
		replay.AdjustInterestComponent(currency)

		if tx.AmountsMatch(currency, replay) {
			// Aggregates agree but the fresh mappings may still differ,
			// e.g. when the installment count changed since last replay.
			tx.TransplantMappings(replay)
		} else {
			tx.Reverse()
			changes.AddReplacement(tx.ID, replay)
			p.logger.Info("transaction breakdown changed during replay",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("type", tx.Type.String()))
		}
	}

	for _, inst := range installments {
		inst.UpdateDerivedFields(currency, disbursementDate)
	}
	return changes, nil
}

// ProcessLatestTransaction dispatches a single transaction by type against
// the current schedule state. It returns the loan's overpaid balance after
// the transaction.
func (p *Processor) ProcessLatestTransaction(tx *Transaction, currency valueobject.Currency, installments []*Installment, charges []*Charge, overpaid valueobject.Money) (valueobject.Money, error) {
	switch {
	case tx.Type.IsRepaymentLike():
		return p.processRepayment(tx, currency, installments, charges, overpaid)
	case tx.Type == TransactionTypeWriteOff || tx.Type == TransactionTypeChargeOff:
		p.processWriteOff(tx, currency, installments)
		return overpaid, nil
	case tx.Type.IsCredit():
		return p.processCredit(tx, currency, installments, overpaid)
	case tx.Type == TransactionTypeRefundForActiveLoan:
		return overpaid, p.processRefund(tx, currency, installments, charges)
	case tx.Type.IsChargeTransaction():
		return p.processChargePayment(tx, currency, installments, charges, overpaid)
	default:
		p.logger.Debug("transaction type does not affect the schedule, skipping",
			zap.String("type", tx.Type.String()),
			zap.Time("date", tx.Date))
		return overpaid, nil
	}
}

// resolveRulesUpFront resolves the allocation rule for every type in the
// stream that needs one, surfacing configuration errors before mutation.
func (p *Processor) resolveRulesUpFront(transactions []*Transaction) error {
	checked := make(map[TransactionType]bool)
	for _, tx := range transactions {
		if tx.Reversed || checked[tx.Type] {
			continue
		}
		checked[tx.Type] = true
		if tx.Type.IsRepaymentLike() || tx.Type.IsChargeTransaction() {
			if _, err := p.strategy.ResolveRule(tx.Type); err != nil {
				return err
			}
		}
		if tx.Type == TransactionTypeRefundForActiveLoan {
			if _, err := p.strategy.RefundRule(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Processor) processRepayment(tx *Transaction, currency valueobject.Currency, installments []*Installment, charges []*Charge, overpaid valueobject.Money) (valueobject.Money, error) {
	tx.ResetDerivedComponents()
	rule, err := p.strategy.ResolveRule(tx.Type)
	if err != nil {
		return overpaid, err
	}

	remainder := Allocate(tx, installments, rule, ActionPay)
	p.aggregateMappings(tx, currency)

	if !tx.Type.IsWaiver() && !tx.Type.IsAccrual() {
		p.payCharges(tx.FeeMoney(currency), charges, false)
		p.payCharges(tx.PenaltyMoney(currency), charges, true)
	}

	if remainder.IsPositive() {
		tx.SetOverpaymentPortion(remainder)
		overpaid = overpaid.MustAdd(remainder)
		p.strategy.OnOverpayment(tx, remainder, p.sink)
	}
	return overpaid, nil
}

// processWriteOff aggregates the outstanding components of every
// not-fully-paid installment directly onto the transaction. A write-off is
// a terminal ledger entry, not a payment: the schedule is left untouched.
func (p *Processor) processWriteOff(tx *Transaction, currency valueobject.Currency, installments []*Installment) {
	tx.ResetDerivedComponents()
	principal := valueobject.Zero(currency)
	interest := valueobject.Zero(currency)
	fee := valueobject.Zero(currency)
	penalty := valueobject.Zero(currency)
	for _, inst := range installments {
		if inst.IsFullyPaid(currency) {
			continue
		}
		principal = principal.MustAdd(inst.PrincipalOutstanding(currency))
		interest = interest.MustAdd(inst.InterestOutstanding(currency))
		fee = fee.MustAdd(inst.FeeOutstanding(currency))
		penalty = penalty.MustAdd(inst.PenaltyOutstanding(currency))
	}
	tx.SetComponents(principal, interest, fee, penalty)
}

// processCredit handles chargebacks and credit balance refunds. The amount
// is drawn from the loan's running overpaid balance first; whatever exceeds
// it is principal the borrower owes again and is reinstated on the first
// future installment, or on the last one when none lies ahead.
func (p *Processor) processCredit(tx *Transaction, currency valueobject.Currency, installments []*Installment, overpaid valueobject.Money) (valueobject.Money, error) {
	tx.ResetDerivedComponents()

	fromOverpayment := valueobject.Zero(currency)
	if overpaid.IsPositive() {
		fromOverpayment = tx.Amount.Min(overpaid)
	}
	overpaid = overpaid.MustSubtract(fromOverpayment)
	excess := tx.Amount.MustSubtract(fromOverpayment)

	if excess.IsPositive() {
		target := creditTarget(installments, tx.Date)
		if target == nil {
			p.logger.Warn("credit transaction has no installment to reinstate principal on",
				zap.String("type", tx.Type.String()),
				zap.Time("date", tx.Date))
		} else {
			target.AddToPrincipal(tx.Date, excess)
			zero := valueobject.Zero(currency)
			tx.AddComponents(excess, zero, zero, zero)
			tx.MappingFor(target.Number).Accumulate(excess, zero, zero, zero)
		}
	}

	tx.SetOverpaymentPortion(fromOverpayment)
	if fromOverpayment.IsPositive() {
		p.strategy.OnOverpayment(tx, fromOverpayment.Negate(), p.sink)
	}
	return overpaid, nil
}

func creditTarget(installments []*Installment, txDate time.Time) *Installment {
	var first, last *Installment
	for _, inst := range installments {
		if last == nil || inst.Number > last.Number {
			last = inst
		}
		if inst.DueDate.After(txDate) && (first == nil || inst.Number < first.Number) {
			first = inst
		}
	}
	if first != nil {
		return first
	}
	return last
}

// processRefund unwinds previously paid components. Strategies with a
// refund rule drive the engine in unpay direction; the rest use the
// built-in reverse walk, newest installment first, principal before
// interest before fee before penalty.
func (p *Processor) processRefund(tx *Transaction, currency valueobject.Currency, installments []*Installment, charges []*Charge) error {
	tx.ResetDerivedComponents()

	refundRule, err := p.strategy.RefundRule()
	if err != nil {
		return err
	}

	var remainder valueobject.Money
	if refundRule != nil {
		remainder = Allocate(tx, installments, *refundRule, ActionUnpay)
	} else {
		remainder = p.reverseWalk(tx, currency, installments)
	}
	p.aggregateMappings(tx, currency)

	p.undoCharges(tx.FeeMoney(currency), charges, false)
	p.undoCharges(tx.PenaltyMoney(currency), charges, true)

	if remainder.IsPositive() {
		p.logger.Warn("refund exceeds previously paid amounts",
			zap.Time("date", tx.Date),
			zap.String("unprocessed", remainder.String()))
	}
	return nil
}

func (p *Processor) reverseWalk(tx *Transaction, currency valueobject.Currency, installments []*Installment) valueobject.Money {
	ordered := make([]*Installment, len(installments))
	copy(ordered, installments)
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].Number > ordered[b].Number
	})

	remainder := tx.Amount
	for _, inst := range ordered {
		if !remainder.IsPositive() {
			break
		}
		for _, component := range []ComponentType{ComponentPrincipal, ComponentInterest, ComponentFee, ComponentPenalty} {
			applied := applyComponent(tx, inst, component, remainder, ActionUnpay)
			remainder = remainder.MustSubtract(applied)
			if !remainder.IsPositive() {
				break
			}
		}
	}
	return remainder
}

// processChargePayment settles the referenced charge against its covering
// installment first, then pushes any remaining amount through the normal
// allocation order.
func (p *Processor) processChargePayment(tx *Transaction, currency valueobject.Currency, installments []*Installment, charges []*Charge, overpaid valueobject.Money) (valueobject.Money, error) {
	tx.ResetDerivedComponents()

	remainder := tx.Amount
	charge := findCharge(charges, tx.ChargeNumber)
	if charge == nil {
		p.logger.Warn("charge payment references unknown charge, allocating as plain repayment",
			zap.Int("charge_number", tx.ChargeNumber),
			zap.Time("date", tx.Date))
	} else if target := coveringInstallment(installments, charge.EffectiveDueDate()); target == nil {
		// The charge must stay unsettled when no installment can carry the
		// movement, otherwise the amount would also flow through the normal
		// allocation order below.
		p.logger.Warn("no installment covers charge payment, allocating as plain repayment",
			zap.Int("charge_number", tx.ChargeNumber),
			zap.Time("date", tx.Date))
	} else {
		settled := charge.UpdatePaidAmountBy(remainder)
		if settled.IsPositive() {
			component := ComponentFee
			if charge.IsPenalty() {
				component = ComponentPenalty
			}
			applied := applyComponent(tx, target, component, settled, ActionPay)
			remainder = remainder.MustSubtract(applied)
		}
	}

	if remainder.IsPositive() {
		rule, err := p.strategy.ResolveRule(tx.Type)
		if err != nil {
			return overpaid, err
		}
		remainder = AllocateAmount(tx, remainder, installments, rule, ActionPay)
	}
	p.aggregateMappings(tx, currency)

	if remainder.IsPositive() {
		tx.SetOverpaymentPortion(remainder)
		overpaid = overpaid.MustAdd(remainder)
		p.strategy.OnOverpayment(tx, remainder, p.sink)
	}
	return overpaid, nil
}

func findCharge(charges []*Charge, number int) *Charge {
	if number == 0 {
		return nil
	}
	for _, ch := range charges {
		if ch.Number == number {
			return ch
		}
	}
	return nil
}

// coveringInstallment finds the installment whose period contains the
// charge's effective due date, falling back to the last installment.
func coveringInstallment(installments []*Installment, dueDate time.Time) *Installment {
	var last *Installment
	for _, inst := range installments {
		if last == nil || inst.Number > last.Number {
			last = inst
		}
		if dueDate.After(inst.FromDate) && !dueDate.After(inst.DueDate) {
			return inst
		}
	}
	return last
}

// aggregateMappings folds a transaction's mappings back into its component
// portions so the two stay consistent by construction.
func (p *Processor) aggregateMappings(tx *Transaction, currency valueobject.Currency) {
	principal := valueobject.Zero(currency)
	interest := valueobject.Zero(currency)
	fee := valueobject.Zero(currency)
	penalty := valueobject.Zero(currency)
	for _, m := range tx.Mappings {
		principal = principal.MustAdd(valueobject.NewMoney(m.Principal, currency))
		interest = interest.MustAdd(valueobject.NewMoney(m.Interest, currency))
		fee = fee.MustAdd(valueobject.NewMoney(m.Fee, currency))
		penalty = penalty.MustAdd(valueobject.NewMoney(m.Penalty, currency))
	}
	tx.SetComponents(principal, interest, fee, penalty)
}

// payCharges walks charges earliest due date first and settles their paid
// bookkeeping from the transaction's fee or penalty portion.
func (p *Processor) payCharges(amount valueobject.Money, charges []*Charge, penalty bool) {
	c := amount.Currency()
	remaining := amount
	for remaining.IsPositive() {
		ch := earliestUnpaidCharge(charges, c, penalty)
		if ch == nil {
			return
		}
		applied := ch.UpdatePaidAmountBy(remaining)
		if !applied.IsPositive() {
			return
		}
		remaining = remaining.MustSubtract(applied)
	}
}

// undoCharges walks charges latest due date first and reverses their paid
// bookkeeping for refunds.
func (p *Processor) undoCharges(amount valueobject.Money, charges []*Charge, penalty bool) {
	remaining := amount
	for remaining.IsPositive() {
		ch := latestPaidCharge(charges, penalty)
		if ch == nil {
			return
		}
		reversed := ch.UndoPaidAmountBy(remaining)
		if !reversed.IsPositive() {
			return
		}
		remaining = remaining.MustSubtract(reversed)
	}
}

func earliestUnpaidCharge(charges []*Charge, c valueobject.Currency, penalty bool) *Charge {
	var target *Charge
	for _, ch := range charges {
		if !ch.IsActive() || ch.IsPenalty() != penalty || !ch.IsNotFullyPaid(c) {
			continue
		}
		if target == nil ||
			ch.EffectiveDueDate().Before(target.EffectiveDueDate()) ||
			(ch.EffectiveDueDate().Equal(target.EffectiveDueDate()) && ch.Number < target.Number) {
			target = ch
		}
	}
	return target
}

func latestPaidCharge(charges []*Charge, penalty bool) *Charge {
	var target *Charge
	for _, ch := range charges {
		if !ch.IsActive() || ch.IsPenalty() != penalty || !ch.IsPaid() {
			continue
		}
		if target == nil ||
			ch.EffectiveDueDate().After(target.EffectiveDueDate()) ||
			(ch.EffectiveDueDate().Equal(target.EffectiveDueDate()) && ch.Number > target.Number) {
			target = ch
		}
	}
	return target
}
