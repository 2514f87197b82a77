package loan

import (
	"context"
	"time"

	"go.uber.org/zap"

	loandomain "github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
	"github.com/openlms/backend/internal/infrastructure/strategy"
)

// ReplayService orchestrates a full deterministic replay of a loan's
// transaction history against its schedule: strategy lookup, processing and
// collection of overpayment movements.
type ReplayService struct {
	registry *strategy.StrategyRegistry
	reattach loandomain.ChargeReattacher
	logger   *zap.Logger
}

// NewReplayService creates a new ReplayService. The reattacher may be nil;
// charge reattachment is then skipped.
func NewReplayService(registry *strategy.StrategyRegistry, reattach loandomain.ChargeReattacher, logger *zap.Logger) *ReplayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayService{
		registry: registry,
		reattach: reattach,
		logger:   logger,
	}
}

// ReplayRequest carries one loan's full in-memory state for reprocessing
type ReplayRequest struct {
	StrategyName     string
	DisbursementDate time.Time
	Currency         valueobject.Currency
	Installments     []*loandomain.Installment
	Charges          []*loandomain.Charge
	Transactions     []*loandomain.Transaction
}

// OverpaymentEvent is one account-level overpayment movement observed during
// the replay. Positive amounts add to the overpaid balance, negative ones
// consume from it.
type OverpaymentEvent struct {
	TransactionType loandomain.TransactionType `json:"transaction_type"`
	Date            time.Time                  `json:"date"`
	Amount          valueobject.Money          `json:"amount"`
}

// ReplayResult is the outcome of one replay: the change-set of persisted
// transactions needing reversal, the final overpaid balance and the
// overpayment movements that led there.
type ReplayResult struct {
	Changes           *loandomain.ChangedTransactionDetail `json:"changes"`
	OverpaidBalance   valueobject.Money                    `json:"overpaid_balance"`
	OverpaymentEvents []OverpaymentEvent                   `json:"overpayment_events,omitempty"`
}

// Replay reprocesses the loan with the named strategy (or the registry
// default when the name is empty) and returns the resulting change-set. The
// request's installments, charges and transactions are mutated in place;
// committing those mutations is the caller's responsibility.
func (s *ReplayService) Replay(ctx context.Context, req ReplayRequest) (*ReplayResult, error) {
	strat, err := s.registry.Get(req.StrategyName)
	if err != nil {
		return nil, err
	}

	overpaid := valueobject.Zero(req.Currency)
	var events []OverpaymentEvent
	sink := func(tx *loandomain.Transaction, amount valueobject.Money) {
		overpaid = overpaid.MustAdd(amount)
		events = append(events, OverpaymentEvent{
			TransactionType: tx.Type,
			Date:            tx.Date,
			Amount:          amount,
		})
	}

	processor := loandomain.NewProcessor(strat, sink, s.reattach, s.logger)
	changes, err := processor.Reprocess(req.DisbursementDate, req.Transactions, req.Currency, req.Installments, req.Charges)
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan replay finished",
		zap.String("strategy", strat.Name()),
		zap.Int("transactions", len(req.Transactions)),
		zap.Int("changed_transactions", len(changes.NewTransactionMappings)),
		zap.String("overpaid_balance", overpaid.String()))

	return &ReplayResult{
		Changes:           changes,
		OverpaidBalance:   overpaid,
		OverpaymentEvents: events,
	}, nil
}

// Strategies lists the registered strategy names
func (s *ReplayService) Strategies() []string {
	return s.registry.List()
}
