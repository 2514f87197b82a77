package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apploan "github.com/openlms/backend/internal/application/loan"
	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared/valueobject"
	"github.com/openlms/backend/internal/infrastructure/config"
	"github.com/openlms/backend/internal/infrastructure/logger"
	"github.com/openlms/backend/internal/infrastructure/strategy"
)

// scenario is the JSON input: one loan's schedule, charges and transaction
// history, replayed offline against the configured strategy.
type scenario struct {
	Strategy         string              `json:"strategy,omitempty"`
	Currency         currencySpec        `json:"currency"`
	DisbursementDate time.Time           `json:"disbursement_date"`
	Installments     []*loan.Installment `json:"installments"`
	Charges          []*loan.Charge      `json:"charges,omitempty"`
	Transactions     []transactionSpec   `json:"transactions"`
}

type currencySpec struct {
	Code          string `json:"code"`
	DecimalPlaces int32  `json:"decimal_places"`
	Rounding      string `json:"rounding,omitempty"`
}

type transactionSpec struct {
	ID           string    `json:"id,omitempty"`
	ExternalID   string    `json:"external_id,omitempty"`
	Type         string    `json:"type"`
	Date         time.Time `json:"date"`
	Amount       string    `json:"amount"`
	Reversed     bool      `json:"reversed,omitempty"`
	Manual       bool      `json:"manual,omitempty"`
	ChargeNumber int       `json:"charge_number,omitempty"`

	// Stored breakdown of an already persisted transaction, used by the
	// replay's change detection.
	PrincipalPortion   string `json:"principal_portion,omitempty"`
	InterestPortion    string `json:"interest_portion,omitempty"`
	FeePortion         string `json:"fee_portion,omitempty"`
	PenaltyPortion     string `json:"penalty_portion,omitempty"`
	OverpaymentPortion string `json:"overpayment_portion,omitempty"`
}

// output is what the command prints on stdout after a successful replay
type output struct {
	Result       *apploan.ReplayResult `json:"result"`
	Installments []*loan.Installment   `json:"installments"`
	Transactions []*loan.Transaction   `json:"transactions"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "path to the loan scenario JSON file")
	strategyName := flag.String("strategy", "", "repayment strategy name (overrides scenario and config)")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -scenario <file.json> [-strategy <name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *scenarioPath, *strategyName); err != nil {
		log.Error("replay failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, scenarioPath, strategyOverride string) error {
	data, err := os.ReadFile(scenarioPath)
	if err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}
	var sc scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("failed to parse scenario: %w", err)
	}

	currency, err := buildCurrency(sc.Currency)
	if err != nil {
		return err
	}
	transactions, err := buildTransactions(sc.Transactions, currency)
	if err != nil {
		return err
	}

	rules, err := cfg.Allocation.ToRules()
	if err != nil {
		return err
	}
	registry, err := strategy.NewRegistryWithDefaults(rules)
	if err != nil {
		return err
	}

	name := cfg.Allocation.Strategy
	if sc.Strategy != "" {
		name = sc.Strategy
	}
	if strategyOverride != "" {
		name = strategyOverride
	}

	service := apploan.NewReplayService(registry, nil, log)
	result, err := service.Replay(context.Background(), apploan.ReplayRequest{
		StrategyName:     name,
		DisbursementDate: sc.DisbursementDate,
		Currency:         currency,
		Installments:     sc.Installments,
		Charges:          sc.Charges,
		Transactions:     transactions,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(output{
		Result:       result,
		Installments: sc.Installments,
		Transactions: transactions,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func buildCurrency(spec currencySpec) (valueobject.Currency, error) {
	rounding := valueobject.RoundHalfEven
	if spec.Rounding != "" {
		mode, err := valueobject.ParseRoundingMode(spec.Rounding)
		if err != nil {
			return valueobject.Currency{}, err
		}
		rounding = mode
	}
	return valueobject.NewCurrency(spec.Code, spec.DecimalPlaces, rounding)
}

func buildTransactions(specs []transactionSpec, currency valueobject.Currency) ([]*loan.Transaction, error) {
	transactions := make([]*loan.Transaction, 0, len(specs))
	for _, spec := range specs {
		txType := loan.TransactionType(spec.Type)
		if !txType.IsValid() {
			return nil, fmt.Errorf("unknown transaction type %q", spec.Type)
		}
		amount, err := valueobject.NewMoneyFromString(spec.Amount, currency)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for %s transaction: %w", spec.Type, err)
		}

		tx := loan.NewTransaction(txType, spec.Date, amount)
		tx.ExternalID = spec.ExternalID
		tx.Reversed = spec.Reversed
		tx.Manual = spec.Manual
		tx.ChargeNumber = spec.ChargeNumber
		if spec.ID != "" {
			id, err := uuid.Parse(spec.ID)
			if err != nil {
				return nil, fmt.Errorf("invalid transaction id %q: %w", spec.ID, err)
			}
			tx.ID = id
		}

		if tx.PrincipalPortion, err = parsePortion(spec.PrincipalPortion); err != nil {
			return nil, err
		}
		if tx.InterestPortion, err = parsePortion(spec.InterestPortion); err != nil {
			return nil, err
		}
		if tx.FeePortion, err = parsePortion(spec.FeePortion); err != nil {
			return nil, err
		}
		if tx.PenaltyPortion, err = parsePortion(spec.PenaltyPortion); err != nil {
			return nil, err
		}
		if tx.OverpaymentPortion, err = parsePortion(spec.OverpaymentPortion); err != nil {
			return nil, err
		}

		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func parsePortion(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid portion amount %q: %w", s, err)
	}
	return d, nil
}
