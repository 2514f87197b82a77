package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared"
	"github.com/openlms/backend/internal/infrastructure/strategy/allocation"
)

// StrategyRegistry manages repayment strategy registrations
type StrategyRegistry struct {
	mu          sync.RWMutex
	strategies  map[string]loan.RepaymentStrategy
	defaultName string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		strategies: make(map[string]loan.RepaymentStrategy),
	}
}

// Register registers a repayment strategy
func (r *StrategyRegistry) Register(s loan.RepaymentStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("%w: repayment strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.strategies[name] = s
	return nil
}

// Get returns a repayment strategy by name, or the default if name is empty
func (r *StrategyRegistry) Get(name string) (loan.RepaymentStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
		if name == "" {
			return nil, fmt.Errorf("%w: no default repayment strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.strategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: repayment strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// List returns all registered strategy names
func (r *StrategyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a repayment strategy
func (r *StrategyRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; !exists {
		return fmt.Errorf("%w: repayment strategy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.strategies, name)

	if r.defaultName == name {
		r.defaultName = ""
	}
	return nil
}

// SetDefault sets the strategy returned when no name is given
func (r *StrategyRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; !exists {
		return fmt.Errorf("%w: repayment strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultName = name
	return nil
}

// GetDefault returns the default strategy name
func (r *StrategyRegistry) GetDefault() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// NewRegistryWithDefaults creates a registry with the built-in strategies
// registered. The rule set feeds the advanced rule-based strategy and must
// contain a DEFAULT rule; the due-date-respective strategy is the default.
func NewRegistryWithDefaults(rules []loan.PaymentAllocationRule) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	dueDate := allocation.NewDueDateRespectiveStrategy()
	if err := r.Register(dueDate); err != nil {
		return nil, err
	}

	rbi := allocation.NewRBIStyleStrategy()
	if err := r.Register(rbi); err != nil {
		return nil, err
	}

	advanced, err := allocation.NewAdvancedRuleBasedStrategy(rules)
	if err != nil {
		return nil, err
	}
	if err := r.Register(advanced); err != nil {
		return nil, err
	}

	if err := r.SetDefault(dueDate.Name()); err != nil {
		return nil, err
	}
	return r, nil
}
