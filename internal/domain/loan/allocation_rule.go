package loan

import (
	"fmt"
	"strings"

	"github.com/openlms/backend/internal/domain/shared"
)

// DueType is the temporal relationship between a transaction's date and an
// installment's due date.
type DueType string

const (
	DueTypePastDue   DueType = "PAST_DUE"
	DueTypeDue       DueType = "DUE"
	DueTypeInAdvance DueType = "IN_ADVANCE"
)

// IsValid returns true if the due type is one of the three known values
func (d DueType) IsValid() bool {
	switch d {
	case DueTypePastDue, DueTypeDue, DueTypeInAdvance:
		return true
	default:
		return false
	}
}

// String returns the string representation of the due type
func (d DueType) String() string {
	return string(d)
}

// ComponentType is one of the four installment sub-balances allocation can
// be directed at.
type ComponentType string

const (
	ComponentPenalty   ComponentType = "PENALTY"
	ComponentFee       ComponentType = "FEE"
	ComponentInterest  ComponentType = "INTEREST"
	ComponentPrincipal ComponentType = "PRINCIPAL"
)

// IsValid returns true if the component type is one of the four known values
func (c ComponentType) IsValid() bool {
	switch c {
	case ComponentPenalty, ComponentFee, ComponentInterest, ComponentPrincipal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the component type
func (c ComponentType) String() string {
	return string(c)
}

// AllocationType is one entry of an allocation order: which installment
// bucket to look at and which component to spend on.
type AllocationType struct {
	Due       DueType       `json:"due"`
	Component ComponentType `json:"component"`
}

// String renders the entry in its "DUE:INTEREST" text form
func (a AllocationType) String() string {
	return fmt.Sprintf("%s:%s", a.Due, a.Component)
}

// ParseAllocationType parses the "DUE:INTEREST" text form used in rule
// configuration files.
func ParseAllocationType(s string) (AllocationType, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return AllocationType{}, fmt.Errorf("%w: allocation type %q must be DUE_TYPE:COMPONENT", shared.ErrInvalidAllocationRule, s)
	}
	at := AllocationType{
		Due:       DueType(strings.ToUpper(strings.TrimSpace(parts[0]))),
		Component: ComponentType(strings.ToUpper(strings.TrimSpace(parts[1]))),
	}
	if !at.Due.IsValid() {
		return AllocationType{}, fmt.Errorf("%w: unknown due type %q", shared.ErrInvalidAllocationRule, parts[0])
	}
	if !at.Component.IsValid() {
		return AllocationType{}, fmt.Errorf("%w: unknown component %q", shared.ErrInvalidAllocationRule, parts[1])
	}
	return at, nil
}

// FutureInstallmentRule decides which future installments an IN_ADVANCE
// entry targets.
type FutureInstallmentRule string

const (
	FutureInstallmentReamortization FutureInstallmentRule = "REAMORTIZATION"
	FutureInstallmentNext           FutureInstallmentRule = "NEXT_INSTALLMENT"
	FutureInstallmentLast           FutureInstallmentRule = "LAST_INSTALLMENT"
)

// IsValid returns true if the rule is one of the three known policies
func (f FutureInstallmentRule) IsValid() bool {
	switch f {
	case FutureInstallmentReamortization, FutureInstallmentNext, FutureInstallmentLast:
		return true
	default:
		return false
	}
}

// String returns the string representation of the future installment rule
func (f FutureInstallmentRule) String() string {
	return string(f)
}

// DefaultRuleKey marks the rule applied to every transaction type without a
// rule of its own. Each rule set must contain it.
const DefaultRuleKey = "DEFAULT"

// PaymentAllocationRule is the ordered allocation plan for one transaction
// type (or for DEFAULT).
type PaymentAllocationRule struct {
	TransactionType       string                `json:"transaction_type"`
	Order                 []AllocationType      `json:"order"`
	FutureInstallmentRule FutureInstallmentRule `json:"future_installment_rule"`
}

// Validate checks the rule for an empty or duplicated order and invalid
// entries.
func (r PaymentAllocationRule) Validate() error {
	if r.TransactionType == "" {
		return fmt.Errorf("%w: transaction type is empty", shared.ErrInvalidAllocationRule)
	}
	if r.TransactionType != DefaultRuleKey && !TransactionType(r.TransactionType).IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", shared.ErrInvalidAllocationRule, r.TransactionType)
	}
	if len(r.Order) == 0 {
		return fmt.Errorf("%w: rule for %s has an empty order", shared.ErrInvalidAllocationRule, r.TransactionType)
	}
	if !r.FutureInstallmentRule.IsValid() {
		return fmt.Errorf("%w: rule for %s has unknown future installment rule %q", shared.ErrInvalidAllocationRule, r.TransactionType, r.FutureInstallmentRule)
	}
	seen := make(map[AllocationType]bool, len(r.Order))
	for _, at := range r.Order {
		if !at.Due.IsValid() || !at.Component.IsValid() {
			return fmt.Errorf("%w: rule for %s has invalid entry %s", shared.ErrInvalidAllocationRule, r.TransactionType, at)
		}
		if seen[at] {
			return fmt.Errorf("%w: rule for %s repeats entry %s", shared.ErrInvalidAllocationRule, r.TransactionType, at)
		}
		seen[at] = true
	}
	return nil
}

// Reversed returns a copy of the rule with the allocation order reversed.
// Rule-driven refunds unwind allocations in the opposite order they were
// applied in.
func (r PaymentAllocationRule) Reversed() PaymentAllocationRule {
	order := make([]AllocationType, len(r.Order))
	for i, at := range r.Order {
		order[len(r.Order)-1-i] = at
	}
	return PaymentAllocationRule{
		TransactionType:       r.TransactionType,
		Order:                 order,
		FutureInstallmentRule: r.FutureInstallmentRule,
	}
}

// ValidateRuleSet validates each rule and checks the set contains a DEFAULT
// entry and no duplicate transaction types.
func ValidateRuleSet(rules []PaymentAllocationRule) error {
	seen := make(map[string]bool, len(rules))
	hasDefault := false
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.TransactionType] {
			return fmt.Errorf("%w: duplicate rule for %s", shared.ErrInvalidAllocationRule, r.TransactionType)
		}
		seen[r.TransactionType] = true
		if r.TransactionType == DefaultRuleKey {
			hasDefault = true
		}
	}
	if !hasDefault {
		return shared.ErrAllocationRuleMissing
	}
	return nil
}
