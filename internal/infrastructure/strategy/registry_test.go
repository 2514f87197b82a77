package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/backend/internal/domain/loan"
	"github.com/openlms/backend/internal/domain/shared"
	"github.com/openlms/backend/internal/infrastructure/strategy/allocation"
)

func defaultOnlyRules() []loan.PaymentAllocationRule {
	return []loan.PaymentAllocationRule{
		{
			TransactionType: loan.DefaultRuleKey,
			Order: []loan.AllocationType{
				{Due: loan.DueTypeDue, Component: loan.ComponentInterest},
				{Due: loan.DueTypeDue, Component: loan.ComponentPrincipal},
			},
			FutureInstallmentRule: loan.FutureInstallmentNext,
		},
	}
}

func TestStrategyRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewStrategyRegistry()
		require.NoError(t, r.Register(allocation.NewDueDateRespectiveStrategy()))

		s, err := r.Get("due-date-respective")
		require.NoError(t, err)
		assert.Equal(t, "due-date-respective", s.Name())
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		r := NewStrategyRegistry()
		require.NoError(t, r.Register(allocation.NewDueDateRespectiveStrategy()))

		err := r.Register(allocation.NewDueDateRespectiveStrategy())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("get unknown strategy fails", func(t *testing.T) {
		r := NewStrategyRegistry()
		_, err := r.Get("no-such-strategy")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name resolves the default", func(t *testing.T) {
		r := NewStrategyRegistry()
		require.NoError(t, r.Register(allocation.NewRBIStyleStrategy()))

		_, err := r.Get("")
		assert.ErrorIs(t, err, shared.ErrNotFound, "no default configured yet")

		require.NoError(t, r.SetDefault("rbi-style"))
		s, err := r.Get("")
		require.NoError(t, err)
		assert.Equal(t, "rbi-style", s.Name())
	})

	t.Run("unregister clears the default", func(t *testing.T) {
		r := NewStrategyRegistry()
		require.NoError(t, r.Register(allocation.NewRBIStyleStrategy()))
		require.NoError(t, r.SetDefault("rbi-style"))

		require.NoError(t, r.Unregister("rbi-style"))
		assert.Empty(t, r.GetDefault())
		assert.ErrorIs(t, r.Unregister("rbi-style"), shared.ErrNotFound)
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewStrategyRegistry()
		require.NoError(t, r.Register(allocation.NewRBIStyleStrategy()))
		require.NoError(t, r.Register(allocation.NewDueDateRespectiveStrategy()))

		assert.Equal(t, []string{"due-date-respective", "rbi-style"}, r.List())
	})
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults(defaultOnlyRules())
	require.NoError(t, err)

	assert.Equal(t, []string{"advanced-rule-based", "due-date-respective", "rbi-style"}, r.List())
	assert.Equal(t, "due-date-respective", r.GetDefault())
}

func TestNewRegistryWithDefaultsRejectsBadRules(t *testing.T) {
	_, err := NewRegistryWithDefaults(nil)
	require.Error(t, err)
}
