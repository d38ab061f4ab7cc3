package strategy

import (
	"testing"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/domain/shared/strategy"
	"github.com/erp/lotledger/internal/infrastructure/strategy/lot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryWithDefaults(t *testing.T) {
	r := NewRegistryWithDefaults()

	assert.Equal(t, []string{"fefo", "fifo", "pinned"}, r.ListLotStrategies())

	t.Run("empty name returns fifo", func(t *testing.T) {
		s, err := r.GetLotStrategy("")
		require.NoError(t, err)
		assert.Equal(t, strategy.PolicyFIFO, s.Name())
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		s, err := r.GetLotStrategy(" FEFO ")
		require.NoError(t, err)
		assert.Equal(t, strategy.PolicyFEFO, s.Name())
	})

	t.Run("unknown policy is a validation error", func(t *testing.T) {
		_, err := r.GetLotStrategy("lifo")
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		err := r.RegisterLotStrategy(lot.NewFIFOLotStrategy())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("default can be changed", func(t *testing.T) {
		require.NoError(t, r.SetDefaultLotStrategy(strategy.PolicyFEFO))
		s, err := r.GetLotStrategy("")
		require.NoError(t, err)
		assert.Equal(t, strategy.PolicyFEFO, s.Name())
		assert.ErrorIs(t, r.SetDefaultLotStrategy("missing"), shared.ErrNotFound)
	})
}

func TestEmptyRegistryHasNoDefault(t *testing.T) {
	r := NewStrategyRegistry()
	_, err := r.GetLotStrategy("")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
