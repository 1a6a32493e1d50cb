package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y, m, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestProductResolver_Resolve(t *testing.T) {
	snap := &refdata.Snapshot{
		NCMMaster: []model.NCMCategoryRow{
			{NCM: "2203.00.00", Category: "BEBIDAS"},
			{NCM: "1006.30.21", Category: "ALIMENTOS_IN_NATURA"},
			{NCM: "3004.90.99", Category: "MEDICAMENTOS", ValidFrom: datePtr(2026, 1, 1), ValidTo: datePtr(2026, 12, 31)},
		},
		NCMExceptions: []model.NCMCategoryRow{
			{NCM: "22030000", Category: "NOCIVO", ValidFrom: datePtr(2027, 1, 1)},
		},
		NCMCatalog: []model.CatalogEntry{
			{NCM: "84713012", Description: "Máquinas automáticas para processamento de dados"},
		},
	}

	var resolver ProductResolver

	t.Run("master table match", func(t *testing.T) {
		res := resolver.Resolve(snap, "1006.30.21", date(2026, 6, 1))
		require.NotNil(t, res.Row)
		assert.Equal(t, "ALIMENTOS_IN_NATURA", res.Category())
		assert.False(t, res.FromException)
	})

	t.Run("exception shadows master once in force", func(t *testing.T) {
		res := resolver.Resolve(snap, "2203.00.00", date(2027, 3, 1))
		require.NotNil(t, res.Row)
		assert.Equal(t, "NOCIVO", res.Category())
		assert.True(t, res.FromException)
	})

	t.Run("exception out of window falls back to master", func(t *testing.T) {
		res := resolver.Resolve(snap, "2203.00.00", date(2026, 3, 1))
		require.NotNil(t, res.Row)
		assert.Equal(t, "BEBIDAS", res.Category())
		assert.False(t, res.FromException)
	})

	t.Run("validity window bounds are inclusive", func(t *testing.T) {
		res := resolver.Resolve(snap, "30049099", date(2026, 12, 31))
		require.NotNil(t, res.Row)
		assert.Equal(t, "MEDICAMENTOS", res.Category())

		res = resolver.Resolve(snap, "30049099", date(2027, 1, 1))
		assert.Nil(t, res.Row)
	})

	t.Run("prefix stability", func(t *testing.T) {
		a := resolver.Resolve(snap, "2203.00.00", date(2026, 3, 1))
		b := resolver.Resolve(snap, "22030000", date(2026, 3, 1))
		require.NotNil(t, a.Row)
		require.NotNil(t, b.Row)
		assert.Equal(t, a.Row.Category, b.Row.Category)
	})

	t.Run("catalog confirms code without category", func(t *testing.T) {
		res := resolver.Resolve(snap, "8471.30.12", date(2026, 3, 1))
		assert.Nil(t, res.Row)
		assert.True(t, res.CatalogConfirmed)
		assert.Equal(t, "Máquinas automáticas para processamento de dados", res.CatalogDescription)
		assert.Empty(t, res.Category())
	})

	t.Run("unknown code", func(t *testing.T) {
		res := resolver.Resolve(snap, "9999.99.99", date(2026, 3, 1))
		assert.Nil(t, res.Row)
		assert.False(t, res.CatalogConfirmed)
	})
}

func TestProductResolver_FirstMatchWins(t *testing.T) {
	snap := &refdata.Snapshot{
		NCMMaster: []model.NCMCategoryRow{
			{NCM: "22030000", Category: "PRIMEIRA"},
			{NCM: "22030000", Category: "SEGUNDA"},
		},
	}

	var resolver ProductResolver
	res := resolver.Resolve(snap, "22030000", date(2026, 1, 1))
	require.NotNil(t, res.Row)
	assert.Equal(t, "PRIMEIRA", res.Category())
}
