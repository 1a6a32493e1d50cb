package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchCSV(t *testing.T) {
	t.Run("full rows", func(t *testing.T) {
		in := "cfop;cst_icms;ncm;produzido_zfm;valor_item\n" +
			"5102;000;22030000;N;1500,50\n" +
			"6101;000;85285200;S;99.90\n"

		items, err := parseBatchCSV(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "5102", items[0].cfop)
		assert.Equal(t, "000", items[0].cstICMS)
		assert.Equal(t, "22030000", items[0].ncm)
		assert.False(t, items[0].zfmProduced)
		require.NotNil(t, items[0].itemValue)
		assert.InDelta(t, 1500.50, *items[0].itemValue, 1e-9)

		assert.True(t, items[1].zfmProduced)
		require.NotNil(t, items[1].itemValue)
		assert.InDelta(t, 99.90, *items[1].itemValue, 1e-9)
	})

	t.Run("optional columns absent", func(t *testing.T) {
		in := "CFOP;CST_ICMS;NCM\n5102;000;22030000\n"

		items, err := parseBatchCSV(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.False(t, items[0].zfmProduced)
		assert.Nil(t, items[0].itemValue)
	})

	t.Run("missing required column", func(t *testing.T) {
		_, err := parseBatchCSV(strings.NewReader("cfop;ncm\n5102;22030000\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cst_icms")
	})

	t.Run("no data rows", func(t *testing.T) {
		_, err := parseBatchCSV(strings.NewReader("cfop;cst_icms;ncm\n"))
		assert.Error(t, err)
	})

	t.Run("invalid item value", func(t *testing.T) {
		_, err := parseBatchCSV(strings.NewReader("cfop;cst_icms;ncm;valor_item\n5102;000;22030000;abc\n"))
		assert.Error(t, err)
	})
}
