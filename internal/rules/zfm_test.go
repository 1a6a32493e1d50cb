package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

func TestZFMEvaluator_Assess(t *testing.T) {
	snap := &refdata.Snapshot{ZFMBenefits: []string{"8528.52.00", "85044010"}}

	eligible := func() *model.ClassificationRequest {
		return &model.ClassificationRequest{
			NCM:                 "85285200",
			IssuerInZFM:         true,
			IssuerSUFRAMAActive: model.TriTrue,
			ZFMProduced:         true,
		}
	}

	t.Run("all four conditions hold", func(t *testing.T) {
		got := ZFMEvaluator{}.Assess(snap, eligible())
		assert.True(t, got.Eligible)
		assert.True(t, got.NCMListed)
	})

	t.Run("issuer outside the zone", func(t *testing.T) {
		req := eligible()
		req.IssuerInZFM = false
		assert.False(t, ZFMEvaluator{}.Assess(snap, req).Eligible)
	})

	t.Run("registry status unknown does not qualify", func(t *testing.T) {
		req := eligible()
		req.IssuerSUFRAMAActive = model.TriUnknown
		assert.False(t, ZFMEvaluator{}.Assess(snap, req).Eligible)
	})

	t.Run("registry explicitly inactive", func(t *testing.T) {
		req := eligible()
		req.IssuerSUFRAMAActive = model.TriFalse
		assert.False(t, ZFMEvaluator{}.Assess(snap, req).Eligible)
	})

	t.Run("item not zone-produced", func(t *testing.T) {
		req := eligible()
		req.ZFMProduced = false
		assert.False(t, ZFMEvaluator{}.Assess(snap, req).Eligible)
	})

	t.Run("unlisted NCM fails only the list condition", func(t *testing.T) {
		req := eligible()
		req.NCM = "22030000"
		got := ZFMEvaluator{}.Assess(snap, req)
		assert.False(t, got.Eligible)
		assert.False(t, got.NCMListed)
	})

	t.Run("benefit list matches on formatted codes", func(t *testing.T) {
		req := eligible()
		req.NCM = "8504.40.10"
		got := ZFMEvaluator{}.Assess(snap, req)
		assert.True(t, got.Eligible)
		assert.True(t, got.NCMListed)
	})

	t.Run("empty NCM is never listed", func(t *testing.T) {
		req := eligible()
		req.NCM = ""
		got := ZFMEvaluator{}.Assess(snap, req)
		assert.False(t, got.Eligible)
		assert.False(t, got.NCMListed)
	})
}
