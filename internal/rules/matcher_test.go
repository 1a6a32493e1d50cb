package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

func rule(code string, regime, cfop, ufO, ufD, cst string) model.ClassificationRule {
	return model.ClassificationRule{
		Code:        code,
		Description: "desc " + code,
		Regime:      model.ParseFieldPattern(regime),
		CFOP:        model.ParseFieldPattern(cfop),
		UFOrigin:    model.ParseFieldPattern(ufO),
		UFDest:      model.ParseFieldPattern(ufD),
		CSTICMS:     model.ParseFieldPattern(cst),
	}
}

func TestRuleMatcher_Select(t *testing.T) {
	var matcher RuleMatcher

	t.Run("more specific rule wins", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("GENERICA", "*", "*", "*", "*", "*"),
			rule("ESPECIFICA", "RPA", "5101", "SP", "*", "*"),
		}}

		got := matcher.Select(snap, MatchQuery{Regime: "rpa", CFOP: "5101", UFOrigin: "sp", UFDest: "SP", CSTICMS: "000"})
		assert.Equal(t, "ESPECIFICA", got.Code)
		assert.Len(t, got.Candidates, 2)
	})

	t.Run("blank and star both act as wildcards", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("R1", "", "5102", "*", "", "*"),
		}}

		got := matcher.Select(snap, MatchQuery{Regime: "SN", CFOP: "5102", UFOrigin: "MG", UFDest: "RJ", CSTICMS: "102"})
		assert.Equal(t, "R1", got.Code)
	})

	t.Run("non-matching field excludes rule", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("R1", "RPA", "*", "*", "*", "*"),
		}}

		got := matcher.Select(snap, MatchQuery{Regime: "SN", CFOP: "5102", UFOrigin: "MG", UFDest: "RJ", CSTICMS: "102"})
		assert.Equal(t, GeneralRuleCode, got.Code)
		assert.True(t, got.Generic())
		assert.Empty(t, got.Candidates)
	})

	t.Run("must-differ destination requires interstate", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("INTERESTADUAL", "*", "*", "*", "!", "*"),
		}}

		got := matcher.Select(snap, MatchQuery{Regime: "RPA", CFOP: "6101", UFOrigin: "SP", UFDest: "MG"})
		assert.Equal(t, "INTERESTADUAL", got.Code)

		got = matcher.Select(snap, MatchQuery{Regime: "RPA", CFOP: "6101", UFOrigin: "SP", UFDest: "SP"})
		assert.Equal(t, GeneralRuleCode, got.Code)
	})

	t.Run("ties preserve table order", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("PRIMEIRA", "RPA", "*", "*", "*", "*"),
			rule("SEGUNDA", "*", "5101", "*", "*", "*"),
		}}

		q := MatchQuery{Regime: "RPA", CFOP: "5101", UFOrigin: "SP", UFDest: "SP"}
		got := matcher.Select(snap, q)
		assert.Equal(t, "PRIMEIRA", got.Code)
		require.Len(t, got.Candidates, 2)
		assert.Equal(t, "SEGUNDA", got.Candidates[1].Code)
	})

	t.Run("selection is deterministic", func(t *testing.T) {
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("A", "RPA", "*", "*", "*", "*"),
			rule("B", "*", "5101", "*", "*", "*"),
			rule("C", "*", "*", "SP", "*", "*"),
		}}
		q := MatchQuery{Regime: "RPA", CFOP: "5101", UFOrigin: "SP", UFDest: "SP"}

		first := matcher.Select(snap, q)
		second := matcher.Select(snap, q)
		assert.Equal(t, first.Code, second.Code)
		require.Equal(t, len(first.Candidates), len(second.Candidates))
		for i := range first.Candidates {
			assert.Equal(t, first.Candidates[i].Code, second.Candidates[i].Code)
		}
	})

	t.Run("zfm-only rule hidden outside zone context", func(t *testing.T) {
		zfmRule := rule("ZFM", "*", "5101", "AM", "*", "*")
		zfmRule.ZFMOnly = true
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			zfmRule,
			rule("COMUM", "*", "5101", "*", "*", "*"),
		}}
		q := MatchQuery{Regime: "RPA", CFOP: "5101", UFOrigin: "AM", UFDest: "SP"}

		got := matcher.Select(snap, q)
		assert.Equal(t, "COMUM", got.Code)

		q.ZFMContext = true
		got = matcher.Select(snap, q)
		assert.Equal(t, "ZFM", got.Code)
	})

	t.Run("zfm bonus outranks more specific general rule", func(t *testing.T) {
		zfmRule := rule("ZFM", "*", "5101", "*", "*", "*")
		zfmRule.ZFMOnly = true
		snap := &refdata.Snapshot{Rules: []model.ClassificationRule{
			rule("ESPECIFICA", "RPA", "5101", "AM", "SP", "000"),
			zfmRule,
		}}
		q := MatchQuery{Regime: "RPA", CFOP: "5101", UFOrigin: "AM", UFDest: "SP", CSTICMS: "000", ZFMContext: true}

		got := matcher.Select(snap, q)
		assert.Equal(t, "ZFM", got.Code)
	})
}

func TestOwnProductionFallbackCFOP(t *testing.T) {
	assert.True(t, OwnProductionFallbackCFOP("5101"))
	assert.True(t, OwnProductionFallbackCFOP(" 6101 "))
	assert.True(t, OwnProductionFallbackCFOP("7101"))
	assert.False(t, OwnProductionFallbackCFOP("5102"))
}
