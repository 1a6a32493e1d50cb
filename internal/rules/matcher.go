package rules

import (
	"sort"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

// Sentinel classification returned when no rule in the table matches.
const (
	GeneralRuleCode        = "REGRA-GERAL"
	GeneralRuleDescription = "Regra geral (sem correspondência na tabela de classificação)"
)

// Own-production fallback substituted for the sentinel when CFOP inference
// confirms own production for one of these well-known outbound codes. A
// narrow safety net, not a general inference rule.
const (
	OwnProductionCode        = "VENDA-PRODUCAO-PROPRIA"
	OwnProductionDescription = "Venda de produção do estabelecimento (inferida pelo CFOP)"
)

var ownProductionCFOPs = map[string]bool{
	"5101": true,
	"6101": true,
	"7101": true,
}

// OwnProductionFallbackCFOP reports whether the code is in the narrow set
// eligible for the own-production fallback.
func OwnProductionFallbackCFOP(cfop string) bool {
	return ownProductionCFOPs[NormCode(cfop)]
}

// Bonus added to ZFM-flagged rules in a zone-benefit context so that a
// zone rule always outranks an equally specific general rule there.
const zfmBonus = 10

// MatchQuery carries the normalized transaction attributes the matcher
// filters rules against.
type MatchQuery struct {
	Regime     string
	CFOP       string
	UFOrigin   string
	UFDest     string
	CSTICMS    string
	ZFMContext bool
}

// MatchResult is the selected classification plus the scored candidate set.
type MatchResult struct {
	Code        string
	Description string

	// Rule is nil when the sentinel was returned.
	Rule       *model.ClassificationRule
	Candidates []model.ClassificationRule
}

// Generic reports whether selection fell through to the sentinel.
func (m MatchResult) Generic() bool { return m.Rule == nil }

// RuleMatcher selects the best-matching operational classification rule by
// specificity scoring.
type RuleMatcher struct{}

// Select filters the rule table and picks the highest-scoring candidate.
// Ties preserve table order, so selection is deterministic for a given
// snapshot and query.
func (RuleMatcher) Select(snap *refdata.Snapshot, q MatchQuery) MatchResult {
	regime := NormCode(q.Regime)
	cfop := NormCode(q.CFOP)
	ufO := NormCode(q.UFOrigin)
	ufD := NormCode(q.UFDest)
	cst := NormCode(q.CSTICMS)

	var candidates []model.ClassificationRule
	for _, r := range snap.Rules {
		if r.ZFMOnly && !q.ZFMContext {
			continue
		}
		if !r.Regime.Matches(regime) ||
			!r.CFOP.Matches(cfop) ||
			!r.UFOrigin.Matches(ufO) ||
			!r.CSTICMS.Matches(cst) {
			continue
		}
		if r.UFDest.MustDiffer() {
			if ufD == ufO {
				continue
			}
		} else if !r.UFDest.Matches(ufD) {
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return MatchResult{
			Code:        GeneralRuleCode,
			Description: GeneralRuleDescription,
		}
	}

	score := func(r model.ClassificationRule) int {
		s := r.Specificity()
		if r.ZFMOnly && q.ZFMContext {
			s += zfmBonus
		}
		return s
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})

	top := candidates[0]
	return MatchResult{
		Code:        top.Code,
		Description: top.Description,
		Rule:        &top,
		Candidates:  candidates,
	}
}
