package rules

import (
	"strings"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

// OperationSignals are the facts inferred from a CFOP: whether the
// operation moves the issuer's own production and whether it sells
// industrialized goods.
type OperationSignals struct {
	OwnProduction      model.TriState
	IndustrializedSale model.TriState
}

// OperationClassifier infers operation signals from a CFOP. The keyword
// implementation is heuristic; the interface exists so it can be swapped
// for an exact code-range table without touching the engine.
type OperationClassifier interface {
	Classify(snap *refdata.Snapshot, cfop string) OperationSignals
}

// KeywordClassifier infers signals by matching phrases against the CFOP's
// legal description, case-insensitively and accent-stripped.
type KeywordClassifier struct {
	ownProduction  []string
	industrialized []string
}

// NewKeywordClassifier builds a classifier with the phrase sets used by
// the CFOP nomenclature for own-production outputs and industrialized
// goods sales.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		ownProduction: []string{
			"producao do estabelecimento",
			"producao propria",
			"producao rural",
		},
		industrialized: []string{
			"industrializacao",
			"industrializado",
			"industrializada",
		},
	}
}

// Classify looks the CFOP up in the descriptor table. An unknown code
// yields unknown signals. Known inbound codes (leading digit outside
// 5/6/7) never indicate own production or industrialized sale. For known
// outbound codes the keyword match decides; no keyword means a definite
// false, since the code itself is known.
func (k *KeywordClassifier) Classify(snap *refdata.Snapshot, cfop string) OperationSignals {
	code := NormCode(cfop)

	var desc string
	found := false
	for _, d := range snap.CFOP {
		if NormCode(d.Code) == code {
			desc = d.Description
			found = true
			break
		}
	}
	if !found {
		return OperationSignals{}
	}
	if !outboundCFOP(code) {
		return OperationSignals{
			OwnProduction:      model.TriFalse,
			IndustrializedSale: model.TriFalse,
		}
	}

	folded := FoldText(desc)
	return OperationSignals{
		OwnProduction:      model.TriFromBool(containsAny(folded, k.ownProduction)),
		IndustrializedSale: model.TriFromBool(containsAny(folded, k.industrialized)),
	}
}

func outboundCFOP(code string) bool {
	if code == "" {
		return false
	}
	switch code[0] {
	case '5', '6', '7':
		return true
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
