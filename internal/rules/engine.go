package rules

import (
	"fmt"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

// Selective tax (IS) applies only from this year on.
const selectiveTaxFirstYear = 2027

// Categories subject to the selective tax on harmful goods.
var selectiveTaxCategories = map[string]bool{
	"NOCIVO":   true,
	"SELETIVO": true,
	"BEBIDAS":  true,
	"CIGARROS": true,
}

// Default CST / cClassTrib pair when the mapping table has no row for the
// selected classification.
const (
	defaultCST        = "000"
	defaultCClassTrib = "000001"
	defaultCSTWording = "Tributação integral - padrão"
)

// Engine composes the resolvers into one classification decision per
// request. It is a pure computation over an immutable snapshot: no I/O, no
// shared mutable state, safe for concurrent use.
type Engine struct {
	operations OperationClassifier
	products   ProductResolver
	matcher    RuleMatcher
	rates      TransitionResolver
	zfm        ZFMEvaluator
}

// NewEngine builds an engine with the default keyword-based CFOP
// classifier.
func NewEngine() *Engine {
	return &Engine{operations: NewKeywordClassifier()}
}

// NewEngineWithClassifier builds an engine with a custom operation
// classifier, e.g. an exact code-range table.
func NewEngineWithClassifier(oc OperationClassifier) *Engine {
	return &Engine{operations: oc}
}

// Classify produces the full decision for one request. Missing reference
// data never fails the call; every gap degrades to a conservative default
// surfaced through alerts and pending items.
func (e *Engine) Classify(snap *refdata.Snapshot, req *model.ClassificationRequest) *model.ClassificationResult {
	res := &model.ClassificationResult{
		Alerts:       []string{},
		PendingItems: []string{},
	}
	year := req.EmissionYear()

	// Operation type and jurisdiction.
	signals := e.operations.Classify(snap, req.CFOP)
	res.OwnProduction = signals.OwnProduction
	res.IndustrializedSale = signals.IndustrializedSale
	scope := "interestadual"
	if NormCode(req.UFOrigin) == NormCode(req.UFDest) {
		scope = "interna"
	}
	res.AddJustification(
		"CFOP / JURISDIÇÃO",
		fmt.Sprintf("CFOP %s, operação %s %s→%s; produção própria: %s; venda de industrializado: %s",
			NormCode(req.CFOP), scope, NormCode(req.UFOrigin), NormCode(req.UFDest),
			signals.OwnProduction, signals.IndustrializedSale),
		"cfop_descricoes.csv",
	)

	// Zone residency.
	if req.IssuerInZFM {
		res.AddJustification("ZONA FRANCA DE MANAUS",
			"Emitente localizado na Zona Franca de Manaus", "Entrada da API")
	}
	if req.RecipientInZFM {
		res.AddJustification("ZONA FRANCA DE MANAUS",
			"Destinatário localizado na Zona Franca de Manaus", "Entrada da API")
	}

	// SUFRAMA registry. Only relevant when the request touches the zone
	// at all; there, absent identifiers are pending items whatever the
	// benefit outcome, and an explicitly inactive registry is an alert.
	if req.IssuerInZFM || req.RecipientInZFM || req.ZFMProduced {
		e.recordRegistry(res, "emitente", req.IssuerSUFRAMA, req.IssuerSUFRAMAActive)
		e.recordRegistry(res, "destinatário", req.RecipientSUFRAMA, req.RecipientSUFRAMAActive)
	}

	// Product category.
	prefix := NCMPrefix(req.NCM)
	prod := e.products.Resolve(snap, req.NCM, req.EmissionDate)
	category := prod.Category()
	res.Category = category
	switch {
	case prod.Row != nil:
		source := "ncm_master.csv"
		if prod.FromException {
			source = "ncm_excecoes.csv"
		}
		res.AddJustification("CATEGORIA NCM",
			fmt.Sprintf("Categoria=%s para NCM %s", category, prefix), source)
	case prod.CatalogConfirmed:
		res.AddPending(fmt.Sprintf("NCM %s sem categoria em ncm_master/ncm_excecoes", prefix))
		res.AddAlert("Tributação aplicada pela regra geral (NCM confirmado no catálogo oficial)")
		res.AddJustification("CATEGORIA NCM",
			fmt.Sprintf("NCM %s consta no catálogo oficial (%s) mas não possui categoria; aplicada regra geral",
				prefix, prod.CatalogDescription),
			"ncm_catalogo.csv")
	default:
		res.AddPending(fmt.Sprintf("NCM %s não encontrado em ncm_master/ncm_excecoes", prefix))
		res.AddAlert("Tributação aplicada pela regra geral (fallback)")
		res.AddJustification("CATEGORIA NCM",
			fmt.Sprintf("NCM %s não encontrado; aplicada regra geral", prefix),
			"ncm_master.csv / ncm_excecoes.csv")
	}

	// ZFM context feeds rule selection: zone-only rules are visible, and
	// outrank equally specific general rules, only when eligible.
	zfm := e.zfm.Assess(snap, req)
	res.NCMInBenefitList = zfm.NCMListed

	match := e.matcher.Select(snap, MatchQuery{
		Regime:     req.Regime,
		CFOP:       req.CFOP,
		UFOrigin:   req.UFOrigin,
		UFDest:     req.UFDest,
		CSTICMS:    req.CSTICMS,
		ZFMContext: zfm.Eligible,
	})
	res.Code = match.Code
	res.Description = match.Description

	if match.Generic() && signals.OwnProduction.True() && OwnProductionFallbackCFOP(req.CFOP) {
		res.Code = OwnProductionCode
		res.Description = OwnProductionDescription
		res.AddJustification("cClasTrib",
			fmt.Sprintf("Sem regra específica; CFOP %s confirma produção própria, aplicado %s",
				NormCode(req.CFOP), OwnProductionCode),
			"cclastrib.csv / cfop_descricoes.csv")
	} else {
		res.AddJustification("cClasTrib",
			fmt.Sprintf("Selecionado %s entre %d candidato(s)", res.Code, len(match.Candidates)),
			"cclastrib.csv")
	}

	// CST / cClassTrib pair.
	treatment, found := findTreatment(snap, res.Code)
	res.CSTIBSCBS = treatment.CST
	res.CClassTrib = treatment.CClassTrib
	if found {
		res.AddJustification("CST IBS/CBS",
			fmt.Sprintf("CST=%s cClassTrib=%s (%s)", treatment.CST, treatment.CClassTrib, treatment.Description),
			"cst_ibs_cbs_map.csv")
	} else {
		res.AddJustification("CST IBS/CBS",
			fmt.Sprintf("Sem mapeamento para %s; aplicado par padrão CST=%s cClassTrib=%s",
				res.Code, treatment.CST, treatment.CClassTrib),
			"cst_ibs_cbs_map.csv")
	}

	// Transition rates. A missing year defaults to 0.0 but is still
	// written to the trail for visibility.
	res.AddJustification("ANO DE REFERÊNCIA",
		fmt.Sprintf("Cálculo realizado com base no ano %d", year), "data_emissao")

	ibs, okIBS := e.rates.Resolve(snap.TransitionIBS, year)
	res.RateIBS = ibs
	res.AddJustification("TRANSIÇÃO IBS",
		fmt.Sprintf("Percentual IBS aplicado para %d: %v", year, ibs), "transicao_ibs.csv")
	if !okIBS {
		res.AddPending(fmt.Sprintf("Ano %d ausente em transicao_ibs; aplicado 0.0", year))
	}

	cbs, okCBS := e.rates.Resolve(snap.TransitionCBS, year)
	res.RateCBS = cbs
	res.AddJustification("TRANSIÇÃO CBS",
		fmt.Sprintf("Percentual CBS aplicado para %d: %v", year, cbs), "transicao_cbs.csv")
	if !okCBS {
		res.AddPending(fmt.Sprintf("Ano %d ausente em transicao_cbs; aplicado 0.0", year))
	}

	// ZFM benefit override.
	if zfm.Eligible {
		res.ZFMBenefitApplied = true
		res.RateIBS = 0
		if match.Rule == nil || !match.Rule.ZFMOnly {
			res.Code = ZFMOverrideCode
			res.Description = ZFMOverrideDescription
			res.AddJustification("BENEFÍCIO ZFM",
				fmt.Sprintf("Regra selecionada não é específica da ZFM; substituída por %s", ZFMOverrideCode),
				"zfm_beneficios.csv")
		}
		res.AddJustification("BENEFÍCIO ZFM",
			fmt.Sprintf("Alíquota IBS zerada para produção própria na Zona Franca de Manaus (NCM %s)", prefix),
			ZFMLegalBasis)
	} else if req.IssuerInZFM && req.IssuerSUFRAMAActive == model.TriTrue &&
		req.ZFMProduced && !zfm.NCMListed {
		// Eligibility failed only on the benefit list.
		res.AddAlert(fmt.Sprintf("NCM %s fora da lista de benefícios da ZFM; aplicada tributação padrão", prefix))
	}

	// Government purchase.
	if req.GovernmentPurchase {
		res.AddJustification("COMPRA GOVERNAMENTAL",
			"Operação identificada como compra governamental", "Entrada da API")
	}

	// Selective tax.
	res.SelectiveTax = year >= selectiveTaxFirstYear && selectiveTaxCategories[NormCode(category)]

	// Confidence.
	confidence := 0.6
	if prod.Row != nil {
		confidence += 0.2
	}
	if res.Code != GeneralRuleCode {
		confidence += 0.2
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	res.Confidence = confidence

	return res
}

func (e *Engine) recordRegistry(res *model.ClassificationResult, party, id string, active model.TriState) {
	if id == "" {
		res.AddPending(fmt.Sprintf("Cadastro SUFRAMA do %s não informado", party))
		return
	}
	res.AddJustification("CADASTRO SUFRAMA",
		fmt.Sprintf("Cadastro SUFRAMA do %s: %s (ativo: %s)", party, id, active),
		"Entrada da API")
	if active == model.TriFalse {
		res.AddAlert(fmt.Sprintf("Cadastro SUFRAMA do %s está inativo", party))
	}
}

func findTreatment(snap *refdata.Snapshot, code string) (model.TreatmentMapping, bool) {
	for _, t := range snap.Treatments {
		if t.ClassificationCode == code {
			return t, true
		}
	}
	return model.TreatmentMapping{
		ClassificationCode: code,
		CST:                defaultCST,
		CClassTrib:         defaultCClassTrib,
		Description:        defaultCSTWording,
	}, false
}
