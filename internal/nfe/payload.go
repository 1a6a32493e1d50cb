// Package nfe derives the fiscal-document (NF-e style) payload from a
// classification result: bases, amounts, totals and the tag groups the
// document emitter expects. The derivation is mechanical; all decisions
// were already made by the engine.
package nfe

import (
	"math"
	"time"

	"github.com/openfiscal/cclastrib/internal/model"
)

// Delivery forecast written to dPrevEntrega, counted from emission.
const deliveryForecastDays = 10

// Government purchase defaults until the per-entity tables exist.
const (
	govEntityType    = "tcgEstados"
	govReducer       = 5.0
	govOperationType = "togFornecimento"
)

// Selective tax defaults applied while the per-category IS tables are not
// published.
const (
	selectiveCST        = "cstis000"
	selectiveCClassTrib = "000001"
	selectiveRate       = 5.0
)

// CompraGov is the government-purchase tag group.
type CompraGov struct {
	TPEnteGov string  `json:"tpEnteGov"`
	PRedutor  float64 `json:"pRedutor"`
	TPOperGov string  `json:"tpOperGov"`
}

// Prepayment references one advance-payment document.
type Prepayment struct {
	RefNFe string `json:"refNFe"`
}

// Ide is the document identification group.
type Ide struct {
	DPrevEntrega string       `json:"dPrevEntrega"`
	CMunFGIBS    *int         `json:"cMunFGIBS,omitempty"`
	TPNFDebito   string       `json:"tpNFDebito"`
	TPNFCredito  string       `json:"tpNFCredito"`
	GCompraGov   *CompraGov   `json:"gCompraGov,omitempty"`
	Prepayments  []Prepayment `json:"gPagAntecipado,omitempty"`
}

// ReferencedDoc points at a referenced fiscal document.
type ReferencedDoc struct {
	ChaveAcesso string `json:"chaveAcesso"`
	NItem       int    `json:"nItem"`
}

// Produto is the item group.
type Produto struct {
	IndBemMovelUsado string         `json:"indBemMovelUsado"`
	VItem            *float64       `json:"vItem,omitempty"`
	ReferencedDoc    *ReferencedDoc `json:"DFeReferenciado,omitempty"`
}

// IBSUF carries the state share of the IBS.
type IBSUF struct {
	PIBSUF *float64 `json:"pIBSUF,omitempty"`
	VIBSUF *float64 `json:"vIBSUF,omitempty"`
}

// IBSMun carries the municipal share of the IBS. The split is not derived
// yet; the group is emitted empty for schema compatibility.
type IBSMun struct {
	PIBSMun *float64 `json:"pIBSMun,omitempty"`
	VIBSMun *float64 `json:"vIBSMun,omitempty"`
}

// CBS carries the CBS rate and amount.
type CBS struct {
	PCBS *float64 `json:"pCBS,omitempty"`
	VCBS *float64 `json:"vCBS,omitempty"`
}

// GIBSCBS groups base, shares and amounts for both taxes.
type GIBSCBS struct {
	VBC     *float64 `json:"vBC,omitempty"`
	GIBSUF  IBSUF    `json:"gIBSUF"`
	GIBSMun IBSMun   `json:"gIBSMun"`
	VIBS    *float64 `json:"vIBS,omitempty"`
	GCBS    CBS      `json:"gCBS"`
}

// IBSCBS is the per-item tax group for the two consumption taxes.
type IBSCBS struct {
	CST        string  `json:"CST"`
	CClassTrib string  `json:"cClassTrib"`
	IndDoacao  string  `json:"indDoacao"`
	GIBSCBS    GIBSCBS `json:"gIBSCBS"`
}

// IS is the selective-tax group, present only when the tax applies.
type IS struct {
	CSTIS        string   `json:"CSTIS"`
	CClassTribIS string   `json:"cClassTribIS"`
	VBCIS        *float64 `json:"vBCIS,omitempty"`
	PIS          float64  `json:"pIS"`
	VIS          *float64 `json:"vIS,omitempty"`
}

// Imposto groups the tax blocks of one item.
type Imposto struct {
	IS     *IS    `json:"IS,omitempty"`
	IBSCBS IBSCBS `json:"IBSCBS"`
}

// Totais carries the document totals.
type Totais struct {
	VBCIBSCBS *float64 `json:"vBCIBSCBS,omitempty"`
	VIBS      *float64 `json:"vIBS,omitempty"`
	VCBS      *float64 `json:"vCBS,omitempty"`
	VIS       *float64 `json:"vIS,omitempty"`
	VNFTot    *float64 `json:"vNFTot,omitempty"`
}

// Payload is the complete XML-ready structure for one classified item.
type Payload struct {
	Ide     Ide     `json:"ide"`
	Produto Produto `json:"produto"`
	Imposto Imposto `json:"imposto"`
	Totais  Totais  `json:"totais"`

	// Debit and credit totals summarize the payload for the caller.
	TotalDebit  float64 `json:"total_debito"`
	TotalCredit float64 `json:"total_credito"`
}

// Build derives the payload from a request and its classification result.
// Monetary amounts are the declared item value multiplied by the resolved
// rates, rounded to 2 decimals; absent item value leaves amounts unset.
func Build(req *model.ClassificationRequest, res *model.ClassificationResult) *Payload {
	var vbc, vIBS, vCBS, vIS *float64
	if req.ItemValue != nil {
		vbc = round2(*req.ItemValue)
		vIBS = round2(*vbc * res.RateIBS)
		vCBS = round2(*vbc * res.RateCBS)
		if res.SelectiveTax {
			vIS = round2(*vbc * selectiveRate / 100.0)
		}
	}

	totalDebit := sumValues(vIBS, vCBS)

	p := &Payload{
		Ide: Ide{
			DPrevEntrega: req.EmissionDate.AddDate(0, 0, deliveryForecastDays).Format("2006-01-02"),
			CMunFGIBS:    req.MunicipalityFGIBS,
			TPNFDebito:   debitType(totalDebit, res.ZFMBenefitApplied),
			TPNFCredito:  "tcNenhum",
		},
		Produto: Produto{
			IndBemMovelUsado: "tieNenhum",
			VItem:            vbc,
		},
		Imposto: Imposto{
			IBSCBS: IBSCBS{
				CST:        res.CSTIBSCBS,
				CClassTrib: res.CClassTrib,
				IndDoacao:  donationTag(req.Donation),
				GIBSCBS: GIBSCBS{
					VBC:    vbc,
					GIBSUF: IBSUF{PIBSUF: percent(res.RateIBS), VIBSUF: vIBS},
					VIBS:   vIBS,
					GCBS:   CBS{PCBS: percent(res.RateCBS), VCBS: vCBS},
				},
			},
		},
		Totais: Totais{
			VBCIBSCBS: vbc,
			VIBS:      vIBS,
			VCBS:      vCBS,
			VIS:       vIS,
			VNFTot:    docTotal(vbc, vIBS, vCBS, vIS),
		},
		TotalDebit: totalDebit,
	}

	if req.GovernmentPurchase {
		p.Ide.GCompraGov = &CompraGov{
			TPEnteGov: govEntityType,
			PRedutor:  govReducer,
			TPOperGov: govOperationType,
		}
	}
	for _, ref := range req.PrepaymentRefs {
		p.Ide.Prepayments = append(p.Ide.Prepayments, Prepayment{RefNFe: ref})
	}
	if req.ReferencedDocKey != "" {
		item := req.ReferencedDocItem
		if item == 0 {
			item = 1
		}
		p.Produto.ReferencedDoc = &ReferencedDoc{
			ChaveAcesso: req.ReferencedDocKey,
			NItem:       item,
		}
	}
	if res.SelectiveTax {
		p.Imposto.IS = &IS{
			CSTIS:        selectiveCST,
			CClassTribIS: selectiveCClassTrib,
			VBCIS:        vbc,
			PIS:          selectiveRate,
			VIS:          vIS,
		}
	}

	return p
}

// DeliveryForecast returns the emission date plus the forecast window,
// for callers that render the date separately.
func DeliveryForecast(emission time.Time) time.Time {
	return emission.AddDate(0, 0, deliveryForecastDays)
}

func debitType(totalDebit float64, zfmZero bool) string {
	if totalDebit == 0 || zfmZero {
		return "tdNenhum"
	}
	return "tdIntegral"
}

func donationTag(donation bool) string {
	if donation {
		return "tieSim"
	}
	return "tieNao"
}

func percent(rate float64) *float64 {
	v := rate * 100.0
	return &v
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

func sumValues(vs ...*float64) float64 {
	total := 0.0
	for _, v := range vs {
		if v != nil {
			total += *v
		}
	}
	return total
}

func docTotal(vs ...*float64) *float64 {
	if vs[0] == nil {
		return nil
	}
	total := sumValues(vs...)
	return round2(total)
}
