// Package server exposes the classification agent over HTTP.
package server

import (
	"strings"
	"time"

	"github.com/openfiscal/cclastrib/internal/agent"
	"github.com/openfiscal/cclastrib/internal/model"
)

// classifyRequest is the inbound JSON shape for one item. Yes/no context
// flags arrive as "S"/"N" strings, matching what the document emitters
// send; they are parsed into derived booleans before the engine sees them.
type classifyRequest struct {
	AnoEmissao           int    `json:"ano_emissao"`
	RegimeFiscalEmitente string `json:"regime_fiscal_emitente" binding:"required"`
	CFOP                 string `json:"cfop" binding:"required"`
	UFEmitente           string `json:"uf_emitente" binding:"required,len=2"`
	UFDestinatario       string `json:"uf_destinatario" binding:"required,len=2"`
	CSTICMS              string `json:"cst_icms" binding:"required"`
	NCM                  string `json:"ncm" binding:"required"`

	ValorItem                *float64 `json:"valor_item"`
	CodMunicipioFGIBS        *int     `json:"cod_municipio_fg_ibs"`
	CodMunicipioDestinatario string   `json:"cod_municipio_destinatario"`

	CompraGoverno bool `json:"compra_governo"`
	IndDoacao     bool `json:"ind_doacao"`

	ProduzidoZFM    string `json:"produzido_zfm"`
	EmitenteZFM     string `json:"emitente_zona_franca_manaus"`
	DestinatarioZFM string `json:"destinatario_zona_franca_manaus"`

	CadastroSuframaEmitente          string  `json:"cadastro_suframa_emitente"`
	CadastroSuframaEmitenteAtivo     *string `json:"cadastro_suframa_emitente_ativo"`
	CadastroSuframaDestinatario      string  `json:"cadastro_suframa_destinatario"`
	CadastroSuframaDestinatarioAtivo *string `json:"cadastro_suframa_destinatario_ativo"`

	RefsPagAntecipado    []string `json:"refs_pag_antecipado"`
	DFeReferenciadoChave string   `json:"dfe_referenciado_chave"`
	DFeReferenciadoNItem int      `json:"dfe_referenciado_nitem"`
}

func (r *classifyRequest) toModel() *model.ClassificationRequest {
	return &model.ClassificationRequest{
		EmissionDate:           emissionDate(r.AnoEmissao),
		Regime:                 r.RegimeFiscalEmitente,
		CFOP:                   r.CFOP,
		UFOrigin:               r.UFEmitente,
		UFDest:                 r.UFDestinatario,
		CSTICMS:                r.CSTICMS,
		NCM:                    r.NCM,
		ItemValue:              r.ValorItem,
		MunicipalityFGIBS:      r.CodMunicipioFGIBS,
		MunicipalityDest:       r.CodMunicipioDestinatario,
		GovernmentPurchase:     r.CompraGoverno,
		Donation:               r.IndDoacao,
		ZFMProduced:            parseSN(r.ProduzidoZFM) == model.TriTrue,
		IssuerInZFM:            parseSN(r.EmitenteZFM) == model.TriTrue,
		RecipientInZFM:         parseSN(r.DestinatarioZFM) == model.TriTrue,
		IssuerSUFRAMA:          strings.TrimSpace(r.CadastroSuframaEmitente),
		IssuerSUFRAMAActive:    parseSNPtr(r.CadastroSuframaEmitenteAtivo),
		RecipientSUFRAMA:       strings.TrimSpace(r.CadastroSuframaDestinatario),
		RecipientSUFRAMAActive: parseSNPtr(r.CadastroSuframaDestinatarioAtivo),
		PrepaymentRefs:         r.RefsPagAntecipado,
		ReferencedDocKey:       strings.TrimSpace(r.DFeReferenciadoChave),
		ReferencedDocItem:      r.DFeReferenciadoNItem,
	}
}

// batchItem carries the fields that vary per item inside a batch.
type batchItem struct {
	CFOP         string   `json:"cfop" binding:"required"`
	CSTICMS      string   `json:"cst_icms" binding:"required"`
	NCM          string   `json:"ncm" binding:"required"`
	ProduzidoZFM string   `json:"produzido_zfm"`
	ValorItem    *float64 `json:"valor_item"`
}

// batchRequest classifies several items under one shared fiscal context.
type batchRequest struct {
	AnoEmissao           int    `json:"ano_emissao"`
	RegimeFiscalEmitente string `json:"regime_fiscal_emitente" binding:"required"`
	UFEmitente           string `json:"uf_emitente" binding:"required,len=2"`
	UFDestinatario       string `json:"uf_destinatario" binding:"required,len=2"`

	CodMunicipioFGIBS        *int   `json:"cod_municipio_fg_ibs"`
	CodMunicipioDestinatario string `json:"cod_municipio_destinatario"`

	CompraGoverno bool `json:"compra_governo"`
	IndDoacao     bool `json:"ind_doacao"`

	EmitenteZFM     string `json:"emitente_zona_franca_manaus"`
	DestinatarioZFM string `json:"destinatario_zona_franca_manaus"`

	CadastroSuframaEmitente          string  `json:"cadastro_suframa_emitente"`
	CadastroSuframaEmitenteAtivo     *string `json:"cadastro_suframa_emitente_ativo"`
	CadastroSuframaDestinatario      string  `json:"cadastro_suframa_destinatario"`
	CadastroSuframaDestinatarioAtivo *string `json:"cadastro_suframa_destinatario_ativo"`

	RefsPagAntecipado []string `json:"refs_pag_antecipado"`

	Itens []batchItem `json:"itens" binding:"required,min=1,dive"`
}

func (r *batchRequest) toAgent() *agent.BatchRequest {
	batch := &agent.BatchRequest{
		Shared: model.ClassificationRequest{
			EmissionDate:           emissionDate(r.AnoEmissao),
			Regime:                 r.RegimeFiscalEmitente,
			UFOrigin:               r.UFEmitente,
			UFDest:                 r.UFDestinatario,
			MunicipalityFGIBS:      r.CodMunicipioFGIBS,
			MunicipalityDest:       r.CodMunicipioDestinatario,
			GovernmentPurchase:     r.CompraGoverno,
			Donation:               r.IndDoacao,
			IssuerInZFM:            parseSN(r.EmitenteZFM) == model.TriTrue,
			RecipientInZFM:         parseSN(r.DestinatarioZFM) == model.TriTrue,
			IssuerSUFRAMA:          strings.TrimSpace(r.CadastroSuframaEmitente),
			IssuerSUFRAMAActive:    parseSNPtr(r.CadastroSuframaEmitenteAtivo),
			RecipientSUFRAMA:       strings.TrimSpace(r.CadastroSuframaDestinatario),
			RecipientSUFRAMAActive: parseSNPtr(r.CadastroSuframaDestinatarioAtivo),
			PrepaymentRefs:         r.RefsPagAntecipado,
		},
	}
	for _, it := range r.Itens {
		batch.Items = append(batch.Items, agent.BatchItem{
			CFOP:        it.CFOP,
			CSTICMS:     it.CSTICMS,
			NCM:         it.NCM,
			ZFMProduced: parseSN(it.ProduzidoZFM) == model.TriTrue,
			ItemValue:   it.ValorItem,
		})
	}
	return batch
}

// emissionDate anchors the request at January 1st of the declared year, or
// today when no year was sent.
func emissionDate(year int) time.Time {
	if year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Now()
}

func parseSN(v string) model.TriState {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "S":
		return model.TriTrue
	case "":
		return model.TriUnknown
	default:
		return model.TriFalse
	}
}

func parseSNPtr(v *string) model.TriState {
	if v == nil {
		return model.TriUnknown
	}
	if strings.ToUpper(strings.TrimSpace(*v)) == "S" {
		return model.TriTrue
	}
	return model.TriFalse
}
