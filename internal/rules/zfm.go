package rules

import (
	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

// Classification substituted when the ZFM benefit applies but the winning
// rule is not itself zone-flagged.
const (
	ZFMOverrideCode        = "ZFM-PRODUCAO-PROPRIA"
	ZFMOverrideDescription = "Venda de produção própria com benefício da Zona Franca de Manaus"

	// Legal basis cited in the justification trail for the zero-rate.
	ZFMLegalBasis = "LC 214/2025, arts. 442 a 447"
)

// ZFMAssessment is the Zona Franca de Manaus eligibility verdict for one
// request.
type ZFMAssessment struct {
	// Eligible means all four conditions hold: issuer resides in the
	// zone, the issuer's SUFRAMA registry is explicitly active, the item
	// is zone-produced, and the NCM is on the benefit list.
	Eligible bool

	// NCMListed isolates the benefit-list condition so the engine can
	// tell "not eligible, unlisted product" apart from the other
	// failure modes.
	NCMListed bool
}

// ZFMEvaluator determines export-processing-zone benefit eligibility.
type ZFMEvaluator struct{}

// Assess checks the four eligibility conditions. A merely present but not
// explicitly active registry status does not qualify.
func (ZFMEvaluator) Assess(snap *refdata.Snapshot, req *model.ClassificationRequest) ZFMAssessment {
	a := ZFMAssessment{NCMListed: ncmListed(snap, req.NCM)}
	a.Eligible = req.IssuerInZFM &&
		req.IssuerSUFRAMAActive == model.TriTrue &&
		req.ZFMProduced &&
		a.NCMListed
	return a
}

func ncmListed(snap *refdata.Snapshot, ncm string) bool {
	prefix := NCMPrefix(ncm)
	if prefix == "" {
		return false
	}
	for _, b := range snap.ZFMBenefits {
		if NCMPrefix(b) == prefix {
			return true
		}
	}
	return false
}
