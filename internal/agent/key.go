package agent

import (
	"strings"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/rules"
)

// CacheKey canonicalizes every semantically distinct input of a request
// into one order-stable composite, so equivalent requests always collide
// and inequivalent ones never do. Derived flags are encoded, not the raw
// optional strings they came from. Item value is deliberately excluded:
// it never affects the classification decision, only the derived amounts,
// so requests differing only in value share one cached response.
func CacheKey(req *model.ClassificationRequest) string {
	parts := []string{
		req.Regime,
		req.CFOP,
		req.UFOrigin,
		req.UFDest,
		req.CSTICMS,
		rules.NCMPrefix(req.NCM),
		req.EmissionDate.Format("2006-01-02"),
		flag(req.GovernmentPurchase, "GOV", "NOGOV"),
		flag(req.Donation, "DOA", "NODOA"),
		flag(req.ZFMProduced, "ZFM", "NOZFM"),
		flag(req.IssuerInZFM, "EZFM", "NOEZFM"),
		flag(req.RecipientInZFM, "DZFM", "NODZFM"),
		registryPart("SUFE", req.IssuerSUFRAMA, req.IssuerSUFRAMAActive),
		registryPart("SUFD", req.RecipientSUFRAMA, req.RecipientSUFRAMAActive),
	}
	for i, p := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

func flag(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func registryPart(prefix, id string, active model.TriState) string {
	present := "NP"
	if strings.TrimSpace(id) != "" {
		present = "P"
	}
	status := "NA"
	switch active {
	case model.TriTrue:
		status = "AT"
	case model.TriFalse:
		status = "IN"
	}
	return prefix + "_" + present + "_" + status
}
