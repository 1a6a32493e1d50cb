package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openfiscal/cclastrib/internal/model"
)

func keyRequest() *model.ClassificationRequest {
	return &model.ClassificationRequest{
		EmissionDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Regime:       "RPA",
		CFOP:         "5101",
		UFOrigin:     "SP",
		UFDest:       "MG",
		CSTICMS:      "000",
		NCM:          "2203.00.00",
	}
}

func TestCacheKey(t *testing.T) {
	t.Run("equivalent requests collide", func(t *testing.T) {
		a := keyRequest()
		b := keyRequest()
		b.Regime = " rpa "
		b.UFOrigin = "sp"
		b.NCM = "22030000"
		assert.Equal(t, CacheKey(a), CacheKey(b))
	})

	t.Run("item value does not affect the key", func(t *testing.T) {
		a := keyRequest()
		b := keyRequest()
		v := 1500.0
		b.ItemValue = &v
		assert.Equal(t, CacheKey(a), CacheKey(b))
	})

	t.Run("each flag flip changes the key", func(t *testing.T) {
		base := CacheKey(keyRequest())
		muts := map[string]func(*model.ClassificationRequest){
			"government purchase": func(r *model.ClassificationRequest) { r.GovernmentPurchase = true },
			"donation":            func(r *model.ClassificationRequest) { r.Donation = true },
			"zone produced":       func(r *model.ClassificationRequest) { r.ZFMProduced = true },
			"issuer in zone":      func(r *model.ClassificationRequest) { r.IssuerInZFM = true },
			"recipient in zone":   func(r *model.ClassificationRequest) { r.RecipientInZFM = true },
			"emission date":       func(r *model.ClassificationRequest) { r.EmissionDate = r.EmissionDate.AddDate(1, 0, 0) },
			"registry present":    func(r *model.ClassificationRequest) { r.IssuerSUFRAMA = "12345678" },
			"registry inactive":   func(r *model.ClassificationRequest) { r.RecipientSUFRAMAActive = model.TriFalse },
		}
		for name, mut := range muts {
			req := keyRequest()
			mut(req)
			assert.NotEqual(t, base, CacheKey(req), name)
		}
	})

	t.Run("registry status is three-valued", func(t *testing.T) {
		seen := map[string]bool{}
		for _, s := range []model.TriState{model.TriUnknown, model.TriFalse, model.TriTrue} {
			req := keyRequest()
			req.IssuerSUFRAMA = "12345678"
			req.IssuerSUFRAMAActive = s
			seen[CacheKey(req)] = true
		}
		assert.Len(t, seen, 3)
	})
}
