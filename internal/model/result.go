package model

// Justification is one entry of the ordered trail explaining how a result
// was derived. Entries are append-only; their order mirrors the order the
// sub-resolutions ran in.
type Justification struct {
	Rule   string `json:"regra"`
	Reason string `json:"motivo"`
	Source string `json:"fonte,omitempty"`
}

// ClassificationResult is the engine's answer for a single line item.
// It is produced fresh per request and never mutated after assembly.
type ClassificationResult struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`

	RateIBS float64 `json:"aliquota_ibs"`
	RateCBS float64 `json:"aliquota_cbs"`

	Category   string `json:"categoria,omitempty"`
	CSTIBSCBS  string `json:"cst_ibs_cbs"`
	CClassTrib string `json:"cclass_trib"`

	// SelectiveTax reports whether the IS (selective tax on harmful
	// goods) applies to this item.
	SelectiveTax bool `json:"aplicar_is"`

	ZFMBenefitApplied  bool     `json:"beneficio_zfm_ibs_zero"`
	NCMInBenefitList   bool     `json:"ncm_beneficiado_zfm"`
	OwnProduction      TriState `json:"-"`
	IndustrializedSale TriState `json:"-"`

	Confidence float64 `json:"confianca"`

	Alerts         []string        `json:"alertas"`
	PendingItems   []string        `json:"pendencias"`
	Justifications []Justification `json:"fundamentos"`
}

// AddJustification appends an entry to the trail.
func (r *ClassificationResult) AddJustification(rule, reason, source string) {
	r.Justifications = append(r.Justifications, Justification{
		Rule:   rule,
		Reason: reason,
		Source: source,
	})
}

// AddAlert records an operator-visible warning that did not block computation.
func (r *ClassificationResult) AddAlert(msg string) {
	r.Alerts = append(r.Alerts, msg)
}

// AddPending records a data gap the operator should resolve.
func (r *ClassificationResult) AddPending(msg string) {
	r.PendingItems = append(r.PendingItems, msg)
}
