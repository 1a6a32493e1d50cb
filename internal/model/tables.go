package model

import "time"

// TransitionRow is one year of a tax's phase-in schedule. Percent is
// already a decimal fraction (0.009 means 0.9%).
type TransitionRow struct {
	Year    int
	Percent float64
}

// NCMCategoryRow maps an NCM prefix to a tax category, optionally bounded
// by an inclusive validity window. Rows come from the master table or the
// exception table; exception rows take precedence.
type NCMCategoryRow struct {
	NCM        string
	Category   string
	LegalBasis string
	ValidFrom  *time.Time
	ValidTo    *time.Time
}

// InForce reports whether the row's validity window covers the given date.
// An absent bound is unbounded on that side.
func (r NCMCategoryRow) InForce(on time.Time) bool {
	if r.ValidFrom != nil && on.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && on.After(*r.ValidTo) {
		return false
	}
	return true
}

// CFOPDescriptor pairs an operation type code with its legal wording.
// The description feeds keyword inference only, never exact semantics.
type CFOPDescriptor struct {
	Code        string
	Description string
}

// TreatmentMapping resolves a classification code to its CST / cClassTrib
// pair for the new taxes.
type TreatmentMapping struct {
	ClassificationCode string
	CST                string
	CClassTrib         string
	Description        string
}

// CatalogEntry is one row of the official NCM catalog. A catalog hit
// confirms the code exists but never implies a category.
type CatalogEntry struct {
	NCM         string
	Description string
}
