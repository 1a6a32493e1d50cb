// Package model defines the core domain models used throughout the application.
package model

import "time"

// TriState is a three-valued flag for facts that may be unknowable from the
// input data, such as whether a CFOP denotes own production.
type TriState int

// TriState values. The zero value is Unknown so that an unresolved signal
// never reads as a definite "no".
const (
	TriUnknown TriState = iota
	TriFalse
	TriTrue
)

// Known reports whether the value carries a definite answer.
func (t TriState) Known() bool { return t != TriUnknown }

// True reports whether the value is definitely true.
func (t TriState) True() bool { return t == TriTrue }

// TriFromBool converts a known boolean into a TriState.
func TriFromBool(b bool) TriState {
	if b {
		return TriTrue
	}
	return TriFalse
}

func (t TriState) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// ClassificationRequest carries every transaction attribute the engine
// consumes. It is built once by the transport or CLI layer and never
// mutated afterwards.
type ClassificationRequest struct {
	// EmissionDate drives every temporal lookup (validity windows,
	// transition year, selective tax threshold). The caller derives it
	// from the emission year when only the year is supplied.
	EmissionDate time.Time

	Regime   string // issuer fiscal regime (SN, RPA, ...)
	CFOP     string // operation type code, e.g. 5101
	UFOrigin string // issuer state
	UFDest   string // recipient state
	CSTICMS  string // legacy tax situation code
	NCM      string // product code, dots allowed

	// ItemValue, when present, enables the fiscal-document payload
	// derivation (bases and amounts).
	ItemValue *float64

	MunicipalityFGIBS *int
	MunicipalityDest  string

	GovernmentPurchase bool
	Donation           bool

	// Zona Franca de Manaus context.
	ZFMProduced    bool
	IssuerInZFM    bool
	RecipientInZFM bool

	// SUFRAMA registry identifiers and their explicit active status.
	IssuerSUFRAMA          string
	IssuerSUFRAMAActive    TriState
	RecipientSUFRAMA       string
	RecipientSUFRAMAActive TriState

	PrepaymentRefs    []string
	ReferencedDocKey  string
	ReferencedDocItem int
}

// EmissionYear returns the tax year the request is evaluated under.
func (r *ClassificationRequest) EmissionYear() int {
	return r.EmissionDate.Year()
}
