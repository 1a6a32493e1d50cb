package model

import "strings"

// patternKind discriminates the three ways a rule field can match.
type patternKind int

const (
	patternAny patternKind = iota
	patternDiffers
	patternExact
)

// FieldPattern is one matchable field of a classification rule. The reference
// tables encode wildcards as "*" or an empty cell and the "must differ"
// marker as "!"; parsing them into a tagged value keeps sentinel-string
// comparisons out of the matcher.
type FieldPattern struct {
	value string
	kind  patternKind
}

// ParseFieldPattern interprets a raw table cell.
func ParseFieldPattern(raw string) FieldPattern {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch v {
	case "", "*":
		return FieldPattern{kind: patternAny}
	case "!":
		return FieldPattern{kind: patternDiffers}
	default:
		return FieldPattern{kind: patternExact, value: v}
	}
}

// ExactPattern builds a pattern matching exactly v. Test helper for
// synthetic rule tables.
func ExactPattern(v string) FieldPattern {
	return FieldPattern{kind: patternExact, value: strings.ToUpper(strings.TrimSpace(v))}
}

// Wildcard reports whether the pattern matches any value.
func (p FieldPattern) Wildcard() bool { return p.kind == patternAny }

// MustDiffer reports whether the pattern carries the "must differ" marker.
func (p FieldPattern) MustDiffer() bool { return p.kind == patternDiffers }

// Matches reports whether a normalized request value satisfies the pattern.
// Must-differ patterns are not decidable from one value and always return
// false here; the matcher resolves them against the paired field.
func (p FieldPattern) Matches(v string) bool {
	switch p.kind {
	case patternAny:
		return true
	case patternExact:
		return p.value == v
	default:
		return false
	}
}

// Specific reports whether the pattern constrains the request at all.
// Both exact and must-differ patterns count toward rule specificity.
func (p FieldPattern) Specific() bool { return p.kind != patternAny }

func (p FieldPattern) String() string {
	switch p.kind {
	case patternAny:
		return "*"
	case patternDiffers:
		return "!"
	default:
		return p.value
	}
}

// ClassificationRule is one row of the operational classification table.
type ClassificationRule struct {
	Code        string
	Description string
	LegalBasis  string

	Regime   FieldPattern
	CFOP     FieldPattern
	UFOrigin FieldPattern
	UFDest   FieldPattern
	CSTICMS  FieldPattern

	// ZFMOnly rules apply only when the request is in a zone-benefit
	// context and outrank equally specific general rules there.
	ZFMOnly bool
}

// Specificity counts the constrained fields of the rule. More specific
// rules win over generic ones during selection.
func (r ClassificationRule) Specificity() int {
	n := 0
	for _, p := range []FieldPattern{r.Regime, r.CFOP, r.UFOrigin, r.UFDest, r.CSTICMS} {
		if p.Specific() {
			n++
		}
	}
	return n
}
