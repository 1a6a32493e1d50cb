package rules

import (
	"time"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/refdata"
)

// ProductResolution is the outcome of an NCM category lookup.
type ProductResolution struct {
	// Row is nil when neither the exception nor the master table has a
	// row in force for the code.
	Row *model.NCMCategoryRow

	// FromException marks a hit in the exception table, which always
	// shadows the master table.
	FromException bool

	// CatalogConfirmed is set when the official catalog lists the code
	// even though no category row matched. The catalog never supplies a
	// category; its description feeds the justification trail only.
	CatalogConfirmed   bool
	CatalogDescription string
}

// Category returns the resolved category, or "" when no row matched.
func (p ProductResolution) Category() string {
	if p.Row == nil {
		return ""
	}
	return p.Row.Category
}

// ProductResolver finds the tax category of a product code at a given date.
type ProductResolver struct{}

// Resolve checks the exception table first and falls through to the master
// table. Matching compares the first eight normalized digits; within a
// table the first matching row in force wins, preserving file order.
func (ProductResolver) Resolve(snap *refdata.Snapshot, ncm string, on time.Time) ProductResolution {
	prefix := NCMPrefix(ncm)

	if row := scanCategories(snap.NCMExceptions, prefix, on); row != nil {
		return ProductResolution{Row: row, FromException: true}
	}
	if row := scanCategories(snap.NCMMaster, prefix, on); row != nil {
		return ProductResolution{Row: row}
	}

	res := ProductResolution{}
	for _, e := range snap.NCMCatalog {
		if NCMPrefix(e.NCM) == prefix {
			res.CatalogConfirmed = true
			res.CatalogDescription = e.Description
			break
		}
	}
	return res
}

func scanCategories(rows []model.NCMCategoryRow, prefix string, on time.Time) *model.NCMCategoryRow {
	for i := range rows {
		if rows[i].NCM == "" {
			continue
		}
		if NCMPrefix(rows[i].NCM) != prefix {
			continue
		}
		if !rows[i].InForce(on) {
			continue
		}
		return &rows[i]
	}
	return nil
}
