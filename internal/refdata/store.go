package refdata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/openfiscal/cclastrib/internal/common"
	"github.com/openfiscal/cclastrib/internal/model"
)

// Table file names inside the data directory.
const (
	fileRules         = "cclastrib.csv"
	fileNCMMaster     = "ncm_master.csv"
	fileNCMExceptions = "ncm_excecoes.csv"
	fileNCMCatalog    = "ncm_catalogo.csv"
	fileCFOP          = "cfop_descricoes.csv"
	fileTransitionIBS = "transicao_ibs.csv"
	fileTransitionCBS = "transicao_cbs.csv"
	fileTreatments    = "cst_ibs_cbs_map.csv"
	fileZFMBenefits   = "zfm_beneficios.csv"
)

// Snapshot is one fully-built, immutable set of reference tables. Row order
// matches the source files; rule selection depends on it for tie-breaking.
type Snapshot struct {
	LoadedAt time.Time

	Rules         []model.ClassificationRule
	NCMMaster     []model.NCMCategoryRow
	NCMExceptions []model.NCMCategoryRow
	NCMCatalog    []model.CatalogEntry
	CFOP          []model.CFOPDescriptor
	TransitionIBS []model.TransitionRow
	TransitionCBS []model.TransitionRow
	Treatments    []model.TreatmentMapping
	ZFMBenefits   []string
}

// Store owns the active snapshot pointer. Reload builds a complete new
// snapshot before swapping it in, so in-flight requests keep reading the
// snapshot they started with.
type Store struct {
	dir  string
	snap atomic.Pointer[Snapshot]
}

// Open loads the reference tables from dir. A load failure here is fatal:
// without an initial snapshot there is nothing to serve.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir}
	snap, err := load(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSnapshotLoad, err)
	}
	s.snap.Store(snap)
	return s, nil
}

// Dir returns the data directory the store reads from.
func (s *Store) Dir() string { return s.dir }

// Snapshot returns the active snapshot. Callers hold it for the duration of
// one request and must treat it as read-only.
func (s *Store) Snapshot() *Snapshot { return s.snap.Load() }

// Reload rebuilds the snapshot from disk and swaps it in. On failure the
// previous snapshot stays in service and the error is returned to the
// operator.
func (s *Store) Reload() error {
	snap, err := load(s.dir)
	if err != nil {
		return fmt.Errorf("reload failed, keeping previous snapshot: %w", err)
	}
	s.snap.Store(snap)
	return nil
}

func load(dir string) (*Snapshot, error) {
	snap := &Snapshot{LoadedAt: time.Now()}

	rules, err := readTable(filepath.Join(dir, fileRules))
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		snap.Rules = append(snap.Rules, model.ClassificationRule{
			Code:        r.get("codigo"),
			Description: r.get("descricao"),
			LegalBasis:  r.get("fundamento_legal"),
			Regime:      model.ParseFieldPattern(r.get("regime", "regime_fiscal", "regime_emitente")),
			CFOP:        model.ParseFieldPattern(r.get("cfop")),
			UFOrigin:    model.ParseFieldPattern(r.get("uf_emitente", "uf_origem")),
			UFDest:      model.ParseFieldPattern(r.get("uf_destinatario", "uf_destino")),
			CSTICMS:     model.ParseFieldPattern(r.get("cst_icms")),
			ZFMOnly:     r.get("beneficio_zfm") == "S",
		})
	}

	if snap.NCMMaster, err = loadCategories(filepath.Join(dir, fileNCMMaster)); err != nil {
		return nil, err
	}
	if snap.NCMExceptions, err = loadCategories(filepath.Join(dir, fileNCMExceptions)); err != nil {
		return nil, err
	}

	catalog, err := readTable(filepath.Join(dir, fileNCMCatalog))
	if err != nil {
		return nil, err
	}
	for _, r := range catalog {
		snap.NCMCatalog = append(snap.NCMCatalog, model.CatalogEntry{
			NCM:         r.get("ncm"),
			Description: r.get("descricao"),
		})
	}

	cfop, err := readTable(filepath.Join(dir, fileCFOP))
	if err != nil {
		return nil, err
	}
	for _, r := range cfop {
		snap.CFOP = append(snap.CFOP, model.CFOPDescriptor{
			Code:        r.get("cfop", "codigo"),
			Description: r.get("descricao"),
		})
	}

	if snap.TransitionIBS, err = loadTransition(filepath.Join(dir, fileTransitionIBS), "percentual_ibs"); err != nil {
		return nil, err
	}
	if snap.TransitionCBS, err = loadTransition(filepath.Join(dir, fileTransitionCBS), "percentual_cbs"); err != nil {
		return nil, err
	}

	treatments, err := readTable(filepath.Join(dir, fileTreatments))
	if err != nil {
		return nil, err
	}
	for _, r := range treatments {
		snap.Treatments = append(snap.Treatments, model.TreatmentMapping{
			ClassificationCode: r.get("cclastrib_codigo"),
			CST:                r.get("cst_ibs_cbs"),
			CClassTrib:         r.get("cclass_trib"),
			Description:        r.get("descricao"),
		})
	}

	benefits, err := readTable(filepath.Join(dir, fileZFMBenefits))
	if err != nil {
		return nil, err
	}
	for _, r := range benefits {
		if ncm := r.get("ncm"); ncm != "" {
			snap.ZFMBenefits = append(snap.ZFMBenefits, ncm)
		}
	}

	return snap, nil
}

func loadCategories(path string) ([]model.NCMCategoryRow, error) {
	records, err := readTable(path)
	if err != nil {
		return nil, err
	}
	rows := make([]model.NCMCategoryRow, 0, len(records))
	for _, r := range records {
		row := model.NCMCategoryRow{
			NCM:        r.get("ncm"),
			Category:   r.get("categoria"),
			LegalBasis: r.get("fundamento_legal"),
		}
		if t, ok := parseDate(r.get("vigencia_inicio")); ok {
			row.ValidFrom = &t
		}
		if t, ok := parseDate(r.get("vigencia_fim")); ok {
			row.ValidTo = &t
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func loadTransition(path, field string) ([]model.TransitionRow, error) {
	records, err := readTable(path)
	if err != nil {
		return nil, err
	}
	rows := make([]model.TransitionRow, 0, len(records))
	for _, r := range records {
		year, err := strconv.Atoi(r.get("ano"))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q in %s: %w", r.get("ano"), filepath.Base(path), err)
		}
		pct, ok := parseDecimal(r.get(field))
		if !ok {
			return nil, fmt.Errorf("invalid %s %q for year %d in %s", field, r.get(field), year, filepath.Base(path))
		}
		rows = append(rows, model.TransitionRow{Year: year, Percent: pct})
	}
	return rows, nil
}
