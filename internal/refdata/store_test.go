package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/cclastrib/internal/common"
)

// writeFixtureDir lays down a minimal but complete set of annex tables.
func writeFixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"cclastrib.csv": "codigo;descricao;fundamento_legal;regime;cfop;uf_emitente;uf_destinatario;cst_icms;beneficio_zfm\n" +
			"VENDA-INTERESTADUAL;Venda interestadual;LC 214/2025;*;*;*;!;*;N\n" +
			"ZFM-ELETRONICOS;Eletrônicos ZFM;LC 214/2025;*;6101;AM;;000;S\n",
		"ncm_master.csv":   "ncm;categoria;fundamento_legal;vigencia_inicio;vigencia_fim\n22030000;BEBIDAS;LC 214/2025;;\n",
		"ncm_excecoes.csv": "ncm;categoria;fundamento_legal;vigencia_inicio;vigencia_fim\n22030000;NOCIVO;Anexo X;2026-01-01;31/12/2026\n",
		"ncm_catalogo.csv": "ncm;descricao\n2203.00.00;Cervejas de malte\n",
		"cfop_descricoes.csv": "cfop;descricao\n" +
			"5101;Venda de produção do estabelecimento\n" +
			"6101;Venda de produção do estabelecimento\n",
		"transicao_ibs.csv":   "ano;percentual_ibs\n2026;0,009\n2027;0,01\n",
		"transicao_cbs.csv":   "ano;percentual_cbs\n2026;0,087\n2027;0,088\n",
		"cst_ibs_cbs_map.csv": "cclastrib_codigo;cst_ibs_cbs;cclass_trib;descricao\nVENDA-INTERESTADUAL;000;000001;Tributação integral\n",
		"zfm_beneficios.csv":  "ncm;descricao\n85285200;Monitores\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestOpen(t *testing.T) {
	dir := writeFixtureDir(t)
	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.False(t, snap.LoadedAt.IsZero())

	require.Len(t, snap.Rules, 2)
	first := snap.Rules[0]
	assert.Equal(t, "VENDA-INTERESTADUAL", first.Code)
	assert.True(t, first.Regime.Wildcard())
	assert.True(t, first.UFDest.MustDiffer())
	assert.False(t, first.ZFMOnly)

	second := snap.Rules[1]
	assert.True(t, second.ZFMOnly)
	assert.True(t, second.UFDest.Wildcard(), "blank cell is a wildcard")
	assert.True(t, second.CFOP.Matches("6101"))

	require.Len(t, snap.NCMMaster, 1)
	assert.Equal(t, "BEBIDAS", snap.NCMMaster[0].Category)
	assert.Nil(t, snap.NCMMaster[0].ValidFrom)

	require.Len(t, snap.NCMExceptions, 1)
	exc := snap.NCMExceptions[0]
	assert.Equal(t, "NOCIVO", exc.Category)
	require.NotNil(t, exc.ValidFrom)
	require.NotNil(t, exc.ValidTo)
	assert.Equal(t, 2026, exc.ValidFrom.Year())
	assert.Equal(t, 2026, exc.ValidTo.Year())

	require.Len(t, snap.TransitionIBS, 2)
	assert.Equal(t, 2026, snap.TransitionIBS[0].Year)
	assert.InDelta(t, 0.009, snap.TransitionIBS[0].Percent, 1e-9)
	require.Len(t, snap.TransitionCBS, 2)
	assert.InDelta(t, 0.088, snap.TransitionCBS[1].Percent, 1e-9)

	require.Len(t, snap.Treatments, 1)
	assert.Equal(t, "000001", snap.Treatments[0].CClassTrib)

	assert.Equal(t, []string{"85285200"}, snap.ZFMBenefits)
	assert.Len(t, snap.NCMCatalog, 1)
	assert.Len(t, snap.CFOP, 2)
}

func TestOpen_MissingTable(t *testing.T) {
	dir := writeFixtureDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "transicao_cbs.csv")))

	_, err := Open(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSnapshotLoad)
}

func TestStore_Reload(t *testing.T) {
	dir := writeFixtureDir(t)
	store, err := Open(dir)
	require.NoError(t, err)
	old := store.Snapshot()

	t.Run("successful reload swaps the snapshot", func(t *testing.T) {
		extra := "ncm;descricao\n85285200;Monitores\n84713012;Unidades de processamento\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "zfm_beneficios.csv"), []byte(extra), 0o644))

		require.NoError(t, store.Reload())
		snap := store.Snapshot()
		assert.NotSame(t, old, snap)
		assert.Len(t, snap.ZFMBenefits, 2)

		// The snapshot handed out before the reload is untouched.
		assert.Len(t, old.ZFMBenefits, 1)
		old = snap
	})

	t.Run("failed reload keeps the previous snapshot", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "cclastrib.csv")))

		err := store.Reload()
		require.Error(t, err)
		assert.ErrorContains(t, err, "keeping previous snapshot")
		assert.Same(t, old, store.Snapshot())
	})

	t.Run("invalid transition year fails the load", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cclastrib.csv"),
			[]byte("codigo;descricao\nX;Y\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "transicao_ibs.csv"),
			[]byte("ano;percentual_ibs\nvinte;0,009\n"), 0o644))

		err := store.Reload()
		require.Error(t, err)
		assert.Same(t, old, store.Snapshot())
	})
}
