package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfiscal/cclastrib/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "audits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func auditRecord(id string, decidedAt time.Time) *model.AuditRecord {
	return &model.AuditRecord{
		ID:           id,
		CacheKey:     "RPA|5102|SP|MG|000|22030000",
		NCM:          "22030000",
		CFOP:         "5102",
		Code:         "VENDA-PADRAO",
		RateIBS:      0.009,
		RateCBS:      0.087,
		Confidence:   1.0,
		Alerts:       []string{"alerta"},
		PendingItems: []string{},
		DecidedAt:    decidedAt,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		assert.Error(t, err)
	})

	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "audits.db")
		s, err := NewSQLiteStorage(path)
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSaveAudit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAudit(ctx, auditRecord("a-1", time.Now())))

	t.Run("nil record", func(t *testing.T) {
		assert.Error(t, s.SaveAudit(ctx, nil))
	})

	t.Run("missing id", func(t *testing.T) {
		rec := auditRecord("", time.Now())
		assert.Error(t, s.SaveAudit(ctx, rec))
	})

	t.Run("duplicate id", func(t *testing.T) {
		assert.Error(t, s.SaveAudit(ctx, auditRecord("a-1", time.Now())))
	})
}

func TestRecentAudits(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a-1", "a-2", "a-3"} {
		rec := auditRecord(id, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.SaveAudit(ctx, rec))
	}

	records, err := s.RecentAudits(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-3", records[0].ID)
	assert.Equal(t, "a-2", records[1].ID)

	got := records[0]
	assert.Equal(t, "VENDA-PADRAO", got.Code)
	assert.InDelta(t, 0.009, got.RateIBS, 1e-9)
	assert.Equal(t, []string{"alerta"}, got.Alerts)
	assert.Empty(t, got.PendingItems)

	t.Run("default limit", func(t *testing.T) {
		records, err := s.RecentAudits(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("empty table", func(t *testing.T) {
		empty := newTestStorage(t)
		records, err := empty.RecentAudits(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
