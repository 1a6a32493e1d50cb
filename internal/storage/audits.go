package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openfiscal/cclastrib/internal/model"
)

// SaveAudit persists one classification decision.
func (s *SQLiteStorage) SaveAudit(ctx context.Context, rec *model.AuditRecord) error {
	if rec == nil {
		return fmt.Errorf("audit record must not be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("audit record requires an id")
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now()
	}

	alerts, err := json.Marshal(rec.Alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}
	pending, err := json.Marshal(rec.PendingItems)
	if err != nil {
		return fmt.Errorf("failed to marshal pending items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audits (
			id, cache_key, ncm, cfop, code,
			rate_ibs, rate_cbs, confidence, zfm_benefit,
			alerts, pending_items, decided_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CacheKey, rec.NCM, rec.CFOP, rec.Code,
		rec.RateIBS, rec.RateCBS, rec.Confidence, rec.ZFMBenefit,
		string(alerts), string(pending), rec.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// RecentAudits returns the latest decisions, newest first.
func (s *SQLiteStorage) RecentAudits(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cache_key, ncm, cfop, code,
			rate_ibs, rate_cbs, confidence, zfm_benefit,
			alerts, pending_items, decided_at
		FROM audits
		ORDER BY decided_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var alerts, pending string
		if err := rows.Scan(
			&rec.ID, &rec.CacheKey, &rec.NCM, &rec.CFOP, &rec.Code,
			&rec.RateIBS, &rec.RateCBS, &rec.Confidence, &rec.ZFMBenefit,
			&alerts, &pending, &rec.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if err := json.Unmarshal([]byte(alerts), &rec.Alerts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alerts: %w", err)
		}
		if err := json.Unmarshal([]byte(pending), &rec.PendingItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending items: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audits: %w", err)
	}
	return records, nil
}
