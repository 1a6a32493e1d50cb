package model

import "time"

// AuditRecord is the persisted trace of one classification decision.
type AuditRecord struct {
	ID           string
	CacheKey     string
	NCM          string
	CFOP         string
	Code         string
	RateIBS      float64
	RateCBS      float64
	Confidence   float64
	ZFMBenefit   bool
	Alerts       []string
	PendingItems []string
	DecidedAt    time.Time
}
