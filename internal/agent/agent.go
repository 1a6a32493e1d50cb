// Package agent composes the reference-data store, the classification
// engine, the TTL cache and the optional audit log into the application
// service the transport layers call.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openfiscal/cclastrib/internal/model"
	"github.com/openfiscal/cclastrib/internal/nfe"
	"github.com/openfiscal/cclastrib/internal/refdata"
	"github.com/openfiscal/cclastrib/internal/rules"
)

// AuditStore persists classification decisions. Implementations must be
// safe for concurrent use.
type AuditStore interface {
	SaveAudit(ctx context.Context, rec *model.AuditRecord) error
}

// Response is the full answer for one classified item: the engine result
// plus the derived fiscal-document payload.
type Response struct {
	Result  *model.ClassificationResult `json:"resultado"`
	Payload *nfe.Payload                `json:"xml"`
}

// BatchItem carries the per-item fields of a batch request; everything
// else is shared across the batch.
type BatchItem struct {
	CFOP        string
	CSTICMS     string
	NCM         string
	ZFMProduced bool
	ItemValue   *float64
}

// BatchRequest classifies several items under one shared fiscal context.
type BatchRequest struct {
	Shared model.ClassificationRequest
	Items  []BatchItem
}

// BatchResult pairs an item's product code with its response, in request
// order.
type BatchResult struct {
	NCM      string    `json:"ncm"`
	Response *Response `json:"resultado"`
}

// Option configures an Agent.
type Option func(*Agent)

// WithAuditStore enables audit persistence. Audit failures are logged and
// never block a request.
func WithAuditStore(s AuditStore) Option {
	return func(a *Agent) { a.audits = s }
}

// WithCacheTTL overrides the default one-hour response TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Agent) { a.cacheTTL = ttl }
}

// Agent serves classification requests against the active reference-data
// snapshot.
type Agent struct {
	store    *refdata.Store
	engine   *rules.Engine
	cache    *responseCache
	audits   AuditStore
	cacheTTL time.Duration
}

// New creates an agent over an already-opened store.
func New(store *refdata.Store, opts ...Option) *Agent {
	a := &Agent{
		store:  store,
		engine: rules.NewEngine(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cache = newResponseCache(a.cacheTTL)
	return a
}

// Handle classifies one item, serving from the cache when an equivalent
// request was answered within the TTL.
func (a *Agent) Handle(ctx context.Context, req *model.ClassificationRequest) (*Response, error) {
	key := CacheKey(req)
	if resp, ok := a.cache.get(key); ok {
		slog.Debug("cache hit", "key", key)
		return resp, nil
	}

	snap := a.store.Snapshot()
	result := a.engine.Classify(snap, req)
	resp := &Response{
		Result:  result,
		Payload: nfe.Build(req, result),
	}
	a.cache.set(key, resp)

	if a.audits != nil {
		a.recordAudit(ctx, key, req, result)
	}

	return resp, nil
}

// HandleBatch classifies every item of the batch through the single-item
// path, cache included, preserving item order.
func (a *Agent) HandleBatch(ctx context.Context, batch *BatchRequest) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		req := batch.Shared
		req.CFOP = item.CFOP
		req.CSTICMS = item.CSTICMS
		req.NCM = item.NCM
		req.ZFMProduced = item.ZFMProduced
		req.ItemValue = item.ItemValue

		resp, err := a.Handle(ctx, &req)
		if err != nil {
			return nil, err
		}
		results = append(results, BatchResult{NCM: item.NCM, Response: resp})
	}
	return results, nil
}

// Reload rebuilds the reference snapshot and clears the cache. On failure
// the previous snapshot stays in service.
func (a *Agent) Reload(_ context.Context) error {
	if err := a.store.Reload(); err != nil {
		return err
	}
	a.cache.clear()
	slog.Info("reference data reloaded", "dir", a.store.Dir())
	return nil
}

// DataDir returns the reference-data directory, for health reporting.
func (a *Agent) DataDir() string { return a.store.Dir() }

// Snapshot exposes the active snapshot for read-only inspection.
func (a *Agent) Snapshot() *refdata.Snapshot { return a.store.Snapshot() }

// CacheSize returns the number of memoized responses.
func (a *Agent) CacheSize() int { return a.cache.size() }

// Close stops the cache's cleanup goroutine.
func (a *Agent) Close() {
	a.cache.close()
}

func (a *Agent) recordAudit(ctx context.Context, key string, req *model.ClassificationRequest, result *model.ClassificationResult) {
	rec := &model.AuditRecord{
		ID:           uuid.New().String(),
		CacheKey:     key,
		NCM:          rules.NCMPrefix(req.NCM),
		CFOP:         req.CFOP,
		Code:         result.Code,
		RateIBS:      result.RateIBS,
		RateCBS:      result.RateCBS,
		Confidence:   result.Confidence,
		ZFMBenefit:   result.ZFMBenefitApplied,
		Alerts:       result.Alerts,
		PendingItems: result.PendingItems,
		DecidedAt:    time.Now(),
	}
	if err := a.audits.SaveAudit(ctx, rec); err != nil {
		slog.Error("failed to save audit record", "error", err, "id", rec.ID)
	}
}
