// Package service implements the business operations: identity and session
// management, inventory mutations paired with audit entries, statistics and
// the audit log.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// AuditRepository is the append-only store behind the AuditLogger.
type AuditRepository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	Query(ctx context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditEntry, error)
	Count(ctx context.Context, f models.AuditFilter) (int, error)
}

// AuditMetrics counts audit entries that could not be stored.
type AuditMetrics interface {
	AuditAppendFailed(action models.Action)
}

type nopAuditMetrics struct{}

func (nopAuditMetrics) AuditAppendFailed(models.Action) {}

// MaxAuditPageSize bounds the page size accepted by AuditLogger.Query.
const MaxAuditPageSize = 200

// AuditLogger records and queries the activity log.
type AuditLogger struct {
	repo    AuditRepository
	log     *zap.Logger
	metrics AuditMetrics
	now     func() time.Time
}

// NewAuditLogger creates an AuditLogger. m may be nil.
func NewAuditLogger(repo AuditRepository, log *zap.Logger, m AuditMetrics) *AuditLogger {
	if m == nil {
		m = nopAuditMetrics{}
	}
	return &AuditLogger{repo: repo, log: log, metrics: m, now: time.Now}
}

// Append stores e, assigning an id and timestamp when they are unset.
func (a *AuditLogger) Append(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = a.now().UTC()
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	if err := a.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Record appends an entry for actor after a primary write has succeeded.
// A failure is logged and counted but never returned: the primary write
// already happened and must not be reported as failed.
func (a *AuditLogger) Record(ctx context.Context, actor *models.User, action models.Action, resourceType string, resourceID *string, details map[string]any) {
	e := &models.AuditEntry{
		UserID:       actor.ID,
		Username:     actor.Username,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Site:         actor.Site,
	}
	if err := a.Append(ctx, e); err != nil {
		a.metrics.AuditAppendFailed(action)
		a.log.Error("audit entry lost",
			zap.String("actor", actor.Username),
			zap.String("action", string(action)),
			zap.String("resource", resourceType),
			zap.Stringp("resource_id", resourceID),
			zap.Strings("detail_keys", detailKeys(details)),
			zap.Error(err),
		)
	}
}

// Query returns one page of entries matching f, newest first. page starts at 1.
func (a *AuditLogger) Query(ctx context.Context, f models.AuditFilter, page, pageSize int) (*models.AuditPage, error) {
	if page < 1 {
		return nil, models.Validationf("page must be at least 1")
	}
	if pageSize < 1 || pageSize > MaxAuditPageSize {
		return nil, models.Validationf("limit must be between 1 and %d", MaxAuditPageSize)
	}
	if f.Action != "" && !f.Action.Valid() {
		return nil, models.Validationf("unknown action %q", f.Action)
	}

	entries, err := a.repo.Query(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	total, err := a.repo.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count audit log: %w", err)
	}
	return &models.AuditPage{
		Entries: entries,
		Pagination: models.Pagination{
			Page:       page,
			TotalPages: (total + pageSize - 1) / pageSize,
			Total:      total,
			PerPage:    pageSize,
		},
	}, nil
}

func detailKeys(details map[string]any) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
