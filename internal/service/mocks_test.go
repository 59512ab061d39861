package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/FieldInventory/internal/models"
)

type mockInventoryRepo struct {
	CreateFunc      func(ctx context.Context, it *models.Item) error
	ExistsByDNIFunc func(ctx context.Context, dni string) (bool, error)
	FindByIDFunc    func(ctx context.Context, id string) (*models.Item, error)
	ListFunc        func(ctx context.Context) ([]models.Item, error)
	UpdateFunc      func(ctx context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error)
	DeleteFunc      func(ctx context.Context, id string) error
	calls           atomic.Int64
}

func (m *mockInventoryRepo) Create(ctx context.Context, it *models.Item) error {
	m.calls.Add(1)
	return m.CreateFunc(ctx, it)
}
func (m *mockInventoryRepo) ExistsByDNI(ctx context.Context, dni string) (bool, error) {
	m.calls.Add(1)
	return m.ExistsByDNIFunc(ctx, dni)
}
func (m *mockInventoryRepo) FindByID(ctx context.Context, id string) (*models.Item, error) {
	m.calls.Add(1)
	return m.FindByIDFunc(ctx, id)
}
func (m *mockInventoryRepo) List(ctx context.Context) ([]models.Item, error) {
	m.calls.Add(1)
	return m.ListFunc(ctx)
}
func (m *mockInventoryRepo) Update(ctx context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error) {
	m.calls.Add(1)
	return m.UpdateFunc(ctx, id, upd, by, at)
}
func (m *mockInventoryRepo) Delete(ctx context.Context, id string) error {
	m.calls.Add(1)
	return m.DeleteFunc(ctx, id)
}

// memInventory is an in-memory store enforcing the DNI unique constraint.
type memInventory struct {
	mu    sync.Mutex
	items map[string]models.Item
}

func newMemInventory() *memInventory {
	return &memInventory{items: map[string]models.Item{}}
}

func (m *memInventory) repo() *mockInventoryRepo {
	return &mockInventoryRepo{
		CreateFunc: func(_ context.Context, it *models.Item) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, existing := range m.items {
				if existing.DNI == it.DNI {
					return models.ErrDuplicateKey
				}
			}
			m.items[it.ID] = *it
			return nil
		},
		ExistsByDNIFunc: func(_ context.Context, dni string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, existing := range m.items {
				if existing.DNI == dni {
					return true, nil
				}
			}
			return false, nil
		},
		FindByIDFunc: func(_ context.Context, id string) (*models.Item, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			it, ok := m.items[id]
			if !ok {
				return nil, models.ErrNotFound
			}
			return &it, nil
		},
		ListFunc: func(context.Context) ([]models.Item, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			out := make([]models.Item, 0, len(m.items))
			for _, it := range m.items {
				out = append(out, it)
			}
			return out, nil
		},
		UpdateFunc: func(_ context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			it, ok := m.items[id]
			if !ok {
				return nil, models.ErrNotFound
			}
			upd.Apply(&it)
			it.UpdatedBy, it.UpdatedAt = by, at
			m.items[id] = it
			return &it, nil
		},
		DeleteFunc: func(_ context.Context, id string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.items[id]; !ok {
				return models.ErrNotFound
			}
			delete(m.items, id)
			return nil
		},
	}
}

// memAudit records appended entries and can be told to fail.
type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	fail    bool
}

func (m *memAudit) Append(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("audit store down: " + models.ErrStoreUnavailable.Error())
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAudit) Query(_ context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	if offset >= len(out) {
		return []models.AuditEntry{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAudit) Count(_ context.Context, f models.AuditFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if f.Action == "" || e.Action == f.Action {
			n++
		}
	}
	return n, nil
}

func (m *memAudit) byAction(a models.Action) []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range m.entries {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

type countingMetrics struct {
	mu       sync.Mutex
	failures map[models.Action]int
}

func (c *countingMetrics) AuditAppendFailed(a models.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == nil {
		c.failures = map[models.Action]int{}
	}
	c.failures[a]++
}

// plainHasher stands in for bcrypt in tests.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Verify(p, digest string) bool {
	return strings.TrimPrefix(digest, "hashed:") == p && strings.HasPrefix(digest, "hashed:")
}

type fakeSessions struct{ ttl time.Duration }

func (f fakeSessions) Issue(u *models.User, now time.Time) (string, time.Time, error) {
	return "token-" + u.ID, now.Add(f.ttl), nil
}
func (f fakeSessions) TTL() time.Duration { return f.ttl }

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

var (
	adminActor    = &models.User{ID: "admin-id", Username: "admin", FullName: "Administrador", Role: models.RoleAdmin, IsActive: true, Site: models.DefaultSite}
	operatorActor = &models.User{ID: "op-id", Username: "operador", FullName: "Operador Campo", Role: models.RoleOperator, IsActive: true, Site: models.DefaultSite}
)
