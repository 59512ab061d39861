package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// memUsers is an in-memory identity store with unique username and email.
type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if o.Username == u.Username || o.Email == u.Email {
			return models.ErrDuplicateKey
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) HasAdmin(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id string, upd models.UserUpdate, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	upd.Apply(&u)
	u.UpdatedAt = &at
	m.users[id] = u
	return &u, nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

// memItems is an in-memory inventory store with a unique DNI.
type memItems struct {
	mu    sync.Mutex
	items map[string]models.Item
}

func newMemItems() *memItems { return &memItems{items: map[string]models.Item{}} }

func (m *memItems) Create(_ context.Context, it *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.DNI == it.DNI {
			return models.ErrDuplicateKey
		}
	}
	m.items[it.ID] = *it
	return nil
}

func (m *memItems) ExistsByDNI(_ context.Context, dni string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.DNI == dni {
			return true, nil
		}
	}
	return false, nil
}

func (m *memItems) FindByID(_ context.Context, id string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &it, nil
}

func (m *memItems) List(_ context.Context) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DNI < out[j].DNI })
	return out, nil
}

func (m *memItems) Update(_ context.Context, id string, upd models.ItemUpdate, by string, at time.Time) (*models.Item, error) {
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
}

func (m *memItems) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// memAudit is an in-memory append-only audit store.
type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *memAudit) Append(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAudit) matching(f models.AuditFilter) []models.AuditEntry {
	var out []models.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.ResourceType != "" && e.ResourceType != f.ResourceType {
			continue
		}
		if f.Username != "" && e.Username != f.Username {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *memAudit) Query(_ context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(f)
	if offset >= len(all) {
		return []models.AuditEntry{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m *memAudit) Count(_ context.Context, f models.AuditFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(f)), nil
}

func (m *memAudit) count(action models.Action, resource string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Action == action && e.ResourceType == resource {
			n++
		}
	}
	return n
}

func (m *memAudit) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return m.Query(ctx, models.AuditFilter{}, limit, 0)
}

// memDataset feeds the snapshotter from the in-memory stores.
type memDataset struct {
	items *memItems
	users *memUsers
	audit *memAudit
}

func (d memDataset) ReadDataset(ctx context.Context, auditLimit int) (*models.Dataset, error) {
	items, _ := d.items.List(ctx)
	users, _ := d.users.List(ctx)
	entries, _ := d.audit.Recent(ctx, auditLimit)
	return &models.Dataset{Inventory: items, Users: users, AuditLogs: entries}, nil
}

// fixedStats answers aggregate queries with constant values.
type fixedStats struct {
	pingErr error
}

func (fixedStats) CountUsers(context.Context) (int, int, error) { return 2, 2, nil }
func (fixedStats) CountItems(_ context.Context, s *models.Stats) error {
	s.TotalItems, s.ItemsGood = 1, 1
	return nil
}
func (fixedStats) CountByDevice(context.Context) (map[string]int, error) {
	return map[string]int{"Tablet": 1}, nil
}
func (fixedStats) CountStolen(context.Context) (int, error)                       { return 1, nil }
func (fixedStats) CountStaleDamaged(context.Context, time.Time) (int, error)       { return 0, nil }
func (fixedStats) CountWarrantyExpiring(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}
func (f fixedStats) Ping(context.Context) error { return f.pingErr }
