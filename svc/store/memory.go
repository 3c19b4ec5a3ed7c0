package store

import (
	"context"
	"sort"
	"sync"
)

type methodKey struct {
	accountID string
	method    Method
}

// Memory is an in-process Store for development and tests. It enforces the
// same condition-on-absence semantics as the Postgres implementation.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account // by id
	byEmail  map[string]string  // normalized email -> account id
	methods  map[methodKey]AuthMethod
	audit    []AuditEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]Account),
		byEmail:  make(map[string]string),
		methods:  make(map[methodKey]AuthMethod),
	}
}

func (m *Memory) CreateAccount(ctx context.Context, account Account) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.ID]; ok {
		return false, nil
	}
	if _, ok := m.byEmail[account.Email]; ok {
		// A different identity already completed confirmation for this
		// email; the existing account stays canonical.
		return false, nil
	}
	m.accounts[account.ID] = account
	m.byEmail[account.Email] = account.ID
	return true, nil
}

func (m *Memory) AccountByEmail(ctx context.Context, normalizedEmail string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normalizedEmail]
	if !ok {
		return Account{}, ErrNotFound
	}
	return m.accounts[id], nil
}

func (m *Memory) AccountByID(ctx context.Context, accountID string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (m *Memory) CreateAuthMethod(ctx context.Context, method AuthMethod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := methodKey{accountID: method.AccountID, method: method.Method}
	if _, ok := m.methods[key]; ok {
		return false, nil
	}
	m.methods[key] = method
	return true, nil
}

func (m *Memory) AuthMethods(ctx context.Context, accountID string) ([]AuthMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AuthMethod
	for key, method := range m.methods {
		if key.accountID == accountID {
			out = append(out, method)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LinkedAt.Equal(out[j].LinkedAt) {
			return out[i].Method < out[j].Method
		}
		return out[i].LinkedAt.Before(out[j].LinkedAt)
	})
	return out, nil
}

func (m *Memory) AppendAudit(ctx context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditTrail(ctx context.Context, accountID string) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []AuditEntry
	for _, entry := range m.audit {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out, nil
}
