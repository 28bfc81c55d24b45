/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
)

// MemoryStore is an in-process IDataSource used for local runs and tests.
// A single mutex serializes writers, which gives the same guarantees as the
// postgres transaction: an append either lands completely or not at all.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]model.Account
	emails   map[string]uuid.UUID
	entries  map[uuid.UUID][]model.LedgerEntry
	keys     map[string]model.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]model.Account),
		emails:   make(map[string]uuid.UUID),
		entries:  make(map[uuid.UUID][]model.LedgerEntry),
		keys:     make(map[string]model.LedgerEntry),
	}
}

func idempotencyIndex(accountID uuid.UUID, key string) string {
	return accountID.String() + "/" + key
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneEntry detaches the optional string fields so stored entries share no
// memory with callers.
func cloneEntry(e model.LedgerEntry) model.LedgerEntry {
	e.Description = cloneString(e.Description)
	e.IdempotencyKey = cloneString(e.IdempotencyKey)
	return e
}

func (m *MemoryStore) AppendEntry(_ context.Context, e model.NewEntry) (*model.LedgerEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[e.AccountID]; !ok {
		return nil, false, apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}

	if e.IdempotencyKey != nil {
		if existing, ok := m.keys[idempotencyIndex(e.AccountID, *e.IdempotencyKey)]; ok {
			if !existing.SameRequest(e) {
				return nil, false, idempotencyConflict()
			}
			replayed := cloneEntry(existing)
			return &replayed, true, nil
		}
	}

	entry := model.LedgerEntry{
		ID:             uuid.New(),
		AccountID:      e.AccountID,
		Amount:         e.Amount,
		Kind:           e.Kind,
		Description:    cloneString(e.Description),
		IdempotencyKey: cloneString(e.IdempotencyKey),
		CreatedAt:      time.Now().UTC(),
	}
	m.entries[e.AccountID] = append(m.entries[e.AccountID], entry)
	if e.IdempotencyKey != nil {
		m.keys[idempotencyIndex(e.AccountID, *e.IdempotencyKey)] = entry
	}

	created := cloneEntry(entry)
	return &created, false, nil
}

// ListEntriesByAccount returns entries newest first. Entries are stored in
// append order, so walking the slice backwards matches the postgres ordering.
func (m *MemoryStore) ListEntriesByAccount(_ context.Context, accountID uuid.UUID, opts model.ListOptions) ([]model.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.entries[accountID]
	result := []model.LedgerEntry{}
	for i := len(stored) - 1 - opts.Offset; i >= 0; i-- {
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
		result = append(result, cloneEntry(stored[i]))
	}
	return result, nil
}

func (m *MemoryStore) AggregateByAccount(_ context.Context, accountID uuid.UUID) (*model.AccountBalance, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balance, err := model.ComputeBalance(accountID, m.entries[accountID])
	if errors.Is(err, model.ErrNoEntries) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError("Failed to calculate balance", err)
	}
	return balance, true, nil
}

func (m *MemoryStore) AccountExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.accounts[id]
	return ok, nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, acc model.Account) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(acc.Email)
	if _, taken := m.emails[email]; taken {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("An account with email '%s' already exists", acc.Email), nil)
	}
	if _, taken := m.accounts[acc.ID]; taken {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("An account with id '%s' already exists", acc.ID), nil)
	}

	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	m.accounts[acc.ID] = acc
	m.emails[email] = acc.ID
	return &acc, nil
}

func (m *MemoryStore) GetAccountByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}
	return &acc, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

var (
	_ IDataSource = (*MemoryStore)(nil)
	_ IDataSource = Datasource{}
)
