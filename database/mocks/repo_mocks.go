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

package mocks

import (
	"context"

	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Entry methods

func (m *MockDataSource) AppendEntry(ctx context.Context, e model.NewEntry) (*model.LedgerEntry, bool, error) {
	args := m.Called(ctx, e)
	entry, _ := args.Get(0).(*model.LedgerEntry)
	return entry, args.Bool(1), args.Error(2)
}

func (m *MockDataSource) ListEntriesByAccount(ctx context.Context, accountID uuid.UUID, opts model.ListOptions) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, accountID, opts)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

func (m *MockDataSource) AggregateByAccount(ctx context.Context, accountID uuid.UUID) (*model.AccountBalance, bool, error) {
	args := m.Called(ctx, accountID)
	balance, _ := args.Get(0).(*model.AccountBalance)
	return balance, args.Bool(1), args.Error(2)
}

// Account methods

func (m *MockDataSource) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) CreateAccount(ctx context.Context, acc model.Account) (*model.Account, error) {
	args := m.Called(ctx, acc)
	created, _ := args.Get(0).(*model.Account)
	return created, args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*model.Account)
	return acc, args.Error(1)
}

func (m *MockDataSource) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
