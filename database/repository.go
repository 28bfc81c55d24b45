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

	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
)

// IDataSource is the Ledger Store plus the account reads it depends on.
type IDataSource interface {
	entry
	account
	Ping(ctx context.Context) error
}

// entry is the append-only ledger. Entries are never updated or deleted.
type entry interface {
	// AppendEntry persists e in one database transaction after re-checking that
	// the account exists. The returned bool reports an idempotent replay, in which
	// case the previously committed entry is returned and nothing is written.
	AppendEntry(ctx context.Context, e model.NewEntry) (*model.LedgerEntry, bool, error)
	ListEntriesByAccount(ctx context.Context, accountID uuid.UUID, opts model.ListOptions) ([]model.LedgerEntry, error)
	// AggregateByAccount returns false when the account has no entries at all.
	AggregateByAccount(ctx context.Context, accountID uuid.UUID) (*model.AccountBalance, bool, error)
}

type account interface {
	AccountExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreateAccount(ctx context.Context, acc model.Account) (*model.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
}
