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

package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNoEntries is returned when a balance is requested for entries that do not exist.
var ErrNoEntries = errors.New("no ledger entries")

// AccountBalance is the derived financial position of an account.
type AccountBalance struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Balance     decimal.Decimal `json:"balance"`
	LastUpdated time.Time       `json:"last_updated"`
}

// ComputeBalance folds entries into credits minus debits and the latest created_at.
// The result does not depend on the order of entries.
func ComputeBalance(accountID uuid.UUID, entries []LedgerEntry) (*AccountBalance, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	balance := &AccountBalance{AccountID: accountID, Balance: decimal.Zero}
	for i := range entries {
		signed, err := entries[i].SignedAmount()
		if err != nil {
			return nil, err
		}
		balance.Balance = balance.Balance.Add(signed)
		if entries[i].CreatedAt.After(balance.LastUpdated) {
			balance.LastUpdated = entries[i].CreatedAt
		}
	}
	return balance, nil
}
