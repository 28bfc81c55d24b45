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
	"database/sql"
	"errors"
	"fmt"

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

func (d Datasource) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Checking account existence")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ledgerd.accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, storageError("Failed to check if account exists", err)
	}
	return exists, nil
}

func (d Datasource) CreateAccount(ctx context.Context, acc model.Account) (*model.Account, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Saving account to db")
	defer span.End()

	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO ledgerd.accounts (id, email, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, acc.ID, acc.Email, acc.Name).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("An account with email '%s' already exists", acc.Email), err)
		}
		return nil, storageError("Failed to create account", err)
	}
	return &acc, nil
}

func (d Datasource) GetAccountByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Getting account from db")
	defer span.End()

	acc := model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM ledgerd.accounts
		WHERE id = $1
	`, id).Scan(&acc.ID, &acc.Email, &acc.Name, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "User not found", err)
		}
		return nil, storageError("Failed to retrieve account", err)
	}
	return &acc, nil
}
