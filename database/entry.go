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
	"strings"

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const entryColumns = `id, account_id, amount, kind, description, idempotency_key, created_at`

func (d Datasource) AppendEntry(ctx context.Context, e model.NewEntry) (*model.LedgerEntry, bool, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Appending ledger entry")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", e.AccountID.String()))

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storageError("Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// FOR SHARE holds the account row until commit so it cannot vanish between
	// the existence check and the insert.
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM ledgerd.accounts WHERE id = $1 FOR SHARE`, e.AccountID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, apierror.NewAPIError(apierror.ErrNotFound, "User not found", err)
		}
		return nil, false, storageError("Failed to verify account", err)
	}

	entry := model.LedgerEntry{
		ID:             uuid.New(),
		AccountID:      e.AccountID,
		Amount:         e.Amount,
		Kind:           e.Kind,
		Description:    e.Description,
		IdempotencyKey: e.IdempotencyKey,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledgerd.ledger_entries (id, account_id, amount, kind, description, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, idempotency_key) DO NOTHING
		RETURNING created_at
	`, entry.ID, entry.AccountID, entry.Amount, entry.Kind, entry.Description, entry.IdempotencyKey).Scan(&entry.CreatedAt)

	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows) && e.IdempotencyKey != nil:
		existing, findErr := scanEntry(tx.QueryRowContext(ctx, `
			SELECT `+entryColumns+`
			FROM ledgerd.ledger_entries
			WHERE account_id = $1 AND idempotency_key = $2
		`, e.AccountID, *e.IdempotencyKey))
		if findErr != nil {
			return nil, false, storageError("Failed to load replayed entry", findErr)
		}
		if !existing.SameRequest(e) {
			return nil, false, idempotencyConflict()
		}
		if err := tx.Commit(); err != nil {
			return nil, false, storageError("Failed to commit transaction", err)
		}
		span.AddEvent("idempotent replay")
		return existing, true, nil
	default:
		return nil, false, storageError("Failed to record entry", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, storageError("Failed to commit transaction", err)
	}

	return &entry, false, nil
}

func (d Datasource) ListEntriesByAccount(ctx context.Context, accountID uuid.UUID, opts model.ListOptions) ([]model.LedgerEntry, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Listing ledger entries")
	defer span.End()

	query, args := listEntriesQuery(accountID, opts)
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("Failed to retrieve transactions", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageError("Failed to scan transaction", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("Failed to retrieve transactions", err)
	}

	return entries, nil
}

func listEntriesQuery(accountID uuid.UUID, opts model.ListOptions) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`SELECT ` + entryColumns + ` FROM ledgerd.ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, seq DESC`)
	args := []interface{}{accountID}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func (d Datasource) AggregateByAccount(ctx context.Context, accountID uuid.UUID) (*model.AccountBalance, bool, error) {
	ctx, span := otel.Tracer("ledger store").Start(ctx, "Aggregating account balance")
	defer span.End()

	balance := model.AccountBalance{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT account_id,
			COALESCE(SUM(CASE kind WHEN 'credit' THEN amount WHEN 'debit' THEN -amount END), 0) AS balance,
			MAX(created_at) AS last_updated
		FROM ledgerd.ledger_entries
		WHERE account_id = $1
		GROUP BY account_id
	`, accountID).Scan(&balance.AccountID, &balance.Balance, &balance.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storageError("Failed to calculate balance", err)
	}

	return &balance, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*model.LedgerEntry, error) {
	e := model.LedgerEntry{}
	err := row.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Description, &e.IdempotencyKey, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
