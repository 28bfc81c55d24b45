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

package ledgerd

import (
	"context"
	"fmt"
	"time"

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/internal/events"
	"github.com/blnkfinance/ledgerd/internal/notification"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxListLimit   = 1000
	publishTimeout = 5 * time.Second
)

// CreateEntryRequest carries an entry as received on the wire. Amount and
// TransactionType are parsed here so no caller can skip validation.
type CreateEntryRequest struct {
	Amount          string
	TransactionType string
	Description     *string
	IdempotencyKey  *string
}

func validateEntry(accountID uuid.UUID, req CreateEntryRequest) (model.NewEntry, error) {
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return model.NewEntry{}, apierror.NewAPIError(apierror.ErrValidation, err.Error(), err)
	}
	kind, err := model.ParseEntryKind(req.TransactionType)
	if err != nil {
		return model.NewEntry{}, apierror.NewAPIError(apierror.ErrValidation, model.ErrInvalidEntryKind.Error(), err)
	}
	return model.NewEntry{
		AccountID:      accountID,
		Amount:         amount,
		Kind:           kind,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

// CreateEntry validates req, checks that the account exists and appends the
// entry atomically. Checks run in that order and the first failure is returned.
// The bool result reports that an earlier entry with the same idempotency key
// was returned instead of writing a new one.
func (l *Ledgerd) CreateEntry(ctx context.Context, accountID uuid.UUID, req CreateEntryRequest) (*model.LedgerEntry, bool, error) {
	ctx, span := tracer.Start(ctx, "CreateEntry")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID.String()))

	newEntry, err := validateEntry(accountID, req)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	exists, err := l.accountExists(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if !exists {
		return nil, false, apierror.NewAPIError(apierror.ErrNotFound, "User not found", nil)
	}

	entry, replayed, err := l.datasource.AppendEntry(ctx, newEntry)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	if !replayed {
		l.publishEntryCreated(ctx, entry)
	}

	logrus.WithFields(logrus.Fields{
		"entry_id":   entry.ID,
		"account_id": entry.AccountID,
		"kind":       entry.Kind.String(),
		"replayed":   replayed,
	}).Info("ledger entry recorded")

	return entry, replayed, nil
}

// publishEntryCreated runs after commit. A failed publish never affects the
// committed entry; it is reported through the error notifier.
func (l *Ledgerd) publishEntryCreated(ctx context.Context, entry *model.LedgerEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := l.publisher.Publish(ctx, events.Event{
		Event:   events.EntryCreated,
		Key:     entry.AccountID.String(),
		Payload: entry,
	})
	if err != nil {
		notification.NotifyError(fmt.Errorf("publishing %s for entry %s: %w", events.EntryCreated, entry.ID, err))
	}
}

// ListEntries returns the account's entries newest first. An account with no
// entries, known or not, yields an empty slice.
func (l *Ledgerd) ListEntries(ctx context.Context, accountID uuid.UUID, opts model.ListOptions) ([]model.LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "ListEntries")
	defer span.End()

	if opts.Limit < 0 || opts.Limit > MaxListLimit {
		return nil, apierror.NewAPIError(apierror.ErrValidation, fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), nil)
	}
	if opts.Offset < 0 {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "offset must not be negative", nil)
	}

	entries, err := l.datasource.ListEntriesByAccount(ctx, accountID, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return entries, nil
}
