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
	"errors"
	"strings"

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/internal/cache"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func accountCacheKey(id uuid.UUID) string {
	return "account:" + id.String()
}

// accountExists consults the cache before the store. Only positive answers are
// cached since accounts are never deleted.
func (l *Ledgerd) accountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if l.cache != nil {
		var cached bool
		err := l.cache.Get(ctx, accountCacheKey(id), &cached)
		switch {
		case err == nil && cached:
			return true, nil
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			logrus.WithError(err).Warn("account cache read failed")
		}
	}

	exists, err := l.datasource.AccountExists(ctx, id)
	if err != nil {
		return false, err
	}
	if exists {
		l.rememberAccount(ctx, id)
	}
	return exists, nil
}

func (l *Ledgerd) rememberAccount(ctx context.Context, id uuid.UUID) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, accountCacheKey(id), true, l.cacheTTL); err != nil {
		logrus.WithError(err).Warn("account cache write failed")
	}
}

// CreateAccount registers an account so entries can be recorded against it.
func (l *Ledgerd) CreateAccount(ctx context.Context, email, name string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, apierror.NewAPIError(apierror.ErrValidation, "email and name are required", nil)
	}

	acc, err := l.datasource.CreateAccount(ctx, model.Account{ID: uuid.New(), Email: email, Name: name})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	l.rememberAccount(ctx, acc.ID)
	return acc, nil
}

func (l *Ledgerd) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAccount")
	defer span.End()

	return l.datasource.GetAccountByID(ctx, id)
}
