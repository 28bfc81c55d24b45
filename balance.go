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

	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/google/uuid"
)

// GetBalance folds every committed entry of the account into a balance. An
// account without entries is reported as not found, not as a zero balance.
func (l *Ledgerd) GetBalance(ctx context.Context, accountID uuid.UUID) (*model.AccountBalance, error) {
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	balance, found, err := l.datasource.AggregateByAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !found {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No transactions found", nil)
	}
	return balance, nil
}
