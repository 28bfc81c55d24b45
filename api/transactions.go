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

package api

import (
	"net/http"
	"strconv"

	model2 "github.com/blnkfinance/ledgerd/api/model"
	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// CreateTransaction records a credit or debit against the account in the path.
// A request repeating an earlier Idempotency-Key returns the original entry with 200.
func (a Api) CreateTransaction(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var newTransaction model2.CreateTransaction
	if err := c.ShouldBindJSON(&newTransaction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrValidation})
		return
	}

	if err := newTransaction.ValidateCreateTransaction(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrValidation})
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if err := model2.ValidateIdempotencyKey(idempotencyKey); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrValidation})
		return
	}

	entry, replayed, err := a.ledgerd.CreateEntry(c.Request.Context(), accountID, newTransaction.ToCreateEntryRequest(idempotencyKey))
	if err != nil {
		respondError(c, err)
		return
	}

	if replayed {
		c.JSON(http.StatusOK, entry)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (a Api) ListTransactions(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	opts, err := listOptions(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := a.ledgerd.ListEntries(c.Request.Context(), accountID, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func listOptions(c *gin.Context) (model.ListOptions, error) {
	var opts model.ListOptions
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, apierror.NewAPIError(apierror.ErrValidation, "limit must be a positive integer", err)
		}
		opts.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, apierror.NewAPIError(apierror.ErrValidation, "offset must be a non-negative integer", err)
		}
		opts.Offset = offset
	}
	return opts, nil
}

// GetBalance returns 404 when the account has no entries yet.
func (a Api) GetBalance(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	balance, err := a.ledgerd.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
