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

	model2 "github.com/blnkfinance/ledgerd/api/model"
	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/gin-gonic/gin"
)

func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model2.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrValidation})
		return
	}

	if err := newAccount.ValidateCreateAccount(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrValidation})
		return
	}

	account, err := a.ledgerd.CreateAccount(c.Request.Context(), newAccount.Email, newAccount.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (a Api) GetAccount(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	account, err := a.ledgerd.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
