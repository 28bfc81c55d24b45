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
	"bytes"
	"encoding/json"
	"errors"
	"net/mail"

	"github.com/blnkfinance/ledgerd"
	"github.com/blnkfinance/ledgerd/model"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxDescriptionLength    = 1024
	maxIdempotencyKeyLength = 255
)

// Amount accepts either a JSON string ("100.50") or a bare JSON number (100.50).
// Numbers are kept as their literal text so no precision is lost to float64.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return errors.New("amount must be a decimal string")
	}
	*a = Amount(n.String())
	return nil
}

type CreateTransaction struct {
	Amount          Amount  `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	Description     *string `json:"description,omitempty"`
}

type CreateAccount struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (t *CreateTransaction) ValidateCreateTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.Required, validation.By(func(value interface{}) error {
			_, err := model.ParseAmount(string(value.(Amount)))
			return err
		})),
		validation.Field(&t.TransactionType, validation.Required, validation.By(func(value interface{}) error {
			_, err := model.ParseEntryKind(value.(string))
			if err != nil {
				return model.ErrInvalidEntryKind
			}
			return nil
		})),
		validation.Field(&t.Description, validation.Length(0, maxDescriptionLength)),
	)
}

func (t *CreateTransaction) ToCreateEntryRequest(idempotencyKey string) ledgerd.CreateEntryRequest {
	req := ledgerd.CreateEntryRequest{
		Amount:          string(t.Amount),
		TransactionType: t.TransactionType,
		Description:     t.Description,
	}
	if idempotencyKey != "" {
		req.IdempotencyKey = &idempotencyKey
	}
	return req
}

func ValidateIdempotencyKey(key string) error {
	return validation.Validate(key, validation.Length(0, maxIdempotencyKeyLength).Error("Idempotency-Key must be at most 255 characters"))
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Email, validation.Required, validation.By(func(value interface{}) error {
			if _, err := mail.ParseAddress(value.(string)); err != nil {
				return errors.New("must be a valid email address")
			}
			return nil
		})),
		validation.Field(&a.Name, validation.Required, validation.Length(1, 255)),
	)
}
