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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind is the direction of a ledger entry. The zero value is not a valid kind.
type EntryKind uint8

const (
	EntryKindCredit EntryKind = iota + 1
	EntryKindDebit
)

var (
	ErrInvalidEntryKind = errors.New("transaction_type must be one of credit, debit")
	ErrInvalidAmount    = errors.New("amount must be a decimal number")
	ErrNonPositive      = errors.New("amount must be greater than zero")
)

// ParseEntryKind maps the wire value ("credit" or "debit", case-insensitive) to an EntryKind.
// Unknown values are rejected rather than defaulted.
func ParseEntryKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit":
		return EntryKindCredit, nil
	case "debit":
		return EntryKindDebit, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidEntryKind, s)
	}
}

func (k EntryKind) String() string {
	switch k {
	case EntryKindCredit:
		return "credit"
	case EntryKindDebit:
		return "debit"
	default:
		return fmt.Sprintf("EntryKind(%d)", uint8(k))
	}
}

func (k EntryKind) Valid() bool {
	return k == EntryKindCredit || k == EntryKindDebit
}

// Signed returns the contribution of amount to an account balance.
func (k EntryKind) Signed(amount decimal.Decimal) (decimal.Decimal, error) {
	switch k {
	case EntryKindCredit:
		return amount, nil
	case EntryKindDebit:
		return amount.Neg(), nil
	default:
		return decimal.Zero, ErrInvalidEntryKind
	}
}

func (k EntryKind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, ErrInvalidEntryKind
	}
	return json.Marshal(k.String())
}

func (k *EntryKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidEntryKind
	}
	parsed, err := ParseEntryKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value stores the kind as the entry_kind enum label.
func (k EntryKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, ErrInvalidEntryKind
	}
	return k.String(), nil
}

func (k *EntryKind) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseEntryKind(v)
		if err != nil {
			return err
		}
		*k = parsed
		return nil
	case []byte:
		return k.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EntryKind", src)
	}
}

// Amounts must fit NUMERIC(38,18): at most 18 fractional and 20 integer digits.
const (
	MaxAmountScale         = 18
	MaxAmountIntegerDigits = 20
	maxAmountLength        = 64
)

// ParseAmount parses a decimal string and enforces amount > 0 and the
// precision limits above. Exponents are checked before the value is ever
// rendered, so inputs like "1e-50000000" are rejected cheaply.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAmountLength {
		return decimal.Zero, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLength)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: got %q", ErrInvalidAmount, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}

	exp := int64(amount.Exponent())
	if -exp > MaxAmountScale {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MaxAmountScale)
	}
	if int64(len(amount.Coefficient().String()))+exp > MaxAmountIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: at most %d integer digits", ErrInvalidAmount, MaxAmountIntegerDigits)
	}
	return amount, nil
}

// LedgerEntry is one immutable, signed monetary movement against an account.
// Amount is always positive; Kind carries the sign.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           EntryKind       `json:"transaction_type"`
	Description    *string         `json:"description"`
	IdempotencyKey *string         `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SignedAmount is the entry's contribution to its account balance.
func (e *LedgerEntry) SignedAmount() (decimal.Decimal, error) {
	return e.Kind.Signed(e.Amount)
}

// SameRequest reports whether n asks for the movement e already records. It
// decides whether a repeated idempotency key is a replay or a conflict.
func (e *LedgerEntry) SameRequest(n NewEntry) bool {
	return e.AccountID == n.AccountID &&
		e.Kind == n.Kind &&
		e.Amount.Equal(n.Amount) &&
		equalOptional(e.Description, n.Description)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// NewEntry is a validated request to append one entry.
type NewEntry struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Kind           EntryKind
	Description    *string
	IdempotencyKey *string
}

// ListOptions bounds a listing. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}
