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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blnkfinance/ledgerd"
	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/database"
	"github.com/blnkfinance/ledgerd/database/mocks"
	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/blnkfinance/ledgerd/internal/request"
	"github.com/blnkfinance/ledgerd/model"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), s.Response); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func testConfig() *config.Configuration {
	cnf := &config.Configuration{
		ProjectName: "Ledgerd Test",
		DataSource:  config.DataSourceConfig{Dns: database.MemoryDSN},
	}
	config.MockConfig(cnf)
	return cnf
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	l := ledgerd.NewLedgerd(database.NewMemoryStore())
	return NewAPI(l, testConfig()).Router()
}

func createTestAccount(t *testing.T, router *gin.Engine) model.Account {
	t.Helper()
	payload, _ := request.ToJsonReq(map[string]string{"email": gofakeit.Email(), "name": gofakeit.Name()})
	var account model.Account
	resp, err := SetUpTestRequest(TestRequest{Payload: payload, Router: router, Response: &account, Method: "POST", Route: "/v1/users"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.Code)
	return account
}

func postTransaction(t *testing.T, router *gin.Engine, accountID string, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(body),
		Router:  router,
		Method:  "POST",
		Route:   "/v1/users/" + accountID + "/transactions",
		Header:  header,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateTransaction(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)

	resp := postTransaction(t, router, account.ID.String(), `{"amount":"100.50","transaction_type":"credit","description":"Salary"}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "100.5", body["amount"])
	assert.Equal(t, "credit", body["transaction_type"])
	assert.Equal(t, "Salary", body["description"])
	assert.Equal(t, account.ID.String(), body["account_id"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["created_at"])
}

func TestCreateTransaction_NumericAmount(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)

	resp := postTransaction(t, router, account.ID.String(), `{"amount":0.1,"transaction_type":"debit"}`, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var entry model.LedgerEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entry))
	assert.Equal(t, "0.1", entry.Amount.String())
	assert.Nil(t, entry.Description)
}

func TestCreateTransaction_Rejections(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)

	tests := []struct {
		name         string
		accountID    string
		body         string
		expectedCode int
	}{
		{"zero amount", account.ID.String(), `{"amount":"0","transaction_type":"credit"}`, http.StatusBadRequest},
		{"negative amount", account.ID.String(), `{"amount":"-1.00","transaction_type":"credit"}`, http.StatusBadRequest},
		{"garbage amount", account.ID.String(), `{"amount":"abc","transaction_type":"credit"}`, http.StatusBadRequest},
		{"amount with tiny exponent", account.ID.String(), `{"amount":"1e-50000000","transaction_type":"credit"}`, http.StatusBadRequest},
		{"amount with huge exponent", account.ID.String(), `{"amount":"1e1000000","transaction_type":"credit"}`, http.StatusBadRequest},
		{"amount beyond scale", account.ID.String(), `{"amount":"0.0000000000000000001","transaction_type":"credit"}`, http.StatusBadRequest},
		{"numeric amount with huge exponent", account.ID.String(), `{"amount":1e400,"transaction_type":"credit"}`, http.StatusBadRequest},
		{"missing amount", account.ID.String(), `{"transaction_type":"credit"}`, http.StatusBadRequest},
		{"unknown type", account.ID.String(), `{"amount":"1","transaction_type":"refund"}`, http.StatusBadRequest},
		{"malformed json", account.ID.String(), `{"amount":`, http.StatusBadRequest},
		{"bad account id", "not-a-uuid", `{"amount":"1","transaction_type":"credit"}`, http.StatusBadRequest},
		{"unknown account", uuid.NewString(), `{"amount":"1","transaction_type":"credit"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTransaction(t, router, tt.accountID, tt.body, nil)
			assert.Equal(t, tt.expectedCode, resp.Code, resp.Body.String())
		})
	}

	var entries []model.LedgerEntry
	_, err := SetUpTestRequest(TestRequest{Router: router, Response: &entries, Method: "GET", Route: "/v1/users/" + account.ID.String() + "/transactions"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBalanceFlow(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)
	id := account.ID.String()

	var balanceErr map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{Router: router, Response: &balanceErr, Method: "GET", Route: "/v1/users/" + id + "/balance"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "No transactions found", balanceErr["error"])

	require.Equal(t, http.StatusCreated, postTransaction(t, router, id, `{"amount":"100.50","transaction_type":"credit"}`, nil).Code)
	require.Equal(t, http.StatusCreated, postTransaction(t, router, id, `{"amount":"25.75","transaction_type":"debit"}`, nil).Code)

	var balance model.AccountBalance
	resp, err = SetUpTestRequest(TestRequest{Router: router, Response: &balance, Method: "GET", Route: "/v1/users/" + id + "/balance"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "74.75", balance.Balance.StringFixed(2))
	assert.Equal(t, account.ID, balance.AccountID)

	var entries []model.LedgerEntry
	resp, err = SetUpTestRequest(TestRequest{Router: router, Response: &entries, Method: "GET", Route: "/v1/users/" + id + "/transactions"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, entries, 2)
	assert.Equal(t, model.EntryKindDebit, entries[0].Kind)
	assert.Equal(t, model.EntryKindCredit, entries[1].Kind)
	assert.Equal(t, balance.LastUpdated.UnixNano(), entries[0].CreatedAt.UnixNano())
}

func TestListTransactions_EmptyIsArray(t *testing.T) {
	router := setupRouter(t)

	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/v1/users/" + uuid.NewString() + "/transactions"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestListTransactions_Pagination(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)
	id := account.ID.String()

	for _, amount := range []string{"1", "2", "3"} {
		require.Equal(t, http.StatusCreated, postTransaction(t, router, id, `{"amount":"`+amount+`","transaction_type":"credit"}`, nil).Code)
	}

	var entries []model.LedgerEntry
	resp, err := SetUpTestRequest(TestRequest{Router: router, Response: &entries, Method: "GET", Route: "/v1/users/" + id + "/transactions?limit=1&offset=1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].Amount.String())

	for _, query := range []string{"?limit=0", "?limit=abc", "?offset=-1", "?limit=5000"} {
		resp, err = SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/v1/users/" + id + "/transactions" + query})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.Code, query)
	}
}

func TestCreateTransaction_IdempotencyKey(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)
	header := map[string]string{IdempotencyKeyHeader: "payout-2024-06-01"}
	body := `{"amount":"10","transaction_type":"credit"}`

	first := postTransaction(t, router, account.ID.String(), body, header)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postTransaction(t, router, account.ID.String(), body, header)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	changed := postTransaction(t, router, account.ID.String(), `{"amount":"10","transaction_type":"debit"}`, header)
	assert.Equal(t, http.StatusConflict, changed.Code, changed.Body.String())

	long := map[string]string{IdempotencyKeyHeader: string(bytes.Repeat([]byte("k"), 256))}
	assert.Equal(t, http.StatusBadRequest, postTransaction(t, router, account.ID.String(), body, long).Code)
}

func TestStorageErrorHidesDetail(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := NewAPI(ledgerd.NewLedgerd(ds), testConfig()).Router()
	accountID := uuid.New()

	ds.On("AggregateByAccount", mock.Anything, accountID).
		Return(nil, false, apierror.NewAPIError(apierror.ErrStorage, "Failed to calculate balance", io.ErrUnexpectedEOF))

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{Router: router, Response: &body, Method: "GET", Route: "/v1/users/" + accountID.String() + "/balance"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "Failed to calculate balance", body["error"])
	assert.Equal(t, string(apierror.ErrStorage), body["code"])
	assert.NotContains(t, resp.Body.String(), "unexpected EOF")
}

func TestAccounts(t *testing.T) {
	router := setupRouter(t)
	account := createTestAccount(t, router)

	var fetched model.Account
	resp, err := SetUpTestRequest(TestRequest{Router: router, Response: &fetched, Method: "GET", Route: "/v1/users/" + account.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, account.Email, fetched.Email)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/v1/users/" + uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	dup, _ := request.ToJsonReq(map[string]string{"email": account.Email, "name": "Dup"})
	resp, err = SetUpTestRequest(TestRequest{Payload: dup, Router: router, Method: "POST", Route: "/v1/users"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)

	bad, _ := request.ToJsonReq(map[string]string{"email": "nope", "name": "x"})
	resp, err = SetUpTestRequest(TestRequest{Payload: bad, Router: router, Method: "POST", Route: "/v1/users"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := NewAPI(ledgerd.NewLedgerd(ds), testConfig()).Router()

	ds.On("Ping", mock.Anything).Return(nil).Once()
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: "/health"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)

	ds.On("Ping", mock.Anything).Return(errors.New("dial tcp 10.0.0.7:5432: connection refused")).Once()
	var body map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{Router: router, Response: &body, Method: "GET", Route: "/health"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, map[string]interface{}{"status": "unavailable"}, body)
	assert.NotContains(t, resp.Body.String(), "10.0.0.7")
}

func TestSecureMode(t *testing.T) {
	cnf := testConfig()
	cnf.Server = config.ServerConfig{Secure: true, SecretKey: "s3cret"}
	router := NewAPI(ledgerd.NewLedgerd(database.NewMemoryStore()), cnf).Router()
	route := "/v1/users/" + uuid.NewString() + "/transactions"

	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: route})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{Router: router, Method: "GET", Route: route, Header: map[string]string{"X-Ledgerd-Key": "s3cret"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}
