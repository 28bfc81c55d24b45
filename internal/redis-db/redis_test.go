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

package redis_db

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		wantErr  bool
	}{
		{name: "docker style", url: "redis:6379", addr: "redis:6379"},
		{name: "url with password", url: "redis://:password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "url with db", url: "redis://localhost:6379/2", addr: "localhost:6379"},
		{name: "empty", url: "  ", wantErr: true},
		{name: "bad scheme", url: "http://localhost:6379", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
		})
	}
}

func TestParseRedisURL_TLS(t *testing.T) {
	opts, err := ParseRedisURL("rediss://:secret@cache.example.com:6380", true)
	require.NoError(t, err)
	require.NotNil(t, opts.TLSConfig)
	assert.True(t, opts.TLSConfig.InsecureSkipVerify)
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(nil, false)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	r, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	defer r.Close()
	assert.NotNil(t, r.Client())
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient([]string{"127.0.0.1:1"}, false)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, Ping(context.Background(), db))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, Ping(context.Background(), db))

	assert.NoError(t, mock.ExpectationsWereMet())
}
