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


package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationsFromJSON(t *testing.T) {
	raw := `{
		"data_source": {"dns": "postgres://x", "conn_max_lifetime": "45m", "conn_max_idle_time": 90, "connect_timeout": "2.5s"},
		"account_cache_ttl": "1m",
		"notification": {"webhook": {"url": "https://hooks.example.com", "timeout": 3}}
	}`

	var cnf Configuration
	require.NoError(t, json.Unmarshal([]byte(raw), &cnf))

	assert.Equal(t, "postgres://x", cnf.DataSource.Dns)
	assert.Equal(t, 45*time.Minute, cnf.DataSource.ConnMaxLifetime)
	assert.Equal(t, 90*time.Second, cnf.DataSource.ConnMaxIdleTime)
	assert.Equal(t, 2500*time.Millisecond, cnf.DataSource.ConnectTimeout)
	assert.Equal(t, time.Minute, cnf.AccountCacheTTL)
	assert.Equal(t, "https://hooks.example.com", cnf.Notification.Webhook.Url)
	assert.Equal(t, 3*time.Second, cnf.Notification.Webhook.Timeout)
}

func TestDurationsFromJSON_Invalid(t *testing.T) {
	for _, raw := range []string{
		`{"account_cache_ttl": "soon"}`,
		`{"data_source": {"connect_timeout": true}}`,
		`{"notification": {"webhook": {"timeout": "3 seconds"}}}`,
	} {
		var cnf Configuration
		assert.Error(t, json.Unmarshal([]byte(raw), &cnf), raw)
	}
}

func TestDurationsRoundTrip(t *testing.T) {
	cnf := Configuration{
		ProjectName:     "round trip",
		AccountCacheTTL: 5 * time.Minute,
		DataSource:      DataSourceConfig{Dns: "postgres://x", ConnMaxLifetime: 30 * time.Minute},
		Notification:    Notification{Webhook: WebhookConfig{Timeout: 10 * time.Second}},
	}

	data, err := json.Marshal(cnf)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"account_cache_ttl":"5m0s"`)
	assert.Contains(t, string(data), `"conn_max_lifetime":"30m0s"`)
	assert.Contains(t, string(data), `"timeout":"10s"`)

	var back Configuration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, cnf, back)
}

func TestLoadConfigFromFile_DurationStrings(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "ledgerd.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(`{"data_source": {"dns": "temp-dns", "conn_max_lifetime": 1800}, "account_cache_ttl": "2m"}`)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	require.NoError(t, loadConfigFromFile(tmpFile.Name()))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cnf.DataSource.ConnMaxLifetime)
	assert.Equal(t, 2*time.Minute, cnf.AccountCacheTTL)
}
