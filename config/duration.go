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
	"fmt"
	"time"
)

// Duration reads a config duration either as a Go duration string ("30m",
// "1h30m") or as a number of seconds. envconfig already parses the string form
// for environment overrides.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(v * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration %s: use a string like \"30s\" or a number of seconds", data)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (c *DataSourceConfig) UnmarshalJSON(data []byte) error {
	type alias DataSourceConfig
	aux := struct {
		*alias
		ConnMaxLifetime *Duration `json:"conn_max_lifetime"`
		ConnMaxIdleTime *Duration `json:"conn_max_idle_time"`
		ConnectTimeout  *Duration `json:"connect_timeout"`
	}{
		alias:           (*alias)(c),
		ConnMaxLifetime: (*Duration)(&c.ConnMaxLifetime),
		ConnMaxIdleTime: (*Duration)(&c.ConnMaxIdleTime),
		ConnectTimeout:  (*Duration)(&c.ConnectTimeout),
	}
	return json.Unmarshal(data, &aux)
}

func (c DataSourceConfig) MarshalJSON() ([]byte, error) {
	type alias DataSourceConfig
	return json.Marshal(struct {
		alias
		ConnMaxLifetime Duration `json:"conn_max_lifetime"`
		ConnMaxIdleTime Duration `json:"conn_max_idle_time"`
		ConnectTimeout  Duration `json:"connect_timeout"`
	}{
		alias:           alias(c),
		ConnMaxLifetime: Duration(c.ConnMaxLifetime),
		ConnMaxIdleTime: Duration(c.ConnMaxIdleTime),
		ConnectTimeout:  Duration(c.ConnectTimeout),
	})
}

func (c *WebhookConfig) UnmarshalJSON(data []byte) error {
	type alias WebhookConfig
	aux := struct {
		*alias
		Timeout *Duration `json:"timeout"`
	}{
		alias:   (*alias)(c),
		Timeout: (*Duration)(&c.Timeout),
	}
	return json.Unmarshal(data, &aux)
}

func (c WebhookConfig) MarshalJSON() ([]byte, error) {
	type alias WebhookConfig
	return json.Marshal(struct {
		alias
		Timeout Duration `json:"timeout"`
	}{
		alias:   alias(c),
		Timeout: Duration(c.Timeout),
	})
}

func (c *Configuration) UnmarshalJSON(data []byte) error {
	type alias Configuration
	aux := struct {
		*alias
		AccountCacheTTL *Duration `json:"account_cache_ttl"`
	}{
		alias:           (*alias)(c),
		AccountCacheTTL: (*Duration)(&c.AccountCacheTTL),
	}
	return json.Unmarshal(data, &aux)
}

func (c Configuration) MarshalJSON() ([]byte, error) {
	type alias Configuration
	return json.Marshal(struct {
		alias
		AccountCacheTTL Duration `json:"account_cache_ttl"`
	}{
		alias:           alias(c),
		AccountCacheTTL: Duration(c.AccountCacheTTL),
	})
}
