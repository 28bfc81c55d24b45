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

package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ToJsonReq serializes payload into a buffer suitable for an outbound request body.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(c), nil
}

// PostJSON sends payload to url with the given headers and fails on any non-2xx response.
// A 2xx body is decoded into response when response is non-nil and the body is not empty.
func PostJSON(ctx context.Context, url string, headers map[string]string, timeout time.Duration, payload interface{}, response interface{}) (*http.Response, error) {
	body, err := ToJsonReq(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return Call(req, timeout, response)
}

// Call sends req as JSON using a client bounded by timeout.
func Call(req *http.Request, timeout time.Duration, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, req.URL.Host, bytes.TrimSpace(snippet))
	}

	if response == nil {
		return resp, nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err == io.EOF {
		return resp, nil
	}
	return resp, err
}
