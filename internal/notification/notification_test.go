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

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slackURL = "https://hooks.slack.com/services/T000/B000/XXXX"

func TestRegisterWebhookSender_ReplacesPrevious(t *testing.T) {
	defer RegisterWebhookSender(nil)

	calls := 0
	RegisterWebhookSender(func(event string, payload interface{}) error {
		calls = 1
		return nil
	})
	RegisterWebhookSender(func(event string, payload interface{}) error {
		calls = 2
		return nil
	})

	_ = currentSender()("test.event", nil)
	assert.Equal(t, 2, calls)
}

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var body map[string]interface{}
	httpmock.RegisterResponder("POST", slackURL, func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		return httpmock.NewStringResponse(200, ""), nil
	})

	err := SlackNotification(context.Background(), slackURL, "Ledgerd Server", errors.New("disk full"))
	require.NoError(t, err)

	blocks, ok := body["blocks"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocks, 3)
	raw, _ := json.Marshal(blocks[1])
	assert.Contains(t, string(raw), "disk full")
}

func TestNotify_FansOut(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	defer RegisterWebhookSender(nil)

	config.MockConfig(&config.Configuration{
		ProjectName:  "Ledgerd Server",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: slackURL}},
	})
	httpmock.RegisterResponder("POST", slackURL, httpmock.NewStringResponder(200, ""))

	var gotEvent string
	var gotPayload map[string]interface{}
	RegisterWebhookSender(func(event string, payload interface{}) error {
		gotEvent = event
		gotPayload, _ = payload.(map[string]interface{})
		return nil
	})

	notify(errors.New("publish failed"))

	assert.Equal(t, 1, httpmock.GetCallCountInfo()["POST "+slackURL])
	assert.Equal(t, SystemErrorEvent, gotEvent)
	assert.Equal(t, "publish failed", gotPayload["error"])
	assert.WithinDuration(t, time.Now().UTC(), gotPayload["time"].(time.Time), time.Second)
}

func TestNotify_SenderErrorIsSwallowed(t *testing.T) {
	defer RegisterWebhookSender(nil)
	config.MockConfig(&config.Configuration{ProjectName: "Ledgerd Server"})

	called := false
	RegisterWebhookSender(func(event string, payload interface{}) error {
		called = true
		return errors.New("queue down")
	})

	assert.NotPanics(t, func() { notify(errors.New("boom")) })
	assert.True(t, called)
}
