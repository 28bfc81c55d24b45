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
	"fmt"
	"sync"
	"time"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/request"
	"github.com/sirupsen/logrus"
)

const SystemErrorEvent = "system.error"

// WebhookSender delivers an event to the configured webhook endpoint.
type WebhookSender func(event string, payload interface{}) error

var (
	senderMu      sync.RWMutex
	webhookSender WebhookSender
)

// RegisterWebhookSender installs the sender used to forward system errors.
// A later registration replaces the earlier one.
func RegisterWebhookSender(sender WebhookSender) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func currentSender() WebhookSender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

func slackMessage(projectName string, err error, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"blocks": []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Error From %s 🐞", projectName), Emoji: true}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Error:*\n" + err.Error()}}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Time:*\n" + at.Format(time.RFC822)}}},
		},
	}
}

// SlackNotification posts err to the Slack incoming webhook at webhookURL.
func SlackNotification(ctx context.Context, webhookURL, projectName string, err error) error {
	_, callErr := request.PostJSON(ctx, webhookURL, nil, 10*time.Second, slackMessage(projectName, err, time.Now()), nil)
	return callErr
}

// NotifyError logs systemError and fans it out to Slack and the webhook sender
// in the background. It never blocks the caller.
func NotifyError(systemError error) {
	go notify(systemError)
}

func notify(systemError error) {
	logrus.Error(systemError)

	conf, err := config.Fetch()
	if err != nil {
		logrus.Warn(err)
		return
	}

	if conf.Notification.Slack.WebhookUrl != "" {
		if err := SlackNotification(context.Background(), conf.Notification.Slack.WebhookUrl, conf.ProjectName, systemError); err != nil {
			logrus.WithError(err).Warn("slack notification failed")
		}
	}

	if sender := currentSender(); sender != nil {
		payload := map[string]interface{}{
			"error": systemError.Error(),
			"time":  time.Now().UTC(),
		}
		if err := sender(SystemErrorEvent, payload); err != nil {
			logrus.WithError(err).Warn("system error webhook failed")
		}
	}
}
