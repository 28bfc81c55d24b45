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

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/request"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ProcessWebhook delivers one queued event to the configured webhook URL.
// Returning an error hands the task back to asynq for retry.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("decoding webhook payload: %v: %w", err, asynq.SkipRetry)
	}

	logrus.WithField("event", event.Event).Info("processing webhook")
	_, err = request.PostJSON(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, conf.Notification.Webhook.Timeout, event, nil)
	return err
}
