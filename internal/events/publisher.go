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
	"errors"
	"time"

	"github.com/blnkfinance/ledgerd/config"
	redis_db "github.com/blnkfinance/ledgerd/internal/redis-db"
	"github.com/hibiken/asynq"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const EntryCreated = "entry.created"

// Event is the envelope delivered to webhooks and kafka consumers.
// Key is used as the kafka partition key so one account's events stay ordered.
type Event struct {
	Event   string      `json:"event"`
	Key     string      `json:"-"`
	Payload interface{} `json:"data"`
}

// Publisher delivers events after the write that produced them has committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event. It is used when no sink is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// WebhookQueue enqueues events on asynq; the workers process deliver them over HTTP.
type WebhookQueue struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewWebhookQueue(opt asynq.RedisConnOpt, cfg config.QueueConfig) *WebhookQueue {
	return &WebhookQueue{
		client:   asynq.NewClient(opt),
		queue:    cfg.WebhookQueue,
		maxRetry: cfg.MaxRetry,
	}
}

func (w *WebhookQueue) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(w.queue, payload)
	info, err := w.client.EnqueueContext(ctx, task, asynq.Queue(w.queue), asynq.MaxRetry(w.maxRetry))
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"event": event.Event, "task_id": info.ID}).Debug("webhook enqueued")
	return nil
}

func (w *WebhookQueue) Close() error {
	return w.client.Close()
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
		},
	})
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// Fanout publishes to every sink and reports all failures together.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RedisConnOpt converts the configured redis DNS into asynq connection options.
func RedisConnOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := redis_db.ParseRedisURL(cfg.Dns, cfg.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// NewPublisher builds the sinks enabled by cfg. Webhooks need both a webhook
// URL and redis; kafka needs at least one broker.
func NewPublisher(cfg *config.Configuration) (Publisher, error) {
	var sinks Fanout

	if cfg.Notification.Webhook.Url != "" && cfg.Redis.Dns != "" {
		opt, err := RedisConnOpt(cfg.Redis)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewWebhookQueue(opt, cfg.Queue))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, NewKafkaPublisher(cfg.Kafka))
	}

	switch len(sinks) {
	case 0:
		return Noop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
