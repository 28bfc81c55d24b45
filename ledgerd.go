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

package ledgerd

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/database"
	"github.com/blnkfinance/ledgerd/internal/cache"
	"github.com/blnkfinance/ledgerd/internal/events"
	"github.com/blnkfinance/ledgerd/internal/notification"
	redis_db "github.com/blnkfinance/ledgerd/internal/redis-db"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("ledgerd")

// Ledgerd wires the ledger store to its optional collaborators. Every
// collaborator is constructed once and shared by reference.
type Ledgerd struct {
	datasource database.IDataSource
	cache      cache.Cache
	cacheTTL   time.Duration
	publisher  events.Publisher
	redis      redis.UniversalClient
}

type Option func(*Ledgerd)

// WithCache enables the account existence cache.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(l *Ledgerd) {
		l.cache = c
		l.cacheTTL = ttl
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledgerd) {
		l.publisher = p
	}
}

// WithRedis makes the health check include redis.
func WithRedis(client redis.UniversalClient) Option {
	return func(l *Ledgerd) {
		l.redis = client
	}
}

func NewLedgerd(db database.IDataSource, opts ...Option) *Ledgerd {
	l := &Ledgerd{datasource: db, publisher: events.Noop{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bootstrap builds a Ledgerd from configuration. Redis is optional; without it
// the account cache and the webhook queue are disabled.
func Bootstrap(cfg *config.Configuration) (*Ledgerd, error) {
	db, err := database.Open(cfg.DataSource)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.Redis.Dns != "" {
		r, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns}, cfg.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRedis(r.Client()), WithCache(cache.NewCache(r.Client()), cfg.AccountCacheTTL))
	}

	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithPublisher(publisher))

	l := NewLedgerd(db, opts...)
	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return l.publisher.Publish(ctx, events.Event{Event: event, Payload: payload})
	})
	return l, nil
}

// Health pings the store and, when configured, redis.
func (l *Ledgerd) Health(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Health")
	defer span.End()

	var errs []error
	if err := l.datasource.Ping(ctx); err != nil {
		errs = append(errs, err)
	}
	if l.redis != nil {
		if err := redis_db.Ping(ctx, l.redis); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Ledgerd) Close() error {
	var errs []error
	if err := l.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if l.redis != nil {
		if err := l.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if ds, ok := l.datasource.(*database.Datasource); ok {
		if err := ds.Conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
