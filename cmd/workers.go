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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/events"
	"github.com/blnkfinance/ledgerd/internal/notification"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// processWebhook wraps webhook delivery in a span so retries show up in traces.
func processWebhook(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("ledgerd.webhooks.worker").Start(ctx, "Deliver Webhook From Redis Queue")
	defer span.End()

	if err := events.ProcessWebhook(ctx, t); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// reportExhausted notifies once a task has used up its retries.
func reportExhausted(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		notification.NotifyError(fmt.Errorf("webhook task %s failed after %d retries: %w", task.Type(), retried, err))
	}
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, asynq.RedisClientOpt, error) {
	redisOpt, err := events.RedisConnOpt(conf.Redis)
	if err != nil {
		return nil, redisOpt, pkgerrors.Wrap(err, "parsing redis url")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  10,
		Queues:       map[string]int{conf.Queue.WebhookQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(reportExhausted),
		Logger:       logrus.StandardLogger(),
	})
	return srv, redisOpt, nil
}

func workerCommands(app *ledgerdInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start ledgerd webhook workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf := app.cnf
			if conf.Redis.Dns == "" {
				log.Fatal("workers need redis. Set redis.dns or LEDGERD_REDIS_DNS")
			}

			srv, redisOpt, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			mux.HandleFunc(conf.Queue.WebhookQueue, processWebhook)

			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: redisOpt,
			})
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
