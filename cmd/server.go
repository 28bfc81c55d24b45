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
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blnkfinance/ledgerd/api"
	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/traces"
	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
)

const shutdownGrace = 15 * time.Second

// newHTTPServer builds the plain or TLS server. TLS certificates are obtained
// and renewed by CertMagic for the configured domain.
func newHTTPServer(ctx context.Context, router *gin.Engine, conf config.ServerConfig) (*http.Server, error) {
	server := &http.Server{
		Addr:              ":" + conf.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !conf.SSL {
		return server, nil
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: "./certmagic"}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		log.Println("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}
	if err := cfg.ManageSync(ctx, domains); err != nil {
		return nil, pkgerrors.Wrap(err, "obtaining certificates")
	}
	server.TLSConfig = cfg.TLSConfig()
	return server, nil
}

func sendHeartbeat(ctx context.Context, client posthog.Client, heartbeatID string) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := client.Enqueue(posthog.Capture{
					DistinctId: heartbeatID,
					Event:      "server_heartbeat",
					Properties: map[string]interface{}{"timestamp": time.Now().UTC()},
				}); err != nil {
					log.Printf("Failed to send heartbeat: %v", err)
				}
			}
		}
	}()
}

// initializeObservability starts tracing and, when a telemetry key is set, the
// usage heartbeat. The returned function stops both.
func initializeObservability(ctx context.Context, cfg *config.Configuration) (func(context.Context) error, error) {
	if !cfg.EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}

	shutdownTracing, err := traces.SetupOTelSDK(ctx, cfg.ProjectName)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "setting up OTel SDK")
	}

	if cfg.TelemetryKey == "" {
		return shutdownTracing, nil
	}

	phClient, err := posthog.NewWithConfig(cfg.TelemetryKey, posthog.Config{Endpoint: "https://us.i.posthog.com"})
	if err != nil {
		return shutdownTracing, nil
	}
	sendHeartbeat(ctx, phClient, uuid.New().String())

	return func(ctx context.Context) error {
		return errors.Join(phClient.Close(), shutdownTracing(ctx))
	}, nil
}

func serverCommands(app *ledgerdInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start ledgerd server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := app.cnf
			l := app.bootstrap()
			defer func() {
				if err := l.Close(); err != nil {
					log.Printf("Error closing ledgerd: %v", err)
				}
			}()

			shutdown, err := initializeObservability(ctx, cfg)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			router := api.NewAPI(l, cfg).Router()
			server, err := newHTTPServer(ctx, router, cfg.Server)
			if err != nil {
				log.Fatal(err)
			}

			go func() {
				var err error
				if cfg.Server.SSL {
					log.Printf("Starting HTTPS server on %s", cfg.Server.Port)
					err = server.ListenAndServeTLS("", "")
				} else {
					log.Printf("Starting server on http://localhost:%s", cfg.Server.Port)
					err = server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			log.Println("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server forced to shutdown: %v", err)
			}
		},
	}

	return cmd
}
