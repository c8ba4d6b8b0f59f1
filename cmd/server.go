/*
Copyright 2024 TitanForge Authors.

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
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"

	"github.com/titanforge/titanforge/api"
	"github.com/titanforge/titanforge/config"
	trace "github.com/titanforge/titanforge/internal/traces"
)

const certStorage = "./certmagic"

// serveTLS serves the router over HTTPS with certificates managed by CertMagic.
// Without a configured domain it falls back to localhost.
func serveTLS(r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: certStorage}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		log.Println("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(context.Background(), domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	log.Printf("Starting HTTPS server on %s\n", conf.Port)
	if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTPS server: %w", err)
	}
	return nil
}

func sendHeartbeat(client posthog.Client, heartbeatID string) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			if err := client.Enqueue(posthog.Capture{
				DistinctId: heartbeatID,
				Event:      "server_heartbeat",
				Properties: map[string]interface{}{
					"timestamp": time.Now().UTC(),
				},
			}); err != nil {
				log.Printf("Failed to send heartbeat: %v", err)
			}
		}
	}()
}

func initializeTracing(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	shutdown, err := trace.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

// initializePostHog returns nil when no project key is configured.
func initializePostHog(cfg config.TelemetryConfig) posthog.Client {
	if cfg.PostHogKey == "" {
		return nil
	}
	endpoint := cfg.PostHogURL
	if endpoint == "" {
		endpoint = "https://us.i.posthog.com"
	}
	client, err := posthog.NewWithConfig(cfg.PostHogKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		log.Printf("PostHog disabled: %v", err)
		return nil
	}
	sendHeartbeat(client, uuid.New().String())
	return client
}

func initializeObservability(ctx context.Context, cfg *config.Configuration) (posthog.Client, func(context.Context) error, error) {
	if !cfg.Telemetry.Enabled {
		return nil, func(context.Context) error { return nil }, nil
	}

	shutdown, err := initializeTracing(ctx, cfg.ProjectName)
	if err != nil {
		return nil, nil, err
	}
	return initializePostHog(cfg.Telemetry), shutdown, nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(router, cfg)
	}
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

func serverCommands(app *titanforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the titanforge API server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			phClient, shutdown, err := initializeObservability(ctx, app.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				app.titanforge.SetAnalyticsSink(phClient)
				defer phClient.Close()
			}
			defer app.titanforge.Close()

			a, err := api.NewAPI(app.titanforge)
			if err != nil {
				log.Fatal(err)
			}
			if err := startServer(a.Router(), app.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
