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
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/titanforge/titanforge"
	"github.com/titanforge/titanforge/config"
	redis_db "github.com/titanforge/titanforge/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// tracing wraps every job in a span named after its task type.
func tracing(next asynq.Handler) asynq.Handler {
	tracer := otel.Tracer("titanforge.worker")
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		ctx, span := tracer.Start(ctx, "Process "+t.Type(), trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()
		if id, ok := asynq.GetTaskID(ctx); ok {
			span.SetAttributes(attribute.String("job.id", id))
		}
		err := next.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
		}
		return err
	})
}

// reportExhausted logs jobs that failed their last attempt. asynq archives them,
// which makes the archive the dead letter queue for agent runs and webhooks.
func reportExhausted(ctx context.Context, t *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	fields := logrus.Fields{"type": t.Type(), "retried": retried}
	if retried >= maxRetry {
		logrus.WithFields(fields).Errorf("job archived after final attempt: %v", err)
		return
	}
	logrus.WithFields(fields).Warnf("job failed, will retry: %v", err)
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		titanforge.RedisConnOpt(redisOption),
		asynq.Config{
			Concurrency:  conf.Queue.Concurrency,
			Queues:       queues,
			ErrorHandler: asynq.ErrorHandlerFunc(reportExhausted),
			Logger:       logrus.StandardLogger(),
		},
	), nil
}

func initializeTaskHandlers(tf *titanforge.TitanForge, mux *asynq.ServeMux) {
	mux.Use(tracing)
	mux.HandleFunc(titanforge.TypeAgentRun, tf.ProcessAgentRun)
	mux.HandleFunc(titanforge.TypeWebhook, tf.ProcessWebhook)
}

func startMonitoring(conf *config.Configuration) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Printf("asynqmon disabled: %v", err)
		return
	}
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: titanforge.RedisConnOpt(redisOption),
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
}

// workerCommands starts the asynq workers that run agents and deliver webhooks,
// plus the stuck task recovery loop.
func workerCommands(app *titanforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start titanforge workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			phClient, shutdown, err := initializeObservability(ctx, app.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				app.titanforge.SetAnalyticsSink(phClient)
				defer phClient.Close()
			}
			defer app.titanforge.Close()

			srv, err := initializeWorkerServer(app.cnf, app.titanforge.Queues())
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app.titanforge, mux)
			startMonitoring(app.cnf)

			recovery := titanforge.NewStuckTaskRecoveryProcessor(app.titanforge)
			recovery.Start(ctx)
			defer recovery.Stop()

			// Run blocks until SIGTERM or SIGINT
			if err := srv.Run(mux); err != nil {
				log.Printf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
