/*
Copyright 2025 Finboard Authors.

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
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/finboardhq/finboard"
	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/internal/notification"
	redis_db "github.com/finboardhq/finboard/internal/redis-db"
)

// processReconciliation runs a reconciliation for the owner named in the
// queued task. Errors are returned so asynq retries the run; persistent
// failures are surfaced through the notification channel.
func (f *finboardInstance) processReconciliation(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("finboard.reconciliation.worker").Start(ctx, "Process Reconciliation From Redis Queue")
	defer span.End()

	var task finboard.ReconciliationTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logrus.Error(err)
		return err
	}

	opts := finboard.ReconcileOptions{
		DateToleranceDays:      task.DateToleranceDays,
		AmountTolerancePercent: task.AmountTolerancePercent,
		VatRatePercent:         f.cnf.Reconciliation.VatRatePercent,
	}

	matches, err := f.finboard.Reconcile(ctx, task.OwnerID, opts)
	if err != nil {
		retryCount, _ := asynq.GetRetryCount(ctx)
		if retryCount >= 4 {
			notification.NotifyError(fmt.Errorf("reconciliation for owner %s failing after %d attempts: %w", task.OwnerID, retryCount+1, err))
		}
		logrus.Infof("Reconciliation for owner %s pushed back for retry due to error: %v", task.OwnerID, err)
		return err
	}

	log.Printf(" [*] Reconciliation Processed. owner: %s matches: %d", task.OwnerID, len(matches))
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.ReconciliationQueue] = 1
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: conf.Queue.NumberOfWorkers,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(f *finboardInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.ReconciliationQueue, f.processReconciliation)
}

// workerCommands defines the "workers" command that consumes queued
// reconciliation runs.
func workerCommands(f *finboardInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start finboard workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(f, mux)

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
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
