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

package finboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/finboardhq/finboard/config"
	redis_db "github.com/finboardhq/finboard/internal/redis-db"
)

// Queue wraps the asynq client used to run reconciliation asynchronously
// after an import lands.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// ReconciliationTask is the queue payload for a deferred reconciliation
// run. Tolerances are carried in the payload so the worker never reads
// them from ambient state.
type ReconciliationTask struct {
	OwnerID                string  `json:"owner_id"`
	DateToleranceDays      int     `json:"date_tolerance_days"`
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueReconciliation schedules a reconciliation run for an owner. The
// task ID is derived from the owner so a run already waiting in the queue
// absorbs further import triggers instead of stacking duplicates.
func (q *Queue) EnqueueReconciliation(ctx context.Context, task ReconciliationTask) error {
	ctx, span := tracer.Start(ctx, "Adding Reconciliation Run To Redis Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("recon_%s", task.OwnerID)),
		asynq.Queue(cfg.Queue.ReconciliationQueue),
		asynq.MaxRetry(5),
	}
	newTask := asynq.NewTask(cfg.Queue.ReconciliationQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, newTask)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf(" [*] Reconciliation already queued for owner: %s", task.OwnerID)
			return nil
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued reconciliation for owner: %s", task.OwnerID)
	return nil
}
