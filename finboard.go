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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/database"
	redis_db "github.com/finboardhq/finboard/internal/redis-db"
)

// Finboard is the main struct for the reconciliation service. It owns the
// datasource, the redis client backing the per-owner advisory locks, and
// the task queue used for post-import reconciliation runs.
type Finboard struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
}

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("finboard")

// NewFinboard initializes a new instance of Finboard with the provided
// database datasource. It fetches the configuration and initializes the
// Redis client and the queue.
func NewFinboard(db database.IDataSource) (*Finboard, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	return &Finboard{datasource: db, queue: newQueue, redis: redisClient.Client()}, nil
}
