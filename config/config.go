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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5401"

	// Observed production defaults for the reconciliation engine. Callers
	// may override per request; these are only the fallback values.
	DefaultDateToleranceDays      = 2
	DefaultAmountTolerancePercent = 2.0
	DefaultConfidenceThreshold    = 70.0
	DefaultVatRatePercent         = 18.0
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"FINBOARD_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FINBOARD_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"FINBOARD_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FINBOARD_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"FINBOARD_REDIS_DNS"`
}

// ReconciliationConfig carries the engine defaults. Tolerances are always
// threaded into Reconcile explicitly; nothing reads these as hidden globals.
type ReconciliationConfig struct {
	DateToleranceDays      int     `json:"date_tolerance_days" envconfig:"FINBOARD_RECON_DATE_TOLERANCE_DAYS"`
	AmountTolerancePercent float64 `json:"amount_tolerance_percent" envconfig:"FINBOARD_RECON_AMOUNT_TOLERANCE_PERCENT"`
	ConfidenceThreshold    float64 `json:"confidence_threshold" envconfig:"FINBOARD_RECON_CONFIDENCE_THRESHOLD"`
	VatRatePercent         float64 `json:"vat_rate_percent" envconfig:"FINBOARD_RECON_VAT_RATE_PERCENT"`
}

type QueueConfig struct {
	ReconciliationQueue string `json:"reconciliation_queue" envconfig:"FINBOARD_QUEUE_RECONCILIATION"`
	NumberOfWorkers     int    `json:"number_of_queue_workers" envconfig:"FINBOARD_QUEUE_NUMBER_OF_WORKERS"`
	MonitoringPort      string `json:"monitoring_port" envconfig:"FINBOARD_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"FINBOARD_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"FINBOARD_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"FINBOARD_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"FINBOARD_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName    string               `json:"project_name" envconfig:"FINBOARD_PROJECT_NAME"`
	Server         ServerConfig         `json:"server"`
	DataSource     DataSourceConfig     `json:"data_source"`
	Redis          RedisConfig          `json:"redis"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
	Queue          QueueConfig          `json:"queue"`
	RateLimit      RateLimitConfig      `json:"rate_limit"`
	Notification   Notification         `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("finboard", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called finboard.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Finboard Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Reconciliation.DateToleranceDays < 0 {
		return errors.New("date tolerance must be non-negative")
	}
	if cnf.Reconciliation.AmountTolerancePercent < 0 {
		return errors.New("amount tolerance must be non-negative")
	}
	// Zero here means unset. Exact-match runs pass zero tolerances
	// explicitly per call; the config values only seed queued runs.
	if cnf.Reconciliation.DateToleranceDays == 0 {
		cnf.Reconciliation.DateToleranceDays = DefaultDateToleranceDays
	}
	if cnf.Reconciliation.AmountTolerancePercent == 0 {
		cnf.Reconciliation.AmountTolerancePercent = DefaultAmountTolerancePercent
	}
	if cnf.Reconciliation.ConfidenceThreshold == 0 {
		cnf.Reconciliation.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cnf.Reconciliation.VatRatePercent == 0 {
		cnf.Reconciliation.VatRatePercent = DefaultVatRatePercent
	}

	if cnf.Queue.ReconciliationQueue == "" {
		cnf.Queue.ReconciliationQueue = "new:reconciliation"
	}
	if cnf.Queue.NumberOfWorkers <= 0 {
		cnf.Queue.NumberOfWorkers = 5
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5403"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
