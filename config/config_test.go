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
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
	}
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Reconciliation.DateToleranceDays != DefaultDateToleranceDays {
		t.Errorf("Expected default date tolerance %d, got %d", DefaultDateToleranceDays, cnf.Reconciliation.DateToleranceDays)
	}
	if cnf.Reconciliation.AmountTolerancePercent != DefaultAmountTolerancePercent {
		t.Errorf("Expected default amount tolerance %v, got %v", DefaultAmountTolerancePercent, cnf.Reconciliation.AmountTolerancePercent)
	}
	if cnf.Reconciliation.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Errorf("Expected default confidence threshold %v, got %v", DefaultConfidenceThreshold, cnf.Reconciliation.ConfidenceThreshold)
	}
	if cnf.Queue.ReconciliationQueue != "new:reconciliation" {
		t.Errorf("Expected default reconciliation queue, got %s", cnf.Queue.ReconciliationQueue)
	}
}

func TestValidateAndAddDefaults_NegativeTolerance(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Reconciliation: ReconciliationConfig{
			DateToleranceDays: -1,
		},
	}
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for negative date tolerance")
	}

	cnf.Reconciliation = ReconciliationConfig{AmountTolerancePercent: -0.5}
	if err := cnf.validateAndAddDefaults(); err == nil {
		t.Error("Expected error for negative amount tolerance")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "finboard.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource: DataSourceConfig{
			Dns: "temp-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(&sampleConfig); err != nil {
		t.Fatalf("Unable to write sample config: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Unable to close temp file: %v", err)
	}

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}

	cnf, err := Fetch()
	if err != nil {
		t.Fatalf("Expected Fetch to succeed, got %v", err)
	}
	if cnf.ProjectName != "Temp Project" {
		t.Errorf("Expected project name Temp Project, got %s", cnf.ProjectName)
	}
	if cnf.Reconciliation.VatRatePercent != DefaultVatRatePercent {
		t.Errorf("Expected default VAT rate, got %v", cnf.Reconciliation.VatRatePercent)
	}
}
