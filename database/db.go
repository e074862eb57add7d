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

package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		// The alias cache is an optimization; a failed init degrades reads
		// to SQL instead of failing startup.
		aliasCache, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("cache initialization failed, continuing without cache: %v", errCache)
			aliasCache = nil
		}
		instance = &Datasource{Conn: con, Cache: aliasCache}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createPurchaseTable(db)
	if err != nil {
		return nil, err
	}
	err = createBankChargeTable(db)
	if err != nil {
		return nil, err
	}
	err = createMatchTables(db)
	if err != nil {
		return nil, err
	}
	err = createMerchantAliasTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createPurchaseTable creates a PostgreSQL table for the PurchaseRecord struct
func createPurchaseTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS purchases (
			id SERIAL PRIMARY KEY,
			purchase_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			card_id TEXT NOT NULL,
			transaction_date DATE NOT NULL,
			billing_date DATE NOT NULL,
			description TEXT,
			amount BIGINT NOT NULL,
			foreign_amount BIGINT NOT NULL DEFAULT 0,
			foreign_currency TEXT,
			match_status TEXT NOT NULL DEFAULT 'unmatched',
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, fingerprint)
		)
	`)
	if err != nil {
		log.Printf("Error creating purchases table: %v", err)
	}
	return err
}

// createBankChargeTable creates a PostgreSQL table for the BankCharge struct
func createBankChargeTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bank_charges (
			id SERIAL PRIMARY KEY,
			charge_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			transaction_date DATE NOT NULL,
			description TEXT,
			amount BIGINT NOT NULL,
			cc_aggregate BOOLEAN NOT NULL DEFAULT FALSE,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (owner_id, fingerprint)
		)
	`)
	if err != nil {
		log.Printf("Error creating bank_charges table: %v", err)
	}
	return err
}

// createMatchTables creates the matches table and its member table.
// match_purchases rows cascade on match deletion so unmatch stays a
// single delete.
func createMatchTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			card_id TEXT NOT NULL,
			charge_date DATE NOT NULL,
			charge_id TEXT NOT NULL REFERENCES bank_charges(charge_id),
			purchase_total BIGINT NOT NULL,
			bank_amount BIGINT NOT NULL,
			discrepancy BIGINT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			vat_amount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating matches table: %v", err)
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS match_purchases (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			purchase_id TEXT NOT NULL REFERENCES purchases(purchase_id),
			position INT NOT NULL,
			UNIQUE (match_id, purchase_id)
		)
	`)
	if err != nil {
		log.Printf("Error creating match_purchases table: %v", err)
	}
	return err
}

// createMerchantAliasTable creates a PostgreSQL table for the MerchantAlias struct
func createMerchantAliasTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS merchant_aliases (
			id SERIAL PRIMARY KEY,
			alias_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			pattern TEXT NOT NULL,
			canonical_name TEXT NOT NULL,
			match_type TEXT NOT NULL CHECK (match_type IN ('exact', 'contains', 'prefix')),
			priority INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating merchant_aliases table: %v", err)
	}
	return err
}
