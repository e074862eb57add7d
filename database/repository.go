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
	"context"
	"time"

	"github.com/finboardhq/finboard/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	record        // Interface for purchase and bank charge operations
	match         // Interface for match result operations
	merchantAlias // Interface for merchant alias operations
}

// record defines methods for handling imported statement records.
type record interface {
	GetExistingFingerprints(ctx context.Context, ownerID string, fingerprints []string) (map[string]bool, error) // Bulk fingerprint existence check, one round trip per batch
	BulkInsertPurchases(ctx context.Context, purchases []*model.PurchaseRecord) (int, error)                     // Inserts purchases in a single statement
	BulkInsertBankCharges(ctx context.Context, charges []*model.BankCharge) (int, error)                         // Inserts bank charges in a single statement
	GetUnmatchedPurchases(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.PurchaseRecord, error)
	GetOpenBankCharges(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.BankCharge, error)
	GetPurchasesByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.PurchaseRecord, error)
}

// match defines methods for handling match results.
type match interface {
	RecordMatchResults(ctx context.Context, matches []*model.MatchResult) error                                    // Persists a reconciliation run atomically
	GetMatchResult(ctx context.Context, matchID string) (*model.MatchResult, error)                                // Retrieves a match with its ordered member purchases
	GetMatchResultsByOwner(ctx context.Context, ownerID string) ([]*model.MatchResult, error)                      // Retrieves all matches for an owner
	TransitionMatchStatus(ctx context.Context, matchID string, next model.MatchStatus) (*model.MatchResult, error) // Compare-and-set status update from pending
	DeleteMatchResult(ctx context.Context, matchID string) error                                                   // Unmatch: deletes the match and resets its members
}

// merchantAlias defines methods for handling per-owner merchant aliases.
type merchantAlias interface {
	RecordMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error
	GetMerchantAliases(ctx context.Context, ownerID string) ([]*model.MerchantAlias, error)
	UpdateMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error
	DeleteMerchantAlias(ctx context.Context, aliasID string) error
}
