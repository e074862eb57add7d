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

	"github.com/sirupsen/logrus"

	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// ImportSummary reports what an import batch actually did.
type ImportSummary struct {
	InsertedCount  int `json:"inserted_count"`
	DuplicateCount int `json:"duplicate_count"`
}

// ImportRows ingests a batch of statement rows for one owner. Rows whose
// content fingerprint already exists for the owner are dropped, so
// re-uploading a re-exported copy of the same statement is a no-op. The
// existence check is one bulk query per batch regardless of batch size.
// A successful import that landed new rows enqueues a reconciliation run.
func (f *Finboard) ImportRows(ctx context.Context, ownerID string, rows []*model.StatementRow) (*ImportSummary, error) {
	ctx, span := tracer.Start(ctx, "Importing Statement Rows")
	defer span.End()

	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}
	if len(rows) == 0 {
		return &ImportSummary{}, nil
	}

	fingerprints := make([]string, 0, len(rows))
	for _, row := range rows {
		fp := model.FingerprintRow(row.SourceType, row.TransactionDate, row.Description, row.Amount, row.CardID)
		fingerprints = append(fingerprints, fp)
	}

	existing, err := f.datasource.GetExistingFingerprints(ctx, ownerID, fingerprints)
	if err != nil {
		return nil, err
	}

	var (
		purchases  []*model.PurchaseRecord
		charges    []*model.BankCharge
		duplicates int
		seen       = make(map[string]bool, len(rows))
	)
	for i, row := range rows {
		fp := fingerprints[i]
		// A row already stored, or repeated within this very batch, counts
		// as a duplicate either way.
		if existing[fp] || seen[fp] {
			duplicates++
			continue
		}
		seen[fp] = true

		switch row.SourceType {
		case model.SourceCreditCard:
			purchases = append(purchases, &model.PurchaseRecord{
				PurchaseID:      model.GenerateUUIDWithSuffix("prc"),
				OwnerID:         ownerID,
				CardID:          row.CardID,
				TransactionDate: row.TransactionDate,
				BillingDate:     row.BillingDate,
				Description:     row.Description,
				Amount:          row.Amount,
				ForeignAmount:   row.ForeignAmount,
				ForeignCurrency: row.ForeignCurrency,
				MatchStatus:     model.RecordUnmatched,
				Fingerprint:     fp,
			})
		case model.SourceBank:
			charges = append(charges, &model.BankCharge{
				ChargeID:        model.GenerateUUIDWithSuffix("chg"),
				OwnerID:         ownerID,
				TransactionDate: row.TransactionDate,
				Description:     row.Description,
				Amount:          row.Amount,
				CCAggregate:     row.CCAggregate,
				Fingerprint:     fp,
			})
		default:
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Unknown source type: "+row.SourceType, nil)
		}
	}

	inserted := 0
	if len(purchases) > 0 {
		n, err := f.datasource.BulkInsertPurchases(ctx, purchases)
		if err != nil {
			return nil, err
		}
		inserted += n
		// A concurrent import can land the same fingerprint between our
		// existence check and the insert. ON CONFLICT skips those rows;
		// count them as duplicates.
		duplicates += len(purchases) - n
	}
	if len(charges) > 0 {
		n, err := f.datasource.BulkInsertBankCharges(ctx, charges)
		if err != nil {
			return nil, err
		}
		inserted += n
		duplicates += len(charges) - n
	}

	if inserted > 0 && f.queue != nil {
		// The rows are already committed; anything that goes wrong from here
		// must not fail the import. A reconciliation run can still be
		// triggered manually.
		if cnf, err := config.Fetch(); err != nil {
			logrus.Warnf("failed to enqueue reconciliation for owner %s: %v", ownerID, err)
		} else {
			task := ReconciliationTask{
				OwnerID:                ownerID,
				DateToleranceDays:      cnf.Reconciliation.DateToleranceDays,
				AmountTolerancePercent: cnf.Reconciliation.AmountTolerancePercent,
			}
			if err := f.queue.EnqueueReconciliation(ctx, task); err != nil {
				logrus.Warnf("failed to enqueue reconciliation for owner %s: %v", ownerID, err)
			}
		}
	}

	return &ImportSummary{InsertedCount: inserted, DuplicateCount: duplicates}, nil
}
