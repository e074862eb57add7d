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
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// GetExistingFingerprints returns, out of the provided fingerprints, the
// set already stored for this owner. A single round trip covers both the
// purchases and bank_charges tables so import latency stays bounded by
// batch count, not row count.
func (d Datasource) GetExistingFingerprints(ctx context.Context, ownerID string, fingerprints []string) (map[string]bool, error) {
	ctx, span := otel.Tracer("Import").Start(ctx, "Fetching existing fingerprints")
	defer span.End()

	if len(fingerprints) == 0 {
		return map[string]bool{}, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT fingerprint FROM purchases WHERE owner_id = $1 AND fingerprint = ANY($2)
		UNION
		SELECT fingerprint FROM bank_charges WHERE owner_id = $1 AND fingerprint = ANY($2)
	`, ownerID, pq.Array(fingerprints))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch existing fingerprints", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan fingerprint", err)
		}
		existing[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over fingerprints", err)
	}

	return existing, nil
}

// BulkInsertPurchases inserts all purchases in one statement. Rows whose
// (owner, fingerprint) pair already exists are skipped, so a concurrent
// import of the same file cannot produce duplicates either.
func (d Datasource) BulkInsertPurchases(ctx context.Context, purchases []*model.PurchaseRecord) (int, error) {
	ctx, span := otel.Tracer("Import").Start(ctx, "Bulk inserting purchases")
	defer span.End()

	if len(purchases) == 0 {
		return 0, nil
	}

	var (
		placeholders []string
		args         []interface{}
	)
	for i, p := range purchases {
		base := i * 11
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10, base+11))
		args = append(args, p.PurchaseID, p.OwnerID, p.CardID, p.TransactionDate, p.BillingDate,
			p.Description, p.Amount, p.ForeignAmount, p.ForeignCurrency, p.MatchStatus, p.Fingerprint)
	}

	query := fmt.Sprintf(`
		INSERT INTO purchases(
			purchase_id, owner_id, card_id, transaction_date, billing_date,
			description, amount, foreign_amount, foreign_currency, match_status, fingerprint
		) VALUES %s
		ON CONFLICT (owner_id, fingerprint) DO NOTHING
	`, strings.Join(placeholders, ", "))

	res, err := d.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to bulk insert purchases", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return int(inserted), nil
}

// BulkInsertBankCharges inserts all bank charges in one statement, with
// the same duplicate-skip behaviour as BulkInsertPurchases.
func (d Datasource) BulkInsertBankCharges(ctx context.Context, charges []*model.BankCharge) (int, error) {
	ctx, span := otel.Tracer("Import").Start(ctx, "Bulk inserting bank charges")
	defer span.End()

	if len(charges) == 0 {
		return 0, nil
	}

	var (
		placeholders []string
		args         []interface{}
	)
	for i, c := range charges {
		base := i * 7
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, c.ChargeID, c.OwnerID, c.TransactionDate, c.Description, c.Amount, c.CCAggregate, c.Fingerprint)
	}

	query := fmt.Sprintf(`
		INSERT INTO bank_charges(
			charge_id, owner_id, transaction_date, description, amount, cc_aggregate, fingerprint
		) VALUES %s
		ON CONFLICT (owner_id, fingerprint) DO NOTHING
	`, strings.Join(placeholders, ", "))

	res, err := d.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to bulk insert bank charges", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return int(inserted), nil
}

// GetUnmatchedPurchases loads every purchase for the owner that is
// unmatched and not a member of an active (pending or approved) match,
// optionally limited to a billing-date window. Ordering is deterministic
// so reruns cluster identically.
func (d Datasource) GetUnmatchedPurchases(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.PurchaseRecord, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching unmatched purchases")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT p.id, p.purchase_id, p.owner_id, p.card_id, p.transaction_date, p.billing_date,
			p.description, p.amount, p.foreign_amount, p.foreign_currency, p.match_status, p.fingerprint, p.created_at
		FROM purchases p
		WHERE p.owner_id = $1
			AND p.match_status = 'unmatched'
			AND NOT EXISTS (
				SELECT 1 FROM match_purchases mp
				JOIN matches m ON m.match_id = mp.match_id
				WHERE mp.purchase_id = p.purchase_id AND m.status IN ('pending', 'approved')
			)
			AND ($2::date IS NULL OR p.billing_date >= $2)
			AND ($3::date IS NULL OR p.billing_date <= $3)
		ORDER BY p.billing_date, p.purchase_id
	`, ownerID, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve unmatched purchases", err)
	}
	defer rows.Close()

	var purchases []*model.PurchaseRecord
	for rows.Next() {
		p := &model.PurchaseRecord{}
		var description, foreignCurrency sql.NullString
		err = rows.Scan(
			&p.ID, &p.PurchaseID, &p.OwnerID, &p.CardID, &p.TransactionDate, &p.BillingDate,
			&description, &p.Amount, &p.ForeignAmount, &foreignCurrency, &p.MatchStatus, &p.Fingerprint, &p.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan purchase data", err)
		}
		p.Description = description.String
		p.ForeignCurrency = foreignCurrency.String
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over purchases", err)
	}

	return purchases, nil
}

// GetOpenBankCharges loads every CC-aggregate bank charge for the owner
// not already consumed by an active match, optionally limited to a
// transaction-date window.
func (d Datasource) GetOpenBankCharges(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.BankCharge, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching open bank charges")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT c.id, c.charge_id, c.owner_id, c.transaction_date, c.description, c.amount, c.cc_aggregate, c.fingerprint, c.created_at
		FROM bank_charges c
		WHERE c.owner_id = $1
			AND c.cc_aggregate = TRUE
			AND NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE m.charge_id = c.charge_id AND m.status IN ('pending', 'approved')
			)
			AND ($2::date IS NULL OR c.transaction_date >= $2)
			AND ($3::date IS NULL OR c.transaction_date <= $3)
		ORDER BY c.transaction_date, c.charge_id
	`, ownerID, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve open bank charges", err)
	}
	defer rows.Close()

	var charges []*model.BankCharge
	for rows.Next() {
		c := &model.BankCharge{}
		var description sql.NullString
		err = rows.Scan(
			&c.ID, &c.ChargeID, &c.OwnerID, &c.TransactionDate, &description, &c.Amount, &c.CCAggregate, &c.Fingerprint, &c.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan bank charge data", err)
		}
		c.Description = description.String
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over bank charges", err)
	}

	return charges, nil
}

// GetPurchasesByOwner retrieves purchases in a paginated manner, newest
// billing date first. Used by the merchant summary view.
func (d Datasource) GetPurchasesByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.PurchaseRecord, error) {
	ctx, span := otel.Tracer("Merchant").Start(ctx, "Fetching purchases by owner with pagination")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, purchase_id, owner_id, card_id, transaction_date, billing_date,
			description, amount, foreign_amount, foreign_currency, match_status, fingerprint, created_at
		FROM purchases
		WHERE owner_id = $1
		ORDER BY billing_date DESC, purchase_id
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve purchases", err)
	}
	defer rows.Close()

	var purchases []*model.PurchaseRecord
	for rows.Next() {
		p := &model.PurchaseRecord{}
		var description, foreignCurrency sql.NullString
		err = rows.Scan(
			&p.ID, &p.PurchaseID, &p.OwnerID, &p.CardID, &p.TransactionDate, &p.BillingDate,
			&description, &p.Amount, &p.ForeignAmount, &foreignCurrency, &p.MatchStatus, &p.Fingerprint, &p.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan purchase data", err)
		}
		p.Description = description.String
		p.ForeignCurrency = foreignCurrency.String
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over purchases", err)
	}

	return purchases, nil
}

func nullableDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
