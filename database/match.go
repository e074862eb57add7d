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

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// RecordMatchResults persists an entire reconciliation run in one
// transaction: either every proposed match lands with its member rows, or
// none do and the run can simply be retried.
func (d Datasource) RecordMatchResults(ctx context.Context, matches []*model.MatchResult) error {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Recording match results")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, m := range matches {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO matches(
				match_id, owner_id, card_id, charge_date, charge_id,
				purchase_total, bank_amount, discrepancy, confidence, vat_amount, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, m.MatchID, m.OwnerID, m.CardID, m.ChargeDate, m.ChargeID,
			m.PurchaseTotal, m.BankAmount, m.Discrepancy, m.Confidence, m.VatAmount, m.Status)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert match result", err)
		}

		for pos, purchaseID := range m.PurchaseIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO match_purchases(match_id, purchase_id, position) VALUES ($1, $2, $3)
			`, m.MatchID, purchaseID, pos)
			if err != nil {
				return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert match member", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit match results", err)
	}
	return nil
}

// GetMatchResult retrieves a match with its member purchase IDs in cluster
// order.
func (d Datasource) GetMatchResult(ctx context.Context, matchID string) (*model.MatchResult, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching match result")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT m.id, m.match_id, m.owner_id, m.card_id, m.charge_date, m.charge_id,
			m.purchase_total, m.bank_amount, m.discrepancy, m.confidence, m.vat_amount,
			m.status, m.created_at, m.updated_at,
			COALESCE(array_agg(mp.purchase_id ORDER BY mp.position) FILTER (WHERE mp.purchase_id IS NOT NULL), '{}')
		FROM matches m
		LEFT JOIN match_purchases mp ON mp.match_id = m.match_id
		WHERE m.match_id = $1
		GROUP BY m.id
	`, matchID)

	m, err := scanMatchRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Match with ID '%s' not found", matchID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve match result", err)
	}
	return m, nil
}

// GetMatchResultsByOwner retrieves every match for an owner, newest first.
func (d Datasource) GetMatchResultsByOwner(ctx context.Context, ownerID string) ([]*model.MatchResult, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching match results by owner")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT m.id, m.match_id, m.owner_id, m.card_id, m.charge_date, m.charge_id,
			m.purchase_total, m.bank_amount, m.discrepancy, m.confidence, m.vat_amount,
			m.status, m.created_at, m.updated_at,
			COALESCE(array_agg(mp.purchase_id ORDER BY mp.position) FILTER (WHERE mp.purchase_id IS NOT NULL), '{}')
		FROM matches m
		LEFT JOIN match_purchases mp ON mp.match_id = m.match_id
		WHERE m.owner_id = $1
		GROUP BY m.id
		ORDER BY m.created_at DESC, m.match_id
	`, ownerID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve match results", err)
	}
	defer rows.Close()

	var matches []*model.MatchResult
	for rows.Next() {
		m, scanErr := scanMatchRow(rows)
		if scanErr != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan match result", scanErr)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over match results", err)
	}

	return matches, nil
}

// TransitionMatchStatus moves a pending match to approved or rejected with
// a compare-and-set update, so two concurrent decisions on the same match
// cannot both win. Approving also marks the member purchases matched, in
// the same transaction.
func (d Datasource) TransitionMatchStatus(ctx context.Context, matchID string, next model.MatchStatus) (*model.MatchResult, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Transitioning match status")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET status = $2, updated_at = NOW()
		WHERE match_id = $1 AND status = 'pending'
	`, matchID, next)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update match status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		// Distinguish a missing match from one already decided.
		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM matches WHERE match_id = $1`, matchID).Scan(&current)
		if err == sql.ErrNoRows {
			err = apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Match with ID '%s' not found", matchID), err)
			return nil, err
		}
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check match status", err)
		}
		err = apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Match '%s' is %s and can no longer transition to %s", matchID, current, next), nil)
		return nil, err
	}

	if next == model.MatchApproved {
		_, err = tx.ExecContext(ctx, `
			UPDATE purchases SET match_status = 'matched'
			WHERE purchase_id IN (SELECT purchase_id FROM match_purchases WHERE match_id = $1)
		`, matchID)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark purchases matched", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit status transition", err)
	}

	return d.GetMatchResult(ctx, matchID)
}

// DeleteMatchResult removes a match entirely and resets its member
// purchases to unmatched, making both the purchases and the bank charge
// available to future reconciliation runs. Member rows go with the match
// via ON DELETE CASCADE.
func (d Datasource) DeleteMatchResult(ctx context.Context, matchID string) error {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Deleting match result")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		UPDATE purchases SET match_status = 'unmatched'
		WHERE purchase_id IN (SELECT purchase_id FROM match_purchases WHERE match_id = $1)
	`, matchID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset member purchases", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE match_id = $1`, matchID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete match", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		err = apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Match with ID '%s' not found", matchID), nil)
		return err
	}

	if err = tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit unmatch", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatchRow(row rowScanner) (*model.MatchResult, error) {
	m := &model.MatchResult{}
	var status string
	var purchaseIDs pq.StringArray
	err := row.Scan(
		&m.ID, &m.MatchID, &m.OwnerID, &m.CardID, &m.ChargeDate, &m.ChargeID,
		&m.PurchaseTotal, &m.BankAmount, &m.Discrepancy, &m.Confidence, &m.VatAmount,
		&status, &m.CreatedAt, &m.UpdatedAt, &purchaseIDs,
	)
	if err != nil {
		return nil, err
	}
	m.Status = model.MatchStatus(status)
	m.PurchaseIDs = purchaseIDs
	return m, nil
}
