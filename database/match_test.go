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
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

func matchColumns() []string {
	return []string{
		"id", "match_id", "owner_id", "card_id", "charge_date", "charge_id",
		"purchase_total", "bank_amount", "discrepancy", "confidence", "vat_amount",
		"status", "created_at", "updated_at", "purchase_ids",
	}
}

func TestRecordMatchResults_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	ctx := context.TODO()

	m := &model.MatchResult{
		MatchID:       "mtc1",
		OwnerID:       "owner123",
		CardID:        "card9",
		ChargeDate:    time.Now(),
		ChargeID:      "chg1",
		PurchaseIDs:   []string{"prc1", "prc2"},
		PurchaseTotal: 15000,
		BankAmount:    15200,
		Discrepancy:   200,
		Confidence:    58.3,
		VatAmount:     2288,
		Status:        model.MatchPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs(m.MatchID, m.OwnerID, m.CardID, m.ChargeDate, m.ChargeID,
			m.PurchaseTotal, m.BankAmount, m.Discrepancy, m.Confidence, m.VatAmount, m.Status).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO match_purchases").
		WithArgs("mtc1", "prc1", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO match_purchases").
		WithArgs("mtc1", "prc2", 1).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = ds.RecordMatchResults(ctx, []*model.MatchResult{m})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMatchResults_RollbackOnMemberFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	m := &model.MatchResult{
		MatchID:     "mtc1",
		OwnerID:     "owner123",
		CardID:      "card9",
		ChargeDate:  time.Now(),
		ChargeID:    "chg1",
		PurchaseIDs: []string{"prc1"},
		Status:      model.MatchPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO match_purchases").
		WillReturnError(fmt.Errorf("foreign key violation"))
	mock.ExpectRollback()

	err = ds.RecordMatchResults(context.TODO(), []*model.MatchResult{m})
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInternalServer, err.(apierror.APIError).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMatchResults_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	assert.NoError(t, ds.RecordMatchResults(context.TODO(), nil))
}

func TestGetMatchResult_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("SELECT m.id, m.match_id, m.owner_id").
		WithArgs("mtc1").
		WillReturnRows(sqlmock.NewRows(matchColumns()).
			AddRow(1, "mtc1", "owner123", "card9", now, "chg1",
				15000, 15200, 200, 58.3, 2288, "pending", now, now, "{prc1,prc2}"))

	m, err := ds.GetMatchResult(context.TODO(), "mtc1")
	assert.NoError(t, err)
	assert.Equal(t, "mtc1", m.MatchID)
	assert.Equal(t, model.MatchPending, m.Status)
	assert.Equal(t, []string{"prc1", "prc2"}, m.PurchaseIDs)
	assert.Equal(t, int64(200), m.Discrepancy)
}

func TestGetMatchResult_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT m.id, m.match_id, m.owner_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(matchColumns()))

	_, err = ds.GetMatchResult(context.TODO(), "missing")
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrNotFound, err.(apierror.APIError).Code)
}

func TestGetMatchResultsByOwner_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("SELECT m.id, m.match_id, m.owner_id").
		WithArgs("owner123").
		WillReturnRows(sqlmock.NewRows(matchColumns()).
			AddRow(2, "mtc2", "owner123", "card9", now, "chg2",
				8200, 8200, 0, 100.0, 1251, "approved", now, now, "{prc3}").
			AddRow(1, "mtc1", "owner123", "card9", now, "chg1",
				15000, 15200, 200, 58.3, 2288, "pending", now, now, "{prc1,prc2}"))

	matches, err := ds.GetMatchResultsByOwner(context.TODO(), "owner123")
	assert.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, "mtc2", matches[0].MatchID)
	assert.Equal(t, model.MatchApproved, matches[0].Status)
}

func TestTransitionMatchStatus_Approve(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("mtc1", model.MatchApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE purchases SET match_status").
		WithArgs("mtc1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT m.id, m.match_id, m.owner_id").
		WithArgs("mtc1").
		WillReturnRows(sqlmock.NewRows(matchColumns()).
			AddRow(1, "mtc1", "owner123", "card9", now, "chg1",
				15000, 15200, 200, 58.3, 2288, "approved", now, now, "{prc1,prc2}"))

	m, err := ds.TransitionMatchStatus(context.TODO(), "mtc1", model.MatchApproved)
	assert.NoError(t, err)
	assert.Equal(t, model.MatchApproved, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionMatchStatus_Reject(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("mtc1", model.MatchRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT m.id, m.match_id, m.owner_id").
		WithArgs("mtc1").
		WillReturnRows(sqlmock.NewRows(matchColumns()).
			AddRow(1, "mtc1", "owner123", "card9", now, "chg1",
				15000, 15200, 200, 58.3, 2288, "rejected", now, now, "{prc1,prc2}"))

	m, err := ds.TransitionMatchStatus(context.TODO(), "mtc1", model.MatchRejected)
	assert.NoError(t, err)
	assert.Equal(t, model.MatchRejected, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionMatchStatus_AlreadyDecided(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("mtc1", model.MatchApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM matches").
		WithArgs("mtc1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))
	mock.ExpectRollback()

	_, err = ds.TransitionMatchStatus(context.TODO(), "mtc1", model.MatchApproved)
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
}

func TestTransitionMatchStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("missing", model.MatchApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM matches").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err = ds.TransitionMatchStatus(context.TODO(), "missing", model.MatchApproved)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrNotFound, err.(apierror.APIError).Code)
}

func TestDeleteMatchResult_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchases SET match_status").
		WithArgs("mtc1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM matches").
		WithArgs("mtc1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = ds.DeleteMatchResult(context.TODO(), "mtc1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMatchResult_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE purchases SET match_status").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM matches").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = ds.DeleteMatchResult(context.TODO(), "missing")
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrNotFound, err.(apierror.APIError).Code)
}
