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
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

func TestGetExistingFingerprints_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	ctx := context.TODO()

	fps := []string{"fp1", "fp2", "fp3"}
	mock.ExpectQuery("SELECT fingerprint FROM purchases").
		WithArgs("owner123", pq.Array(fps)).
		WillReturnRows(sqlmock.NewRows([]string{"fingerprint"}).AddRow("fp1").AddRow("fp3"))

	existing, err := ds.GetExistingFingerprints(ctx, "owner123", fps)
	assert.NoError(t, err)
	assert.True(t, existing["fp1"])
	assert.False(t, existing["fp2"])
	assert.True(t, existing["fp3"])
}

func TestGetExistingFingerprints_EmptyInput(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	existing, err := ds.GetExistingFingerprints(context.TODO(), "owner123", nil)
	assert.NoError(t, err)
	assert.Empty(t, existing)
}

func TestBulkInsertPurchases_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	ctx := context.TODO()

	purchases := []*model.PurchaseRecord{
		{
			PurchaseID:      "prc1",
			OwnerID:         "owner123",
			CardID:          "card9",
			TransactionDate: time.Now(),
			BillingDate:     time.Now(),
			Description:     "COFFEE SHOP",
			Amount:          1500,
			MatchStatus:     model.RecordUnmatched,
			Fingerprint:     "fp1",
		},
		{
			PurchaseID:      "prc2",
			OwnerID:         "owner123",
			CardID:          "card9",
			TransactionDate: time.Now(),
			BillingDate:     time.Now(),
			Description:     "GROCERY",
			Amount:          8200,
			MatchStatus:     model.RecordUnmatched,
			Fingerprint:     "fp2",
		},
	}

	mock.ExpectExec("INSERT INTO purchases").
		WillReturnResult(sqlmock.NewResult(0, 2))

	inserted, err := ds.BulkInsertPurchases(ctx, purchases)
	assert.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestBulkInsertPurchases_DuplicatesSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	purchases := []*model.PurchaseRecord{
		{PurchaseID: "prc1", OwnerID: "owner123", CardID: "card9", Fingerprint: "fp1", MatchStatus: model.RecordUnmatched},
		{PurchaseID: "prc2", OwnerID: "owner123", CardID: "card9", Fingerprint: "fp1", MatchStatus: model.RecordUnmatched},
	}

	// ON CONFLICT DO NOTHING reports only the rows that landed.
	mock.ExpectExec("INSERT INTO purchases").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := ds.BulkInsertPurchases(context.TODO(), purchases)
	assert.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestBulkInsertPurchases_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	inserted, err := ds.BulkInsertPurchases(context.TODO(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestBulkInsertBankCharges_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	charges := []*model.BankCharge{
		{
			ChargeID:        "chg1",
			OwnerID:         "owner123",
			TransactionDate: time.Now(),
			Description:     "VISA CHARGE",
			Amount:          15200,
			CCAggregate:     true,
			Fingerprint:     "fp9",
		},
	}

	mock.ExpectExec("INSERT INTO bank_charges").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := ds.BulkInsertBankCharges(context.TODO(), charges)
	assert.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestBulkInsertBankCharges_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	charges := []*model.BankCharge{
		{ChargeID: "chg1", OwnerID: "owner123", Fingerprint: "fp9"},
	}

	mock.ExpectExec("INSERT INTO bank_charges").
		WillReturnError(fmt.Errorf("failed to insert"))

	_, err = ds.BulkInsertBankCharges(context.TODO(), charges)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInternalServer, err.(apierror.APIError).Code)
}

func TestGetUnmatchedPurchases_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	ctx := context.TODO()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "purchase_id", "owner_id", "card_id", "transaction_date", "billing_date",
		"description", "amount", "foreign_amount", "foreign_currency", "match_status", "fingerprint", "created_at",
	}).
		AddRow(1, "prc1", "owner123", "card9", now, now, "COFFEE SHOP", 1500, 0, nil, "unmatched", "fp1", now).
		AddRow(2, "prc2", "owner123", "card9", now, now, nil, 0, 4200, "USD", "unmatched", "fp2", now)

	mock.ExpectQuery("SELECT p.id, p.purchase_id, p.owner_id").
		WillReturnRows(rows)

	purchases, err := ds.GetUnmatchedPurchases(ctx, "owner123", nil, nil)
	assert.NoError(t, err)
	assert.Len(t, purchases, 2)
	assert.Equal(t, "COFFEE SHOP", purchases[0].Description)
	assert.Equal(t, "", purchases[1].Description)
	assert.Equal(t, int64(4200), purchases[1].EffectiveAmount())
}

func TestGetUnmatchedPurchases_WindowArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT p.id, p.purchase_id, p.owner_id").
		WithArgs("owner123", nullableDate(&from), nullableDate(&to)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "purchase_id", "owner_id", "card_id", "transaction_date", "billing_date",
			"description", "amount", "foreign_amount", "foreign_currency", "match_status", "fingerprint", "created_at",
		}))

	purchases, err := ds.GetUnmatchedPurchases(context.TODO(), "owner123", &from, &to)
	assert.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestGetOpenBankCharges_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "charge_id", "owner_id", "transaction_date", "description", "amount", "cc_aggregate", "fingerprint", "created_at",
	}).AddRow(1, "chg1", "owner123", now, "VISA CHARGE", 15200, true, "fp9", now)

	mock.ExpectQuery("SELECT c.id, c.charge_id, c.owner_id").
		WillReturnRows(rows)

	charges, err := ds.GetOpenBankCharges(context.TODO(), "owner123", nil, nil)
	assert.NoError(t, err)
	assert.Len(t, charges, 1)
	assert.Equal(t, "chg1", charges[0].ChargeID)
	assert.True(t, charges[0].CCAggregate)
}

func TestGetOpenBankCharges_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT c.id, c.charge_id, c.owner_id").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err = ds.GetOpenBankCharges(context.TODO(), "owner123", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInternalServer, err.(apierror.APIError).Code)
}

func TestGetPurchasesByOwner_Pagination(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("SELECT id, purchase_id, owner_id").
		WithArgs("owner123", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "purchase_id", "owner_id", "card_id", "transaction_date", "billing_date",
			"description", "amount", "foreign_amount", "foreign_currency", "match_status", "fingerprint", "created_at",
		}).AddRow(41, "prc41", "owner123", "card9", now, now, "GROCERY", 8200, 0, nil, "unmatched", "fp41", now))

	purchases, err := ds.GetPurchasesByOwner(context.TODO(), "owner123", 20, 40)
	assert.NoError(t, err)
	assert.Len(t, purchases, 1)
	assert.Equal(t, "prc41", purchases[0].PurchaseID)
}
