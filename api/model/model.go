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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/finboardhq/finboard/model"
)

const dateFormat = "2006-01-02"

// ImportRow is one statement line in an import request. Dates arrive as
// YYYY-MM-DD strings.
type ImportRow struct {
	SourceType      string `json:"source_type"`
	CardID          string `json:"card_id"`
	TransactionDate string `json:"transaction_date"`
	BillingDate     string `json:"billing_date"`
	Description     string `json:"description"`
	Amount          int64  `json:"amount"`
	ForeignAmount   int64  `json:"foreign_amount"`
	ForeignCurrency string `json:"foreign_currency"`
	CCAggregate     bool   `json:"cc_aggregate"`
}

type ImportRequest struct {
	OwnerID string      `json:"owner_id"`
	Rows    []ImportRow `json:"rows"`
}

type ReconcileRequest struct {
	OwnerID                string   `json:"owner_id"`
	DateToleranceDays      *int     `json:"date_tolerance_days"`
	AmountTolerancePercent *float64 `json:"amount_tolerance_percent"`
	VatRatePercent         *float64 `json:"vat_rate_percent"`
	From                   string   `json:"from"`
	To                     string   `json:"to"`
}

type UpdateMatchStatusRequest struct {
	Status string `json:"status"`
}

type UnmatchRequest struct {
	PurchaseIDs []string `json:"purchase_ids"`
}

type MerchantAliasRequest struct {
	OwnerID       string `json:"owner_id"`
	Pattern       string `json:"pattern"`
	CanonicalName string `json:"canonical_name"`
	MatchType     string `json:"match_type"`
	Priority      int    `json:"priority"`
}

func validateDate(value interface{}) error {
	dateStr, ok := value.(string)
	if !ok {
		return errors.New("invalid type for date")
	}
	if _, err := time.Parse(dateFormat, dateStr); err != nil {
		return errors.New("please format the date as 'YYYY-MM-DD' (e.g., 2025-03-10)")
	}
	return nil
}

func (r *ImportRow) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SourceType, validation.Required, validation.In(model.SourceCreditCard, model.SourceBank)),
		validation.Field(&r.TransactionDate, validation.Required, validation.By(validateDate)),
		validation.Field(&r.BillingDate, validation.When(r.SourceType == model.SourceCreditCard, validation.Required, validation.By(validateDate))),
		validation.Field(&r.CardID, validation.When(r.SourceType == model.SourceCreditCard, validation.Required)),
		validation.Field(&r.Description, validation.Required),
	)
}

func (r *ImportRequest) ValidateImportRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.Rows, validation.Required, validation.By(func(value interface{}) error {
			rows, ok := value.([]ImportRow)
			if !ok {
				return errors.New("invalid rows type")
			}
			for i := range rows {
				if err := rows[i].Validate(); err != nil {
					return err
				}
			}
			return nil
		})),
	)
}

// ToStatementRows converts the wire rows into model rows. Validation must
// have passed first; unparseable dates are a programming error here.
func (r *ImportRequest) ToStatementRows() []*model.StatementRow {
	rows := make([]*model.StatementRow, 0, len(r.Rows))
	for _, raw := range r.Rows {
		txnDate, _ := time.Parse(dateFormat, raw.TransactionDate)
		billingDate := txnDate
		if raw.BillingDate != "" {
			billingDate, _ = time.Parse(dateFormat, raw.BillingDate)
		}
		rows = append(rows, &model.StatementRow{
			SourceType:      raw.SourceType,
			CardID:          raw.CardID,
			TransactionDate: txnDate,
			BillingDate:     billingDate,
			Description:     raw.Description,
			Amount:          raw.Amount,
			ForeignAmount:   raw.ForeignAmount,
			ForeignCurrency: raw.ForeignCurrency,
			CCAggregate:     raw.CCAggregate,
		})
	}
	return rows
}

func (r *ReconcileRequest) ValidateReconcileRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.DateToleranceDays, validation.By(func(value interface{}) error {
			if r.DateToleranceDays != nil && *r.DateToleranceDays < 0 {
				return errors.New("date tolerance must be non-negative")
			}
			return nil
		})),
		validation.Field(&r.AmountTolerancePercent, validation.By(func(value interface{}) error {
			if r.AmountTolerancePercent != nil && *r.AmountTolerancePercent < 0 {
				return errors.New("amount tolerance must be non-negative")
			}
			return nil
		})),
		validation.Field(&r.From, validation.When(r.From != "", validation.By(validateDate))),
		validation.Field(&r.To, validation.When(r.To != "", validation.By(validateDate))),
	)
}

// Window parses the optional request date window.
func (r *ReconcileRequest) Window() (from, to *time.Time) {
	if r.From != "" {
		t, _ := time.Parse(dateFormat, r.From)
		from = &t
	}
	if r.To != "" {
		t, _ := time.Parse(dateFormat, r.To)
		to = &t
	}
	return from, to
}

func (r *UpdateMatchStatusRequest) ValidateUpdateMatchStatusRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.In(string(model.MatchApproved), string(model.MatchRejected))),
	)
}

func (r *MerchantAliasRequest) ValidateMerchantAliasRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OwnerID, validation.Required),
		validation.Field(&r.Pattern, validation.Required),
		validation.Field(&r.CanonicalName, validation.Required),
		validation.Field(&r.MatchType, validation.Required, validation.In(string(model.AliasExact), string(model.AliasContains), string(model.AliasPrefix))),
	)
}

// ToMerchantAlias converts the request into a model alias.
func (r *MerchantAliasRequest) ToMerchantAlias() *model.MerchantAlias {
	return &model.MerchantAlias{
		OwnerID:       r.OwnerID,
		Pattern:       r.Pattern,
		CanonicalName: r.CanonicalName,
		MatchType:     model.AliasMatchType(r.MatchType),
		Priority:      r.Priority,
	}
}
