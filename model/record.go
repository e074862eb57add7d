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

import "time"

// Source type tags carried by imported statement rows. The tag participates
// in the row fingerprint, so the same merchant line arriving once from a
// card export and once from a bank export never collides.
const (
	SourceCreditCard = "credit-card"
	SourceBank       = "bank"
)

// Purchase match statuses. A purchase only becomes "matched" when a human
// approves the match result that references it.
const (
	RecordUnmatched = "unmatched"
	RecordMatched   = "matched"
)

// StatementRow is a single line of an uploaded statement, before dedup
// filtering. Rows tagged SourceCreditCard become PurchaseRecords, rows
// tagged SourceBank become BankCharges.
type StatementRow struct {
	SourceType      string    `json:"source_type"`
	CardID          string    `json:"card_id"`
	TransactionDate time.Time `json:"transaction_date"`
	BillingDate     time.Time `json:"billing_date"`
	Description     string    `json:"description"`
	Amount          int64     `json:"amount"`
	ForeignAmount   int64     `json:"foreign_amount,omitempty"`
	ForeignCurrency string    `json:"foreign_currency,omitempty"`
	CCAggregate     bool      `json:"cc_aggregate"`
}

// PurchaseRecord is an individual credit-card line item. It is immutable
// after import except for its match status and match linkage.
type PurchaseRecord struct {
	ID              int64     `json:"-"`
	PurchaseID      string    `json:"purchase_id"`
	OwnerID         string    `json:"owner_id"`
	CardID          string    `json:"card_id"`
	TransactionDate time.Time `json:"transaction_date"`
	BillingDate     time.Time `json:"billing_date"`
	Description     string    `json:"description"`
	Amount          int64     `json:"amount"`
	ForeignAmount   int64     `json:"foreign_amount,omitempty"`
	ForeignCurrency string    `json:"foreign_currency,omitempty"`
	MatchStatus     string    `json:"match_status"`
	Fingerprint     string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// EffectiveAmount returns the amount used for clustering and matching:
// the foreign-currency amount when the local amount is absent, otherwise
// the local amount. Some card exports only carry the foreign leg until the
// billing cycle closes.
func (p *PurchaseRecord) EffectiveAmount() int64 {
	if p.Amount == 0 && p.ForeignAmount != 0 {
		return p.ForeignAmount
	}
	return p.Amount
}

// BankCharge is a bank-statement line. Only lines flagged CCAggregate are
// candidates for credit-card reconciliation; ordinary bank transactions
// keep the flag off and are ignored by the engine.
type BankCharge struct {
	ID              int64     `json:"-"`
	ChargeID        string    `json:"charge_id"`
	OwnerID         string    `json:"owner_id"`
	TransactionDate time.Time `json:"transaction_date"`
	Description     string    `json:"description"`
	Amount          int64     `json:"amount"`
	CCAggregate     bool      `json:"cc_aggregate"`
	Fingerprint     string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}
