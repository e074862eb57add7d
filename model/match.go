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
	"fmt"
	"time"
)

// MatchStatus is the lifecycle state of a MatchResult. Transitions are
// guarded by CanTransitionTo so an illegal move is rejected at the model
// boundary before any row is touched.
type MatchStatus string

const (
	// MatchPending is the initial state of every engine-created match.
	MatchPending MatchStatus = "pending"
	// MatchApproved is a user-confirmed match. Members are persisted as matched.
	MatchApproved MatchStatus = "approved"
	// MatchRejected frees the charge and member purchases for future runs.
	MatchRejected MatchStatus = "rejected"
)

// ParseMatchStatus converts a raw string into a MatchStatus.
func ParseMatchStatus(s string) (MatchStatus, error) {
	switch MatchStatus(s) {
	case MatchPending, MatchApproved, MatchRejected:
		return MatchStatus(s), nil
	}
	return "", fmt.Errorf("unknown match status: %q", s)
}

// CanTransitionTo reports whether moving from the current status to next is
// a legal lifecycle transition. Only pending matches move; approved and
// rejected are terminal for status updates (unmatch deletes the row
// entirely and is allowed from any state).
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if s != MatchPending {
		return false
	}
	return next == MatchApproved || next == MatchRejected
}

// Active reports whether a match in this status still consumes its bank
// charge and member purchases. Rejected matches release their members.
func (s MatchStatus) Active() bool {
	return s == MatchPending || s == MatchApproved
}

// MatchResult is one proposed pairing of a purchase cluster with a single
// bank charge. The engine creates it pending; the lifecycle manager moves
// it to approved or rejected, or deletes it on unmatch.
//
// Invariants: a bank charge is referenced by at most one active match, and
// a purchase belongs to at most one active match.
type MatchResult struct {
	ID            int64       `json:"-"`
	MatchID       string      `json:"match_id"`
	OwnerID       string      `json:"owner_id"`
	CardID        string      `json:"card_id"`
	ChargeDate    time.Time   `json:"charge_date"`
	ChargeID      string      `json:"charge_id"`
	PurchaseIDs   []string    `json:"purchase_ids"`
	PurchaseTotal int64       `json:"purchase_total"`
	BankAmount    int64       `json:"bank_amount"`
	Discrepancy   int64       `json:"discrepancy"`
	Confidence    float64     `json:"confidence"`
	VatAmount     int64       `json:"vat_amount"`
	Status        MatchStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
