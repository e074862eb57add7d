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
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finboardhq/finboard/internal/apierror"
	redlock "github.com/finboardhq/finboard/internal/lock"
	"github.com/finboardhq/finboard/model"
)

// ReconcileOptions carries the caller-supplied matching parameters. They
// are threaded explicitly into every run; the engine reads no ambient
// tolerance state.
type ReconcileOptions struct {
	DateToleranceDays      int        `json:"date_tolerance_days"`
	AmountTolerancePercent float64    `json:"amount_tolerance_percent"`
	VatRatePercent         float64    `json:"vat_rate_percent"`
	From                   *time.Time `json:"from,omitempty"`
	To                     *time.Time `json:"to,omitempty"`
}

// Lock durations for the per-owner reconciliation lock. A run is bounded
// by the owner's unmatched pool, not external I/O, so two minutes is
// generous.
const (
	reconcileLockDuration = 2 * time.Minute
	reconcileLockWait     = 30 * time.Second
)

// cluster is a group of purchases sharing a card and billing date,
// matched as one unit against a single bank charge.
type cluster struct {
	key         string
	cardID      string
	billingDate time.Time
	members     []*model.PurchaseRecord
	total       int64
}

// candidate is one admissible (cluster, charge) pairing with its
// normalized distances. Candidates compete globally: every pairing within
// tolerance is scored, then assignment proceeds best-first.
type candidate struct {
	cluster      *cluster
	charge       *model.BankCharge
	dateDist     float64 // days between charge date and billing date, normalized to [0,1]
	amountDist   float64 // absolute discrepancy over the tolerance window, normalized to [0,1]
	discrepancy  int64
	combinedDist float64
}

// Reconcile pairs an owner's unmatched purchase clusters against open
// CC-aggregate bank charges within the given tolerances, persists one
// pending MatchResult per accepted pairing, and returns the new matches.
//
// Runs for the same owner are serialized by a redis advisory lock;
// rerunning with an unchanged pool returns an empty list because matched
// records are excluded at load time.
func (f *Finboard) Reconcile(ctx context.Context, ownerID string, opts ReconcileOptions) ([]*model.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "Reconciling Owner")
	defer span.End()

	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}
	if opts.DateToleranceDays < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Date tolerance must be non-negative", nil)
	}
	if opts.AmountTolerancePercent < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Amount tolerance must be non-negative", nil)
	}

	locker := redlock.NewLocker(f.redis, redlock.OwnerKey(ownerID), model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, reconcileLockDuration, reconcileLockWait); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("A reconciliation run is already in progress for owner '%s'", ownerID), err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Warnf("failed to release reconciliation lock for owner %s: %v", ownerID, err)
		}
	}()

	purchases, err := f.datasource.GetUnmatchedPurchases(ctx, ownerID, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	charges, err := f.datasource.GetOpenBankCharges(ctx, ownerID, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 || len(charges) == 0 {
		return []*model.MatchResult{}, nil
	}

	clusters := buildClusters(purchases)
	candidates := buildCandidates(clusters, charges, opts)
	matches := assignMatches(ownerID, candidates, opts)

	if len(matches) == 0 {
		return []*model.MatchResult{}, nil
	}
	if err := f.datasource.RecordMatchResults(ctx, matches); err != nil {
		return nil, err
	}
	logrus.Infof("reconciliation for owner %s produced %d pending matches from %d clusters and %d charges",
		ownerID, len(matches), len(clusters), len(charges))
	return matches, nil
}

// buildClusters groups purchases by (card, billing date). Load order is
// already deterministic, so member order within a cluster is too.
func buildClusters(purchases []*model.PurchaseRecord) []*cluster {
	index := make(map[string]*cluster)
	var order []string
	for _, p := range purchases {
		key := fmt.Sprintf("%s|%s", p.CardID, p.BillingDate.Format("2006-01-02"))
		c, ok := index[key]
		if !ok {
			c = &cluster{key: key, cardID: p.CardID, billingDate: p.BillingDate}
			index[key] = c
			order = append(order, key)
		}
		c.members = append(c.members, p)
		c.total += p.EffectiveAmount()
	}

	clusters := make([]*cluster, 0, len(order))
	for _, key := range order {
		c := index[key]
		if c.total <= 0 {
			logrus.Warnf("cluster %s has non-positive aggregate amount %d, skipping", c.key, c.total)
			continue
		}
		clusters = append(clusters, c)
	}
	return clusters
}

// buildCandidates enumerates every (cluster, charge) pairing admissible
// under the tolerances. Zero tolerance means exact equality on that axis.
func buildCandidates(clusters []*cluster, charges []*model.BankCharge, opts ReconcileOptions) []*candidate {
	var candidates []*candidate
	for _, c := range clusters {
		amountWindow := decimal.NewFromInt(c.total).
			Mul(decimal.NewFromFloat(opts.AmountTolerancePercent)).
			Div(decimal.NewFromInt(100))

		for _, charge := range charges {
			if charge.Amount <= 0 {
				logrus.Warnf("bank charge %s has non-positive amount %d, skipping", charge.ChargeID, charge.Amount)
				continue
			}

			dayDist := daysBetween(charge.TransactionDate, c.billingDate)
			if dayDist > opts.DateToleranceDays {
				continue
			}

			discrepancy := charge.Amount - c.total
			absDiff := decimal.NewFromInt(discrepancy).Abs()
			if absDiff.GreaterThan(amountWindow) {
				continue
			}

			cand := &candidate{
				cluster:     c,
				charge:      charge,
				discrepancy: discrepancy,
			}
			if opts.DateToleranceDays > 0 {
				cand.dateDist = float64(dayDist) / float64(opts.DateToleranceDays)
			}
			if amountWindow.IsPositive() {
				cand.amountDist = absDiff.Div(amountWindow).InexactFloat64()
			}
			cand.combinedDist = cand.dateDist + cand.amountDist
			candidates = append(candidates, cand)
		}
	}
	return candidates
}

// assignMatches resolves the candidate set best-first: smallest combined
// distance wins, ties broken by smallest absolute discrepancy, then
// earliest charge ID, then cluster key. A charge or cluster consumed by a
// winning pairing is excluded from the rest of the run, so a charge
// eligible for two clusters goes to the better-scoring one and the loser
// stays unmatched.
func assignMatches(ownerID string, candidates []*candidate, opts ReconcileOptions) []*model.MatchResult {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.combinedDist != b.combinedDist {
			return a.combinedDist < b.combinedDist
		}
		absA, absB := a.discrepancy, b.discrepancy
		if absA < 0 {
			absA = -absA
		}
		if absB < 0 {
			absB = -absB
		}
		if absA != absB {
			return absA < absB
		}
		if a.charge.ChargeID != b.charge.ChargeID {
			return a.charge.ChargeID < b.charge.ChargeID
		}
		return a.cluster.key < b.cluster.key
	})

	consumedCharges := make(map[string]bool)
	consumedClusters := make(map[string]bool)

	var matches []*model.MatchResult
	for _, cand := range candidates {
		if consumedCharges[cand.charge.ChargeID] || consumedClusters[cand.cluster.key] {
			continue
		}
		consumedCharges[cand.charge.ChargeID] = true
		consumedClusters[cand.cluster.key] = true

		purchaseIDs := make([]string, 0, len(cand.cluster.members))
		for _, p := range cand.cluster.members {
			purchaseIDs = append(purchaseIDs, p.PurchaseID)
		}

		matches = append(matches, &model.MatchResult{
			MatchID:       model.GenerateUUIDWithSuffix("mch"),
			OwnerID:       ownerID,
			CardID:        cand.cluster.cardID,
			ChargeDate:    cand.charge.TransactionDate,
			ChargeID:      cand.charge.ChargeID,
			PurchaseIDs:   purchaseIDs,
			PurchaseTotal: cand.cluster.total,
			BankAmount:    cand.charge.Amount,
			Discrepancy:   cand.discrepancy,
			Confidence:    confidenceScore(cand.dateDist, cand.amountDist),
			VatAmount:     model.VatFromInclusiveTotal(cand.charge.Amount, opts.VatRatePercent),
			Status:        model.MatchPending,
		})
	}
	return matches
}

// confidenceScore blends date and amount proximity into [floor, 100].
// Both distances are already normalized to [0,1] against their tolerance
// windows; each contributes half the available degradation, so an exact
// match on both axes scores 100 and a match at both boundaries scores the
// floor of 50. The blend is linear, hence monotonic in each distance.
func confidenceScore(dateDist, amountDist float64) float64 {
	return 100 - 50*(0.5*dateDist+0.5*amountDist)
}

// daysBetween returns the absolute whole-day distance between two dates,
// ignoring time of day.
func daysBetween(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(aDay.Sub(bDay).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
