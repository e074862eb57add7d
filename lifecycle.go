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

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// SetMatchStatus moves a pending match to approved or rejected. The
// transition is a compare-and-set in the store, so of two racing callers
// exactly one succeeds and the other receives a conflict. Approving marks
// member purchases matched; rejecting releases the charge and members for
// future runs.
func (f *Finboard) SetMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) (*model.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "Setting Match Status")
	defer span.End()

	if matchID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Match ID is required", nil)
	}
	if !model.MatchPending.CanTransitionTo(status) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("Status must be '%s' or '%s', got '%s'", model.MatchApproved, model.MatchRejected, status), nil)
	}

	return f.datasource.TransitionMatchStatus(ctx, matchID, status)
}

// Unmatch tears a match down regardless of its current status: the match
// is deleted, its member purchases reset to unmatched, and the bank
// charge becomes eligible for future runs. When purchaseIDs are supplied
// they must be exactly the match's members; a mismatch means the caller
// is looking at a stale view of the match.
func (f *Finboard) Unmatch(ctx context.Context, matchID string, purchaseIDs []string) error {
	ctx, span := tracer.Start(ctx, "Unmatching Match")
	defer span.End()

	if matchID == "" {
		return apierror.NewAPIError(apierror.ErrBadRequest, "Match ID is required", nil)
	}

	match, err := f.datasource.GetMatchResult(ctx, matchID)
	if err != nil {
		return err
	}

	if len(purchaseIDs) > 0 {
		members := make(map[string]bool, len(match.PurchaseIDs))
		for _, id := range match.PurchaseIDs {
			members[id] = true
		}
		for _, id := range purchaseIDs {
			if !members[id] {
				return apierror.NewAPIError(apierror.ErrConflict,
					fmt.Sprintf("Purchase '%s' is not a member of match '%s'", id, matchID), nil)
			}
		}
	}

	return f.datasource.DeleteMatchResult(ctx, matchID)
}

// GetMatch retrieves a single match with its ordered member purchases.
func (f *Finboard) GetMatch(ctx context.Context, matchID string) (*model.MatchResult, error) {
	if matchID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Match ID is required", nil)
	}
	return f.datasource.GetMatchResult(ctx, matchID)
}

// GetMatchesByOwner lists all matches for an owner, newest first.
func (f *Finboard) GetMatchesByOwner(ctx context.Context, ownerID string) ([]*model.MatchResult, error) {
	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Owner ID is required", nil)
	}
	return f.datasource.GetMatchResultsByOwner(ctx, ownerID)
}
