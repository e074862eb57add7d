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
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/finboardhq/finboard/database/mocks"
	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

func TestSetMatchStatus_Approve(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	approved := &model.MatchResult{MatchID: "mch1", Status: model.MatchApproved}
	mockDS.On("TransitionMatchStatus", tmock.Anything, "mch1", model.MatchApproved).Return(approved, nil)

	m, err := svc.SetMatchStatus(context.Background(), "mch1", model.MatchApproved)
	assert.NoError(t, err)
	assert.Equal(t, model.MatchApproved, m.Status)
	mockDS.AssertExpectations(t)
}

func TestSetMatchStatus_IllegalTarget(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	// pending is not a legal target; neither is an unknown status.
	_, err := svc.SetMatchStatus(context.Background(), "mch1", model.MatchPending)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInvalidInput, err.(apierror.APIError).Code)

	_, err = svc.SetMatchStatus(context.Background(), "mch1", model.MatchStatus("archived"))
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInvalidInput, err.(apierror.APIError).Code)

	mockDS.AssertNotCalled(t, "TransitionMatchStatus", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestSetMatchStatus_ConflictPropagates(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	conflict := apierror.NewAPIError(apierror.ErrConflict, "Match 'mch1' is approved and can no longer transition to rejected", nil)
	mockDS.On("TransitionMatchStatus", tmock.Anything, "mch1", model.MatchRejected).Return(nil, conflict)

	_, err := svc.SetMatchStatus(context.Background(), "mch1", model.MatchRejected)
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
}

func TestSetMatchStatus_MissingID(t *testing.T) {
	svc := &Finboard{datasource: new(mocks.MockDataSource)}

	_, err := svc.SetMatchStatus(context.Background(), "", model.MatchApproved)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrBadRequest, err.(apierror.APIError).Code)
}

func TestUnmatch_DeletesMatch(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	match := &model.MatchResult{
		MatchID:     "mch1",
		Status:      model.MatchApproved,
		PurchaseIDs: []string{"prc1", "prc2", "prc3"},
	}
	mockDS.On("GetMatchResult", tmock.Anything, "mch1").Return(match, nil)
	mockDS.On("DeleteMatchResult", tmock.Anything, "mch1").Return(nil)

	err := svc.Unmatch(context.Background(), "mch1", []string{"prc1", "prc2", "prc3"})
	assert.NoError(t, err)
	mockDS.AssertExpectations(t)
}

func TestUnmatch_WorksWithoutPurchaseList(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	match := &model.MatchResult{MatchID: "mch1", Status: model.MatchRejected, PurchaseIDs: []string{"prc1"}}
	mockDS.On("GetMatchResult", tmock.Anything, "mch1").Return(match, nil)
	mockDS.On("DeleteMatchResult", tmock.Anything, "mch1").Return(nil)

	assert.NoError(t, svc.Unmatch(context.Background(), "mch1", nil))
}

func TestUnmatch_StaleMemberListConflicts(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	match := &model.MatchResult{MatchID: "mch1", Status: model.MatchPending, PurchaseIDs: []string{"prc1"}}
	mockDS.On("GetMatchResult", tmock.Anything, "mch1").Return(match, nil)

	err := svc.Unmatch(context.Background(), "mch1", []string{"prc1", "prc9"})
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
	mockDS.AssertNotCalled(t, "DeleteMatchResult", tmock.Anything, tmock.Anything)
}

func TestUnmatch_NotFound(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	svc := &Finboard{datasource: mockDS}

	notFound := apierror.NewAPIError(apierror.ErrNotFound, "Match with ID 'missing' not found", nil)
	mockDS.On("GetMatchResult", tmock.Anything, "missing").Return(nil, notFound)

	err := svc.Unmatch(context.Background(), "missing", nil)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrNotFound, err.(apierror.APIError).Code)
}
