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

// Package mocks provides a testify mock of database.IDataSource for
// service-level tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/finboardhq/finboard/model"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) GetExistingFingerprints(ctx context.Context, ownerID string, fingerprints []string) (map[string]bool, error) {
	args := m.Called(ctx, ownerID, fingerprints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockDataSource) BulkInsertPurchases(ctx context.Context, purchases []*model.PurchaseRecord) (int, error) {
	args := m.Called(ctx, purchases)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) BulkInsertBankCharges(ctx context.Context, charges []*model.BankCharge) (int, error) {
	args := m.Called(ctx, charges)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) GetUnmatchedPurchases(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.PurchaseRecord, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) GetOpenBankCharges(ctx context.Context, ownerID string, from, to *time.Time) ([]*model.BankCharge, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.BankCharge), args.Error(1)
}

func (m *MockDataSource) GetPurchasesByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.PurchaseRecord, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PurchaseRecord), args.Error(1)
}

func (m *MockDataSource) RecordMatchResults(ctx context.Context, matches []*model.MatchResult) error {
	args := m.Called(ctx, matches)
	return args.Error(0)
}

func (m *MockDataSource) GetMatchResult(ctx context.Context, matchID string) (*model.MatchResult, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchResult), args.Error(1)
}

func (m *MockDataSource) GetMatchResultsByOwner(ctx context.Context, ownerID string) ([]*model.MatchResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MatchResult), args.Error(1)
}

func (m *MockDataSource) TransitionMatchStatus(ctx context.Context, matchID string, next model.MatchStatus) (*model.MatchResult, error) {
	args := m.Called(ctx, matchID, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchResult), args.Error(1)
}

func (m *MockDataSource) DeleteMatchResult(ctx context.Context, matchID string) error {
	args := m.Called(ctx, matchID)
	return args.Error(0)
}

func (m *MockDataSource) RecordMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}

func (m *MockDataSource) GetMerchantAliases(ctx context.Context, ownerID string) ([]*model.MerchantAlias, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MerchantAlias), args.Error(1)
}

func (m *MockDataSource) UpdateMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	args := m.Called(ctx, alias)
	return args.Error(0)
}

func (m *MockDataSource) DeleteMerchantAlias(ctx context.Context, aliasID string) error {
	args := m.Called(ctx, aliasID)
	return args.Error(0)
}
