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

// AliasMatchType selects how a MerchantAlias pattern is applied to a raw
// transaction description.
type AliasMatchType string

const (
	AliasExact    AliasMatchType = "exact"
	AliasContains AliasMatchType = "contains"
	AliasPrefix   AliasMatchType = "prefix"
)

// ParseAliasMatchType converts a raw string into an AliasMatchType.
func ParseAliasMatchType(s string) (AliasMatchType, error) {
	switch AliasMatchType(s) {
	case AliasExact, AliasContains, AliasPrefix:
		return AliasMatchType(s), nil
	}
	return "", fmt.Errorf("unknown alias match type: %q", s)
}

// MerchantAlias is a per-owner pattern-to-canonical-name override. Aliases
// take precedence over the built-in abbreviation table; higher priority
// wins when several aliases match the same description.
type MerchantAlias struct {
	ID            int64          `json:"-"`
	AliasID       string         `json:"alias_id"`
	OwnerID       string         `json:"owner_id"`
	Pattern       string         `json:"pattern"`
	CanonicalName string         `json:"canonical_name"`
	MatchType     AliasMatchType `json:"match_type"`
	Priority      int            `json:"priority"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
