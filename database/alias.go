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
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/finboardhq/finboard/internal/apierror"
	"github.com/finboardhq/finboard/model"
)

// RecordMerchantAlias persists a new alias and invalidates the owner's
// cached alias list so the normalizer sees it on the next run.
func (d Datasource) RecordMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	ctx, span := otel.Tracer("Merchant").Start(ctx, "Recording merchant alias")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO merchant_aliases(alias_id, owner_id, pattern, canonical_name, match_type, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, alias.AliasID, alias.OwnerID, alias.Pattern, alias.CanonicalName, alias.MatchType, alias.Priority)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record merchant alias", err)
	}

	d.invalidateAliasCache(ctx, alias.OwnerID)
	return nil
}

// GetMerchantAliases retrieves all aliases for an owner, highest priority
// first so the normalizer can take the first hit. The list is read on
// every normalization pass and changes rarely, so it is served through
// the cache when one is wired.
func (d Datasource) GetMerchantAliases(ctx context.Context, ownerID string) ([]*model.MerchantAlias, error) {
	ctx, span := otel.Tracer("Merchant").Start(ctx, "Fetching merchant aliases")
	defer span.End()

	cacheKey := fmt.Sprintf("merchant-aliases:%s", ownerID)
	if d.Cache != nil {
		var cached []*model.MerchantAlias
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && cached != nil {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, alias_id, owner_id, pattern, canonical_name, match_type, priority, created_at, updated_at
		FROM merchant_aliases
		WHERE owner_id = $1
		ORDER BY priority DESC, alias_id
	`, ownerID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve merchant aliases", err)
	}
	defer rows.Close()

	var aliases []*model.MerchantAlias
	for rows.Next() {
		a := &model.MerchantAlias{}
		var matchType string
		err = rows.Scan(&a.ID, &a.AliasID, &a.OwnerID, &a.Pattern, &a.CanonicalName, &matchType, &a.Priority, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan merchant alias", err)
		}
		a.MatchType = model.AliasMatchType(matchType)
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over merchant aliases", err)
	}

	if d.Cache != nil && aliases != nil {
		_ = d.Cache.Set(ctx, cacheKey, aliases, 10*time.Minute)
	}

	return aliases, nil
}

// UpdateMerchantAlias overwrites the mutable fields of an existing alias.
func (d Datasource) UpdateMerchantAlias(ctx context.Context, alias *model.MerchantAlias) error {
	ctx, span := otel.Tracer("Merchant").Start(ctx, "Updating merchant alias")
	defer span.End()

	res, err := d.Conn.ExecContext(ctx, `
		UPDATE merchant_aliases
		SET pattern = $2, canonical_name = $3, match_type = $4, priority = $5, updated_at = NOW()
		WHERE alias_id = $1
	`, alias.AliasID, alias.Pattern, alias.CanonicalName, alias.MatchType, alias.Priority)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update merchant alias", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Alias with ID '%s' not found", alias.AliasID), nil)
	}

	d.invalidateAliasCache(ctx, alias.OwnerID)
	return nil
}

// DeleteMerchantAlias removes an alias by ID.
func (d Datasource) DeleteMerchantAlias(ctx context.Context, aliasID string) error {
	ctx, span := otel.Tracer("Merchant").Start(ctx, "Deleting merchant alias")
	defer span.End()

	var ownerID string
	err := d.Conn.QueryRowContext(ctx, `
		DELETE FROM merchant_aliases WHERE alias_id = $1 RETURNING owner_id
	`, aliasID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Alias with ID '%s' not found", aliasID), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete merchant alias", err)
	}

	d.invalidateAliasCache(ctx, ownerID)
	return nil
}

func (d Datasource) invalidateAliasCache(ctx context.Context, ownerID string) {
	if d.Cache == nil {
		return
	}
	_ = d.Cache.Delete(ctx, fmt.Sprintf("merchant-aliases:%s", ownerID))
}
