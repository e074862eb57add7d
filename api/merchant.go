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
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/finboardhq/finboard/api/model"
	"github.com/finboardhq/finboard/internal/apierror"
)

func (a Api) CreateMerchantAlias(c *gin.Context) {
	var req model2.MerchantAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateMerchantAliasRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alias, err := a.finboard.CreateMerchantAlias(c.Request.Context(), req.ToMerchantAlias())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, alias)
}

func (a Api) UpdateMerchantAlias(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /merchant-aliases/:id"})
		return
	}

	var req model2.MerchantAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateMerchantAliasRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alias := req.ToMerchantAlias()
	alias.AliasID = id
	if err := a.finboard.UpdateMerchantAlias(c.Request.Context(), alias); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alias)
}

func (a Api) DeleteMerchantAlias(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /merchant-aliases/:id"})
		return
	}

	if err := a.finboard.DeleteMerchantAlias(c.Request.Context(), id); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "merchant alias deleted"})
}

func (a Api) GetOwnerMerchantAliases(c *gin.Context) {
	ownerID, passed := c.Params.Get("owner_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required. pass owner_id in the route /owners/:owner_id/merchant-aliases"})
		return
	}

	aliases, err := a.finboard.GetMerchantAliases(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, aliases)
}

// GetOwnerMerchantGroups returns the owner's purchases grouped by
// normalized merchant, with per-group spend totals.
func (a Api) GetOwnerMerchantGroups(c *gin.Context) {
	ownerID, passed := c.Params.Get("owner_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required. pass owner_id in the route /owners/:owner_id/merchant-groups"})
		return
	}

	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groups, err := a.finboard.MerchantGroups(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, groups)
}

// GetOwnerAliasSuggestions proposes alias rules for merchant keys that
// look like near-duplicates of each other.
func (a Api) GetOwnerAliasSuggestions(c *gin.Context) {
	ownerID, passed := c.Params.Get("owner_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required. pass owner_id in the route /owners/:owner_id/merchant-alias-suggestions"})
		return
	}

	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestions, err := a.finboard.SuggestMerchantAliases(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, suggestions)
}

func pagination(c *gin.Context) (limit, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		return 0, 0, apierror.NewAPIError(apierror.ErrBadRequest, "invalid limit", err)
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, apierror.NewAPIError(apierror.ErrBadRequest, "invalid offset", err)
	}
	return limit, offset, nil
}
