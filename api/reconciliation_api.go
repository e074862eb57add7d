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

	"github.com/gin-gonic/gin"

	"github.com/finboardhq/finboard"
	model2 "github.com/finboardhq/finboard/api/model"
	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/internal/apierror"
)

// RunReconciliation triggers a synchronous reconciliation run for an
// owner. Tolerances default from configuration when the request omits
// them; an explicit zero means exact matching, not "use the default".
func (a Api) RunReconciliation(c *gin.Context) {
	var req model2.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.ValidateReconcileRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opts := finboard.ReconcileOptions{
		DateToleranceDays:      conf.Reconciliation.DateToleranceDays,
		AmountTolerancePercent: conf.Reconciliation.AmountTolerancePercent,
		VatRatePercent:         conf.Reconciliation.VatRatePercent,
	}
	if req.DateToleranceDays != nil {
		opts.DateToleranceDays = *req.DateToleranceDays
	}
	if req.AmountTolerancePercent != nil {
		opts.AmountTolerancePercent = *req.AmountTolerancePercent
	}
	if req.VatRatePercent != nil {
		opts.VatRatePercent = *req.VatRatePercent
	}
	opts.From, opts.To = req.Window()

	matches, err := a.finboard.Reconcile(c.Request.Context(), req.OwnerID, opts)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"matches": matches, "count": len(matches)})
}
