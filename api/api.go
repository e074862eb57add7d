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
	"github.com/gin-gonic/gin"

	"github.com/finboardhq/finboard"
	"github.com/finboardhq/finboard/api/middleware"
	"github.com/finboardhq/finboard/config"
)

type Api struct {
	finboard *finboard.Finboard
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/imports", a.ImportStatementRows)

	router.POST("/reconciliations", a.RunReconciliation)

	router.GET("/matches/:id", a.GetMatch)
	router.PUT("/matches/:id/status", a.UpdateMatchStatus)
	router.DELETE("/matches/:id", a.UnmatchMatch)
	router.GET("/owners/:owner_id/matches", a.GetOwnerMatches)

	router.POST("/merchant-aliases", a.CreateMerchantAlias)
	router.PUT("/merchant-aliases/:id", a.UpdateMerchantAlias)
	router.DELETE("/merchant-aliases/:id", a.DeleteMerchantAlias)
	router.GET("/owners/:owner_id/merchant-aliases", a.GetOwnerMerchantAliases)
	router.GET("/owners/:owner_id/merchant-groups", a.GetOwnerMerchantGroups)
	router.GET("/owners/:owner_id/merchant-alias-suggestions", a.GetOwnerAliasSuggestions)

	return a.router
}

func NewAPI(f *finboard.Finboard) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{finboard: f, router: r}
}
