/*
Copyright 2024 Blnk Finance Authors.

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

	"github.com/blnkfinance/ledgerd"
	"github.com/blnkfinance/ledgerd/api/middleware"
	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/apierror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	ledgerd *ledgerd.Ledgerd
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	v1 := router.Group("/v1")
	v1.POST("/users", a.CreateAccount)
	v1.GET("/users/:account_id", a.GetAccount)
	v1.POST("/users/:account_id/transactions", a.CreateTransaction)
	v1.GET("/users/:account_id/transactions", a.ListTransactions)
	v1.GET("/users/:account_id/balance", a.GetBalance)

	router.GET("/health", a.Health)
	return a.router
}

func NewAPI(l *ledgerd.Ledgerd, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf.Server.SecretKey))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{ledgerd: l, router: r}
}

// respondError writes err with the status its code maps to. Storage failures
// are reported without driver detail.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	body := gin.H{"error": apierror.Message(err)}
	if code := apierror.CodeOf(err); code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}

func accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	raw, passed := c.Params.Get("account_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required. pass it in the route /:account_id"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id must be a valid UUID", "code": apierror.ErrValidation})
		return uuid.Nil, false
	}
	return id, true
}

func (a Api) Health(c *gin.Context) {
	if err := a.ledgerd.Health(c.Request.Context()); err != nil {
		logrus.WithError(err).Error("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
