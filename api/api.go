/*
Copyright 2024 TitanForge Authors.

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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/titanforge/titanforge"
	"github.com/titanforge/titanforge/api/middleware"
	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/internal/apierror"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type Api struct {
	titanforge *titanforge.TitanForge
	router     *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/goals", a.SubmitGoal)

	router.GET("/tasks", a.GetAllTasks)
	router.GET("/tasks/:id", a.GetTask)
	router.PUT("/tasks/:id", a.UpdateTaskStatus)
	router.POST("/tasks/recover", a.RecoverStuckTasks)

	router.POST("/messages/send", a.SendMessage)
	router.GET("/messages/receive/:agent_id", a.ReceiveMessage)
	router.GET("/messages/dead-letters/:agent_id", a.GetDeadLetters)

	router.GET("/agents", a.ListAgents)
	router.POST("/agents/:id/run", a.RunAgent)
	router.GET("/graph", a.GetGraph)
	router.GET("/queues", a.GetQueueStats)

	router.POST("/memory/short_term/add", a.AddShortTermMemory)
	router.GET("/memory/short_term/:agent_id", a.GetShortTermMemory)

	router.POST("/leads", a.CreateLead)
	router.POST("/register", a.Register)
	router.POST("/login", a.Login)
	router.GET("/analytics/summary", a.GetAnalyticsSummary)

	router.POST("/io/read", a.ReadFile)
	router.POST("/io/write", a.WriteFile)
	return a.router
}

func NewAPI(t *titanforge.TitanForge) (*Api, error) {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	r := gin.Default()
	if conf.Telemetry.Enabled {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		if err := t.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{titanforge: t, router: r}, nil
}

// respondError renders err with its mapped status. Only the public message
// reaches the client.
func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apierror.PublicMessage(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
