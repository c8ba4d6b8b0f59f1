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
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/titanforge/titanforge/api/model"
)

func (a Api) SubmitGoal(c *gin.Context) {
	var goal model2.SubmitGoal
	if err := c.ShouldBindJSON(&goal); err != nil {
		badRequest(c, err)
		return
	}
	if err := goal.ValidateSubmitGoal(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.titanforge.SubmitGoal(c.Request.Context(), goal.UserID, goal.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllTasks(c *gin.Context) {
	limit, offset := pagination(c)
	resp, err := a.titanforge.GetAllTasks(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) GetTask(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.titanforge.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdateTaskStatus(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var update model2.UpdateTask
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	if err := update.ValidateUpdateTask(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.titanforge.UpdateTaskStatus(c.Request.Context(), id, update.TaskStatus(), update.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecoverStuckTasks fails in-progress tasks older than threshold_minutes
// (the configured stuck-task threshold when omitted).
func (a Api) RecoverStuckTasks(c *gin.Context) {
	var req model2.RecoverTasks
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := req.ValidateRecoverTasks(); err != nil {
		badRequest(c, err)
		return
	}

	minutes := req.ThresholdMinutes
	if minutes == 0 {
		minutes = a.titanforge.Config().Agents.StuckTaskAfterMinutes
	}
	recovered, err := a.titanforge.RecoverStuckTasks(c.Request.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recovered": recovered})
}
