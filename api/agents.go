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

	"github.com/gin-gonic/gin"

	model2 "github.com/titanforge/titanforge/api/model"
)

func (a Api) ListAgents(c *gin.Context) {
	agents, err := a.titanforge.ListAgents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

// RunAgent runs one agent cycle synchronously. The agent reads its mailbox
// first and falls back to the input.
func (a Api) RunAgent(c *gin.Context) {
	var req model2.RunAgent
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	id := c.Param("id")
	out, err := a.titanforge.RunAgent(c.Request.Context(), id, req.Input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": id, "result": out})
}

func (a Api) GetGraph(c *gin.Context) {
	graph, err := a.titanforge.Graph(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (a Api) GetQueueStats(c *gin.Context) {
	stats, err := a.titanforge.QueueStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a Api) ReadFile(c *gin.Context) {
	var req model2.FilePath
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateFilePath(); err != nil {
		badRequest(c, err)
		return
	}

	content, err := a.titanforge.ReadFile(req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (a Api) WriteFile(c *gin.Context) {
	var req model2.FileContent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateFileContent(); err != nil {
		badRequest(c, err)
		return
	}

	if err := a.titanforge.WriteFile(req.Path, req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File written successfully."})
}
