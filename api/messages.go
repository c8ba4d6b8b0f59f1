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
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/titanforge/titanforge/api/model"
)

func (a Api) SendMessage(c *gin.Context) {
	var msg model2.SendMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, err)
		return
	}
	if err := msg.ValidateSendMessage(); err != nil {
		badRequest(c, err)
		return
	}

	send := a.titanforge.SendMessage
	if msg.Run {
		send = a.titanforge.DeliverMessage
	}
	if err := send(c.Request.Context(), msg.RecipientID, msg.ToAgentMessage()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Message queued for agent '%s'.", msg.RecipientID)})
}

// ReceiveMessage pops the oldest message for the agent; message is null when
// the mailbox is empty. ?wait=5s blocks for up to that long for a message.
func (a Api) ReceiveMessage(c *gin.Context) {
	var wait time.Duration
	if raw := c.Query("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			badRequest(c, fmt.Errorf("invalid wait duration '%s'", raw))
			return
		}
		wait = d
	}

	msg, err := a.titanforge.WaitMessage(c.Request.Context(), c.Param("agent_id"), wait)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (a Api) GetDeadLetters(c *gin.Context) {
	dead, err := a.titanforge.DeadLetters(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": dead})
}

func (a Api) AddShortTermMemory(c *gin.Context) {
	var item model2.AddMemory
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}
	if err := item.ValidateAddMemory(); err != nil {
		badRequest(c, err)
		return
	}

	if err := a.titanforge.AddShortTermMemory(c.Request.Context(), item.AgentID, item.Key, item.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data added to short-term memory."})
}

func (a Api) GetShortTermMemory(c *gin.Context) {
	memory, err := a.titanforge.GetShortTermMemory(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memory": memory})
}
