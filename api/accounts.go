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

func (a Api) CreateLead(c *gin.Context) {
	var newLead model2.CreateLead
	if err := c.ShouldBindJSON(&newLead); err != nil {
		badRequest(c, err)
		return
	}
	if err := newLead.ValidateCreateLead(); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.titanforge.CreateLead(c.Request.Context(), newLead.ToLead())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) Register(c *gin.Context) {
	var req model2.Register
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateRegister(); err != nil {
		badRequest(c, err)
		return
	}

	user, err := a.titanforge.RegisterUser(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (a Api) Login(c *gin.Context) {
	var req model2.Login
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateLogin(); err != nil {
		badRequest(c, err)
		return
	}

	user, err := a.titanforge.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a Api) GetAnalyticsSummary(c *gin.Context) {
	summary, err := a.titanforge.AnalyticsSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
