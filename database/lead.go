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

package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/model"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

func (d Datasource) CreateLead(ctx context.Context, lead model.Lead) (model.Lead, error) {
	lead.LeadID = model.GenerateUUIDWithSuffix("lead")
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	lead.CreatedAt = time.Now().UTC()
	if lead.Source == "" {
		lead.Source = model.DefaultLeadSource
	}
	if lead.Status == "" {
		lead.Status = model.DefaultLeadStatus
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO titanforge.leads (lead_id, email, name, company, phone, message, source, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, lead.LeadID, lead.Email, lead.Name, lead.Company, lead.Phone, lead.Message, lead.Source, lead.Status, lead.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Lead{}, apierror.NewAPIError(apierror.ErrConflict, "Email already registered as a lead.", err)
		}
		return model.Lead{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create lead", err)
	}
	return lead, nil
}

func (d Datasource) CountLeads(ctx context.Context) (int64, error) {
	var n int64
	err := d.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM titanforge.leads`).Scan(&n)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count leads", err)
	}
	return n, nil
}
