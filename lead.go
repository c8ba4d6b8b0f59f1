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

package titanforge

import (
	"context"

	"github.com/titanforge/titanforge/model"
)

// CreateLead captures a landing page lead. A second lead with the same email
// is a conflict.
func (t *TitanForge) CreateLead(ctx context.Context, lead model.Lead) (model.Lead, error) {
	created, err := t.datasource.CreateLead(ctx, lead)
	if err != nil {
		return model.Lead{}, err
	}
	t.recordAnalytics(ctx, "", "lead_captured", map[string]interface{}{
		"lead_id": created.LeadID,
		"source":  created.Source,
	})
	return created, nil
}
