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
	"encoding/json"
	"fmt"
	"time"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/model"
)

func (d Datasource) RecordEvent(ctx context.Context, event *model.Event) error {
	if event.EventID == "" {
		event.EventID = model.GenerateUUIDWithSuffix("evt")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal event data", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO titanforge.events (event_id, event_type, user_id, data, timestamp)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
	`, event.EventID, event.EventType, event.UserID, dataJSON, event.Timestamp)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record event", err)
	}
	return nil
}

// CountEvents counts events of a type in [from, to). A zero from or to leaves
// that side open.
func (d Datasource) CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM titanforge.events WHERE event_type = $1`
	args := []interface{}{eventType}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND timestamp < $%d`, len(args))
	}

	var n int64
	if err := d.Conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count events", err)
	}
	return n, nil
}
