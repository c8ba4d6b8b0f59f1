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
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/model"
)

func (d Datasource) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	user.UserID = model.GenerateUUIDWithSuffix("usr")
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO titanforge.users (user_id, email, hashed_password, full_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.UserID, user.Email, user.HashedPassword, user.FullName, user.IsActive, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, apierror.NewAPIError(apierror.ErrConflict, "Email already registered", err)
		}
		return model.User{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create user", err)
	}
	return user, nil
}

func (d Datasource) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user := model.User{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT user_id, email, hashed_password, full_name, is_active, created_at
		FROM titanforge.users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.UserID, &user.Email, &user.HashedPassword, &user.FullName, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "User not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve user", err)
	}
	return &user, nil
}

func (d Datasource) CountUsers(ctx context.Context, activeOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM titanforge.users`
	if activeOnly {
		query += ` WHERE is_active`
	}

	var n int64
	if err := d.Conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count users", err)
	}
	return n, nil
}
