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
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

const minPasswordLength = 8

// RegisterUser creates an active user with a bcrypt-hashed password, then
// tells the analytics agent about the signup and asks the notification agent
// to welcome the user.
func (t *TitanForge) RegisterUser(ctx context.Context, email, password, fullName string) (model.User, error) {
	if len(password) < minPasswordLength {
		return model.User{}, apierror.NewAPIError(apierror.ErrInvalidInput, "Password must be at least 8 characters long.", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to hash password", err)
	}

	user, err := t.datasource.CreateUser(ctx, model.User{
		Email:          strings.TrimSpace(email),
		HashedPassword: string(hashed),
		FullName:       fullName,
		IsActive:       true,
	})
	if err != nil {
		return model.User{}, err
	}

	t.recordAnalytics(ctx, user.UserID, "user_signup", map[string]interface{}{"email": user.Email})
	t.sendObject(ctx, registry.NotificationAgent, user.UserID, map[string]interface{}{
		"action":            "process_notification_request",
		"notification_type": "welcome",
		"data": map[string]interface{}{
			"user_email": user.Email,
			"user_name":  user.FullName,
		},
	})
	return user, nil
}

// Authenticate checks an email and password pair.
func (t *TitanForge) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := t.datasource.GetUserByEmail(ctx, email)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Incorrect email or password", nil)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Incorrect email or password", nil)
	}
	if !user.IsActive {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Inactive user", nil)
	}
	return user, nil
}
