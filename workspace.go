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
	"errors"
	"os"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/tools"
)

func workspaceError(err error) error {
	switch {
	case errors.Is(err, tools.ErrOutsideWorkspace):
		return apierror.NewAPIError(apierror.ErrBadRequest, "Access denied: path is outside the agent workspace.", nil)
	case errors.Is(err, os.ErrNotExist):
		return apierror.NewAPIError(apierror.ErrNotFound, "File not found.", nil)
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to access file.", err)
}

// ReadFile returns a file from the agent workspace.
func (t *TitanForge) ReadFile(path string) (string, error) {
	content, err := t.workspace.Read(path)
	if err != nil {
		return "", workspaceError(err)
	}
	return content, nil
}

// WriteFile writes content into the agent workspace, creating parent directories.
func (t *TitanForge) WriteFile(path, content string) error {
	if _, err := t.workspace.Write(path, content); err != nil {
		return workspaceError(err)
	}
	return nil
}
