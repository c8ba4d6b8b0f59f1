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

package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrMissingParam = errors.New("missing parameter")

// Tool is a side-effecting capability an agent may choose in its think step.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]interface{}) (string, error)
}

// Set is an agent's toolbox keyed by tool name.
type Set map[string]Tool

func NewSet(tools ...Tool) Set {
	s := make(Set, len(tools))
	for _, t := range tools {
		if t != nil {
			s[t.Name()] = t
		}
	}
	return s
}

func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders "- name: description" lines for the think prompt.
func (s Set) Describe() string {
	if len(s) == 0 {
		return "No tools available."
	}
	lines := make([]string, 0, len(s))
	for _, name := range s.Names() {
		lines = append(lines, fmt.Sprintf("- %s: %s", name, s[name].Description()))
	}
	return strings.Join(lines, "\n")
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", key)
	}
	return s, nil
}
