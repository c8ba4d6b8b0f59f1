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
	"fmt"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/mailbox"
)

func shortTermMemoryKey(agentID string) string {
	return "short_term_memory:" + agentID
}

// AddShortTermMemory stores key=value in the agent's scratch hash.
func (t *TitanForge) AddShortTermMemory(ctx context.Context, agentID, key, value string) error {
	if err := mailbox.CheckAgent(agentID); err != nil {
		return err
	}
	if err := t.redis.HSet(ctx, shortTermMemoryKey(agentID), key, value).Err(); err != nil {
		return fmt.Errorf("save memory for %s: %w", agentID, err)
	}
	return nil
}

// GetShortTermMemory returns everything the agent has remembered.
func (t *TitanForge) GetShortTermMemory(ctx context.Context, agentID string) (map[string]string, error) {
	if err := mailbox.CheckAgent(agentID); err != nil {
		return nil, err
	}
	memory, err := t.redis.HGetAll(ctx, shortTermMemoryKey(agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load memory for %s: %w", agentID, err)
	}
	if len(memory) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Agent not found in short-term memory.", nil)
	}
	return memory, nil
}
