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
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/model"
)

// RecoveryAgentID is recorded in the history of tasks failed by the recovery processor.
const RecoveryAgentID = "recovery"

// StuckTaskRecoveryProcessor fails tasks that have been in progress for longer
// than a threshold, usually because the agent working on them died mid-run.
type StuckTaskRecoveryProcessor struct {
	titanforge     *TitanForge
	batchSize      int
	pollInterval   time.Duration
	stuckThreshold time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
	running        bool
	mu             sync.Mutex
}

func NewStuckTaskRecoveryProcessor(t *TitanForge) *StuckTaskRecoveryProcessor {
	threshold := time.Hour
	if t.config != nil && t.config.Agents.StuckTaskAfterMinutes > 0 {
		threshold = time.Duration(t.config.Agents.StuckTaskAfterMinutes) * time.Minute
	}
	return &StuckTaskRecoveryProcessor{
		titanforge:     t,
		batchSize:      100,
		pollInterval:   time.Minute,
		stuckThreshold: threshold,
		stopCh:         make(chan struct{}),
	}
}

func (p *StuckTaskRecoveryProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()

	logrus.Info("Stuck task recovery processor started")
}

func (p *StuckTaskRecoveryProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logrus.Info("Stuck task recovery processor stopped")
}

func (p *StuckTaskRecoveryProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.recoverWithThreshold(ctx, p.stuckThreshold)
		}
	}
}

// RecoverStuckTasks fails in-progress tasks older than threshold right away.
// Thresholds under two minutes are raised to two minutes.
func (t *TitanForge) RecoverStuckTasks(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < 2*time.Minute {
		threshold = 2 * time.Minute
	}
	return NewStuckTaskRecoveryProcessor(t).recoverWithThreshold(ctx, threshold), nil
}

func (p *StuckTaskRecoveryProcessor) recoverWithThreshold(ctx context.Context, threshold time.Duration) int {
	stuck, err := p.titanforge.datasource.GetStuckTasks(ctx, model.TaskInProgress, threshold, p.batchSize)
	if err != nil {
		logrus.Errorf("failed to get stuck tasks: %v", err)
		return 0
	}

	recovered := 0
	for _, task := range stuck {
		_, err := p.titanforge.UpdateTaskStatus(ctx, task.TaskID, model.TaskFailed, RecoveryAgentID)
		switch {
		case err == nil:
			recovered++
			logrus.Warnf("Task %s stuck in progress since %s, marked failed", task.TaskID, task.UpdatedAt.Format(time.RFC3339))
		case apierror.Is(err, apierror.ErrConflict), apierror.Is(err, apierror.ErrInvalidTransition):
			// an agent finished it between the scan and the update
			logrus.Infof("Task %s moved on before recovery", task.TaskID)
		default:
			logrus.Errorf("failed to recover task %s: %v", task.TaskID, err)
		}
	}
	return recovered
}
