package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/titanforge/titanforge/internal/apierror"
	"github.com/titanforge/titanforge/internal/llm"
	redlock "github.com/titanforge/titanforge/internal/lock"
	"github.com/titanforge/titanforge/internal/mailbox"
	"github.com/titanforge/titanforge/internal/tools"
	"github.com/titanforge/titanforge/model"
)

// scriptedLLM replays canned completions in order, then falls back to "none".
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	delay   time.Duration
	prompts [][]llm.Message
}

func (s *scriptedLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, messages)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return llm.MockCompletion, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type mockTasks struct{ mock.Mock }

func (m *mockTasks) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus, agentID string) (*model.Task, error) {
	args := m.Called(ctx, taskID, status, agentID)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) RecordEvent(ctx context.Context, ev *model.Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockEvents) CountEvents(ctx context.Context, eventType string, from, to time.Time) (int64, error) {
	args := m.Called(ctx, eventType, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) Alert(ctx context.Context, source string, cause error) error {
	return m.Called(ctx, source, cause).Error(0)
}

type memMemory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func (m *memMemory) AddShortTermMemory(_ context.Context, agentID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]map[string]string{}
	}
	if m.data[agentID] == nil {
		m.data[agentID] = map[string]string{}
	}
	m.data[agentID][key] = value
	return nil
}

type fixture struct {
	swarm  *Swarm
	mb     *mailbox.Mailbox
	client *redis.Client
	llm    *scriptedLLM
	tasks  *mockTasks
	events *mockEvents
	alerts *mockAlerts
	memory *memMemory
	ws     *tools.Workspace
}

func newFixture(t *testing.T, backlog ...BacklogEntry) *fixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ws, err := tools.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		mb:     mailbox.New(client),
		client: client,
		llm:    &scriptedLLM{},
		tasks:  &mockTasks{},
		events: &mockEvents{},
		alerts: &mockAlerts{},
		memory: &memMemory{},
		ws:     ws,
	}
	f.swarm, err = NewSwarm(Deps{
		Mailbox:   f.mb,
		Tasks:     f.tasks,
		Events:    f.events,
		Alerts:    f.alerts,
		Memory:    f.memory,
		LLM:       f.llm,
		Workspace: ws,
		Backlog:   NewBacklog(backlog),
		NewRunLock: func(agentID, owner string) RunLock {
			return redlock.NewLocker(client, redlock.AgentRunKey(agentID), owner)
		},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) expectStatus(taskID string, status model.TaskStatus, agentID string) {
	f.tasks.On("UpdateTaskStatus", mock.Anything, taskID, status, agentID).Return(&model.Task{TaskID: taskID, Status: status}, nil).Once()
}

func (f *fixture) popText(t *testing.T, agentID string) string {
	msg, err := f.mb.Receive(context.Background(), agentID)
	require.NoError(t, err)
	require.NotNil(t, msg, "expected a message for %s", agentID)
	return msg.Text()
}

func TestTaskIDFrom(t *testing.T) {
	id, ok := TaskIDFrom("Task ID: 6f1c2a8e-0b1d-4c59-9f0a-3c2b1d4e5f60. Goal: ship")
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a8e-0b1d-4c59-9f0a-3c2b1d4e5f60", id)

	_, ok = TaskIDFrom("no id here")
	assert.False(t, ok)
}

func TestThink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dev, _ := f.swarm.Agent("backend_developer")

	f.llm.replies = []string{`{"tool":"file_writer","params":{"file_path":"a.go","content":"package a"}}`}
	d := dev.Think(ctx, "write a.go")
	assert.Equal(t, "file_writer", d.Tool)
	assert.Equal(t, "a.go", d.Params["file_path"])
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0][0].Content, "- shell_command:")
	assert.Equal(t, "Task: write a.go", f.llm.prompts[0][1].Content)

	f.llm.replies = []string{"```json\n{\"tool\":\"file_reader\",\"params\":{\"file_path\":\"a.go\"}}\n```"}
	assert.Equal(t, "file_reader", dev.Think(ctx, "read a.go").Tool)

	for _, bad := range []string{
		"not json at all",
		`{"tool":"file_writer"}`,
		`{"tool":42,"params":{}}`,
		`{"tool":"stripe_checkout","params":{}}`,
		`{"tool":"file_writer","params":"oops"}`,
	} {
		f.llm.replies = []string{bad}
		assert.Equal(t, model.NoToolDecision(), dev.Think(ctx, "x"), bad)
	}

	f.llm.err = errors.New("timeout")
	assert.Equal(t, model.NoTool, dev.Think(ctx, "x").Tool)
}

func TestThinkWithoutToolsSkipsModel(t *testing.T) {
	f := newFixture(t)
	ceoAgent, _ := f.swarm.Agent("ceo")
	assert.Equal(t, model.NoTool, ceoAgent.Think(context.Background(), "anything").Tool)
	assert.Empty(t, f.llm.prompts)
}

func TestUseTool(t *testing.T) {
	f := newFixture(t)
	dev, _ := f.swarm.Agent("backend_developer")
	ctx := context.Background()

	assert.Equal(t, "Error: Tool 'send_email' not found.", dev.UseTool(ctx, "send_email", nil))

	out := dev.UseTool(ctx, "file_writer", map[string]interface{}{"file_path": "../x", "content": "y"})
	assert.Contains(t, out, "Error executing tool 'file_writer'")

	out = dev.UseTool(ctx, "shell_command", map[string]interface{}{"command": "ls"})
	assert.Contains(t, out, "disabled")

	out = dev.UseTool(ctx, "file_writer", map[string]interface{}{"file_path": "ok.txt", "content": "y"})
	assert.Equal(t, "Successfully wrote to file: ok.txt", out)
}

func TestCEODelegatesByKeyword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.swarm.Run(ctx, "ceo", "Task ID: 1. Goal: Market the launch")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Marketing Manager.", out)
	assert.Equal(t, "Task ID: 1. Goal: Market the launch", f.popText(t, "marketing_manager"))

	out, err = f.swarm.Run(ctx, "ceo", "Task ID: 2. Goal: Build a REST API")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Engineering Manager.", out)
}

func TestCEOPrefersMailboxOverInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mb.Send(ctx, "ceo", model.NewTextMessage("mcp", "Deploy the new cluster")))

	out, err := f.swarm.Run(ctx, "ceo", "Design a logo")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Orchestrator.", out)
}

func TestExecuteSkipsMailbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mb.Send(ctx, "ceo", model.NewTextMessage("mcp", "Deploy the new cluster")))

	out, err := f.swarm.Execute(ctx, "ceo", "Task ID: 9. Goal: Design a logo")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Design Manager.", out)

	n, _ := f.mb.Len(ctx, "ceo")
	assert.Equal(t, int64(1), n)
}

func TestCEOBacklog(t *testing.T) {
	f := newFixture(t,
		BacklogEntry{Department: model.QA, Description: "Run regression tests"},
		BacklogEntry{Department: "Finance"},
		BacklogEntry{Department: "Finance", Description: "Close the books"},
	)
	ctx := context.Background()

	out, err := f.swarm.Run(ctx, "ceo", "")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to QA Manager.", out)

	out, _ = f.swarm.Run(ctx, "ceo", "")
	assert.Equal(t, "Task is missing department or description.", out)

	out, _ = f.swarm.Run(ctx, "ceo", "")
	assert.Equal(t, "No manager found for department: Finance", out)

	out, _ = f.swarm.Run(ctx, "ceo", "")
	assert.Equal(t, "No tasks in the backlog.", out)
}

func TestManagersForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.swarm.Run(ctx, "qa_manager", "Please review the code in 'a.go'")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Code Reviewer.", out)

	out, _ = f.swarm.Run(ctx, "qa_manager", "Run the suite")
	assert.Equal(t, "Task delegated to Test Engineer.", out)

	out, _ = f.swarm.Run(ctx, "design_manager", "new logo")
	assert.Equal(t, "Task delegated to Graphic Designer.", out)

	out, _ = f.swarm.Run(ctx, "marketing_manager", "blog post")
	assert.Equal(t, "Task delegated to Content Creator.", out)

	out, _ = f.swarm.Run(ctx, "engineering_manager", "Build the backend")
	assert.Equal(t, "Task delegated to Backend Developer.", out)

	out, _ = f.swarm.Run(ctx, "engineering_manager", "Write docs")
	assert.Equal(t, "Could not determine the appropriate developer for the task.", out)
}

func TestEngineeringManagerUsesChosenTool(t *testing.T) {
	f := newFixture(t)
	f.llm.replies = []string{`{"tool":"file_writer","params":{"file_path":"plan.md","content":"# plan"}}`}

	out, err := f.swarm.Run(context.Background(), "engineering_manager", "Write the backend plan")
	require.NoError(t, err)
	assert.Equal(t, "Successfully wrote to file: plan.md", out)

	n, _ := f.mb.Len(context.Background(), "backend_developer")
	assert.Zero(t, n)
}

func TestBackendDeveloperWritesAndRequestsReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expectStatus("t-1", model.TaskInProgress, "backend_developer")
	f.expectStatus("t-1", model.TaskCompleted, "backend_developer")
	f.llm.replies = []string{`{"tool":"file_writer","params":{"file_path":"svc/main.go","content":"package main"}}`}

	require.NoError(t, f.mb.Send(ctx, "backend_developer", model.NewTextMessage("engineering_manager", "Task ID: t-1. Goal: build the backend")))
	out, err := f.swarm.Run(ctx, "backend_developer", "")
	require.NoError(t, err)
	assert.Equal(t, "Successfully wrote to file: svc/main.go", out)

	b, err := os.ReadFile(filepath.Join(f.ws.Root(), "svc", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(b))

	assert.Equal(t, "Task ID: t-1. Please review the code in the file 'svc/main.go'.", f.popText(t, "qa_manager"))
	assert.Equal(t, "svc/main.go", f.memory.data["backend_developer"]["last_file_written"])
	f.tasks.AssertExpectations(t)
}

func TestWorkerFailsOnToolError(t *testing.T) {
	f := newFixture(t)
	f.expectStatus("t-2", model.TaskInProgress, "frontend_developer")
	f.expectStatus("t-2", model.TaskFailed, "frontend_developer")
	f.llm.replies = []string{`{"tool":"file_reader","params":{"file_path":"missing.tsx"}}`}

	out, err := f.swarm.Run(context.Background(), "frontend_developer", "Task ID: t-2. read the component")
	require.NoError(t, err)
	assert.Contains(t, out, "An error occurred")
	f.tasks.AssertExpectations(t)
}

func TestWorkerWithoutToolCompletes(t *testing.T) {
	f := newFixture(t)
	f.expectStatus("t-3", model.TaskInProgress, "test_engineer")
	f.expectStatus("t-3", model.TaskCompleted, "test_engineer")

	out, err := f.swarm.Run(context.Background(), "test_engineer", "Task ID: t-3. smoke test")
	require.NoError(t, err)
	assert.Equal(t, "Performed manual testing based on the description: Task ID: t-3. smoke test", out)
	f.tasks.AssertExpectations(t)
}

func TestWorkerToleratesRejectedTransition(t *testing.T) {
	f := newFixture(t)
	rejected := apierror.NewAPIError(apierror.ErrInvalidTransition, "completed -> in_progress", nil)
	f.tasks.On("UpdateTaskStatus", mock.Anything, "t-4", mock.Anything, "graphic_designer").Return(nil, rejected)

	out, err := f.swarm.Run(context.Background(), "graphic_designer", "Task ID: t-4. tweak")
	require.NoError(t, err)
	assert.Contains(t, out, "Design task handled")
}

func TestCodeReviewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.ws.Write("svc/main.go", "package main")
	require.NoError(t, err)

	f.expectStatus("t-5", model.TaskInProgress, "code_reviewer")
	f.expectStatus("t-5", model.TaskCompleted, "code_reviewer")
	f.llm.replies = []string{
		`{"tool":"file_reader","params":{"file_path":"svc/main.go"}}`,
		`{"summary":"Looks fine."}`,
	}

	out, err := f.swarm.Run(ctx, "code_reviewer", "Task ID: t-5. Please review the code in the file 'svc/main.go'.")
	require.NoError(t, err)
	assert.Equal(t, "Review for svc/main.go complete. Findings saved to memory.", out)
	assert.Equal(t, "Looks fine.", f.memory.data["code_reviewer"]["review:svc/main.go"])
	assert.Contains(t, f.llm.prompts[1][0].Content, "package main")
	f.tasks.AssertExpectations(t)
}

func TestCodeReviewerFallsBackToQuotedPath(t *testing.T) {
	f := newFixture(t)
	_, err := f.ws.Write("a.go", "package a")
	require.NoError(t, err)
	f.tasks.On("UpdateTaskStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&model.Task{}, nil)

	out, err := f.swarm.Run(context.Background(), "code_reviewer", "Task ID: t-6. Please review the code in the file 'a.go'.")
	require.NoError(t, err)
	assert.Equal(t, "Review for a.go complete. Findings saved to memory.", out)
	assert.Equal(t, "Could not generate review.", f.memory.data["code_reviewer"]["review:a.go"])
}

func TestAnalyticsRecordsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := model.NewObjectMessage("mcp", map[string]interface{}{
		"action":     "record_event",
		"event_type": "goal_submitted",
		"user_id":    "user_1",
		"payload":    map[string]interface{}{"task_id": "t-7"},
	})
	require.NoError(t, err)
	require.NoError(t, f.mb.Send(ctx, "analytics_agent", msg))

	f.events.On("RecordEvent", mock.Anything, mock.MatchedBy(func(ev *model.Event) bool {
		return ev.EventType == "goal_submitted" && ev.UserID == "user_1" && ev.Data["task_id"] == "t-7"
	})).Return(nil).Once()

	out, err := f.swarm.Run(ctx, "analytics_agent", "")
	require.NoError(t, err)
	assert.Equal(t, "Event 'goal_submitted' recorded.", out)
	f.events.AssertExpectations(t)
}

func TestAnalyticsDailyMetrics(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	f.events.On("CountEvents", mock.Anything, "user_signup", start, start.AddDate(0, 0, 1)).Return(int64(4), nil)
	f.events.On("CountEvents", mock.Anything, "goal_submitted", start, start.AddDate(0, 0, 1)).Return(int64(9), nil)

	out, err := f.swarm.Run(context.Background(), "analytics_agent", "aggregate daily metrics for 2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "Daily metrics for 2024-01-15: new_signups=4 goals_submitted=9", out)

	out, _ = f.swarm.Run(context.Background(), "analytics_agent", "aggregate daily metrics for 2024-13-45")
	assert.Equal(t, "Invalid date format. Use YYYY-MM-DD.", out)
}

func TestNotificationAgentForwardsInternalErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := model.NewObjectMessage("mcp", map[string]interface{}{
		"action":            "process_notification_request",
		"notification_type": "internal_error",
		"data":              map[string]interface{}{"error_message": "goal failed"},
	})
	require.NoError(t, err)
	require.NoError(t, f.mb.Send(ctx, "notification_agent", msg))

	f.alerts.On("Alert", mock.Anything, "mcp", mock.MatchedBy(func(err error) bool {
		return err.Error() == "application error: goal failed"
	})).Return(nil).Once()

	out, err := f.swarm.Run(ctx, "notification_agent", "")
	require.NoError(t, err)
	assert.Equal(t, "Internal alert sent.", out)
	f.alerts.AssertExpectations(t)

	unknown, _ := model.NewObjectMessage("mcp", map[string]interface{}{
		"action":            "process_notification_request",
		"notification_type": "sms",
	})
	require.NoError(t, f.mb.Send(ctx, "notification_agent", unknown))
	out, _ = f.swarm.Run(ctx, "notification_agent", "")
	assert.Equal(t, "Unknown notification type: sms", out)
}

func TestRunLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	held := redlock.NewLocker(f.client, redlock.AgentRunKey("ceo"), "someone-else")
	require.NoError(t, held.Lock(ctx, time.Minute))

	_, err := f.swarm.Run(ctx, "ceo", "Build an API")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	require.NoError(t, held.Unlock(ctx))
	_, err = f.swarm.Run(ctx, "ceo", "Build an API")
	assert.NoError(t, err)
	assert.False(t, f.client.Exists(ctx, redlock.AgentRunKey("ceo")).Val() == 1)
}

func TestRunUnknownAgent(t *testing.T) {
	f := newFixture(t)
	_, err := f.swarm.Run(context.Background(), "janitor", "")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestUndecodableMessageFallsBackToInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.client.RPush(ctx, mailbox.Key("ceo"), "garbage").Err())

	out, err := f.swarm.Run(ctx, "ceo", "Hire two engineers")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to HR Manager.", out)
}

func TestSwarmRoster(t *testing.T) {
	f := newFixture(t)
	agents := f.swarm.Agents()
	assert.Len(t, agents, 21)
	assert.Equal(t, "analytics_agent", agents[0].ID)
	dev, ok := f.swarm.Agent("backend_developer")
	require.True(t, ok)
	assert.Equal(t, []string{"file_reader", "file_writer", "shell_command"}, dev.Tools.Names())
}

func TestLoadBacklog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"department":"Design","description":"new logo"}]`), 0o644))

	b := LoadBacklog(path)
	assert.Equal(t, 1, b.Len())
	e, ok := b.Pop()
	assert.True(t, ok)
	assert.Equal(t, model.Design, e.Department)

	assert.Equal(t, 0, LoadBacklog(filepath.Join(t.TempDir(), "missing.json")).Len())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	assert.Equal(t, 0, LoadBacklog(bad).Len())
}

func TestFailedDeliveryIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := model.NewObjectMessage("mcp", map[string]interface{}{
		"action":     "record_event",
		"event_type": "goal_submitted",
	})
	require.NoError(t, err)
	require.NoError(t, f.mb.Send(ctx, "analytics_agent", msg))

	f.events.On("RecordEvent", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	f.events.On("RecordEvent", mock.Anything, mock.Anything).Return(nil).Once()

	_, err = f.swarm.Deliver(ctx, "analytics_agent")
	require.Error(t, err)
	n, _ := f.mb.Len(ctx, "analytics_agent")
	assert.Equal(t, int64(1), n, "message must survive the failed run")

	out, err := f.swarm.Deliver(ctx, "analytics_agent")
	require.NoError(t, err)
	assert.Equal(t, "Event 'goal_submitted' recorded.", out)
	n, _ = f.mb.Len(ctx, "analytics_agent")
	assert.Zero(t, n)
	assert.Zero(t, f.client.Exists(ctx, mailbox.ProcessingKey("analytics_agent")).Val())
	f.events.AssertExpectations(t)
}

func TestDeliverWithEmptyMailboxDoesNothing(t *testing.T) {
	f := newFixture(t, BacklogEntry{Department: model.Design, Description: "new logo"})
	ctx := context.Background()

	out, err := f.swarm.Deliver(ctx, "ceo")
	require.NoError(t, err)
	assert.Equal(t, NoPendingMessages, out)
	assert.Equal(t, 1, f.swarm.backlog.Len())

	out, err = f.swarm.Deliver(ctx, "marketing_manager")
	require.NoError(t, err)
	assert.Equal(t, NoPendingMessages, out)
	n, _ := f.mb.Len(ctx, "content_creator")
	assert.Zero(t, n)
}

func TestBlankMessagesAreNotForwarded(t *testing.T) {
	f := newFixture(t, BacklogEntry{Department: model.Design, Description: "new logo"})
	ctx := context.Background()

	for _, id := range []string{"ceo", "marketing_manager", "engineering_manager"} {
		require.NoError(t, f.mb.Send(ctx, id, model.NewTextMessage("mcp", "   ")))
		out, err := f.swarm.Deliver(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, emptyTask, out, id)
	}

	assert.Equal(t, 1, f.swarm.backlog.Len())
	for _, id := range []string{"content_creator", "design_manager", "backend_developer"} {
		n, _ := f.mb.Len(ctx, id)
		assert.Zero(t, n, id)
	}
	assert.Empty(t, f.llm.prompts)
}

func TestInterruptedClaimIsRedelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mb.Send(ctx, "design_manager", model.NewTextMessage("ceo", "new logo")))

	// a run that crashed after claiming
	_, err := f.mb.Claim(ctx, "design_manager")
	require.NoError(t, err)

	out, err := f.swarm.Deliver(ctx, "design_manager")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Graphic Designer.", out)
	assert.Equal(t, "new logo", f.popText(t, "graphic_designer"))
	assert.Zero(t, f.client.Exists(ctx, mailbox.ProcessingKey("design_manager")).Val())
}

type countingLock struct {
	RunLock
	extends atomic.Int32
}

func (c *countingLock) ExtendLock(ctx context.Context, ttl time.Duration) error {
	c.extends.Add(1)
	return c.RunLock.ExtendLock(ctx, ttl)
}

func TestRunLockIsExtendedDuringLongRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var lock *countingLock
	f.swarm.deps.RunLockTTL = 60 * time.Millisecond
	f.swarm.deps.NewRunLock = func(agentID, owner string) RunLock {
		lock = &countingLock{RunLock: redlock.NewLocker(f.client, redlock.AgentRunKey(agentID), owner)}
		return lock
	}
	f.llm.delay = 200 * time.Millisecond

	out, err := f.swarm.Run(ctx, "engineering_manager", "Build the backend")
	require.NoError(t, err)
	assert.Equal(t, "Task delegated to Backend Developer.", out)

	require.NotNil(t, lock)
	extended := lock.extends.Load()
	assert.GreaterOrEqual(t, extended, int32(2))
	assert.Zero(t, f.client.Exists(ctx, redlock.AgentRunKey("engineering_manager")).Val())

	// the heartbeat stops with the run
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, extended, lock.extends.Load())
}
