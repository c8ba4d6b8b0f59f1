package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/titanforge/titanforge/internal/delegation"
	"github.com/titanforge/titanforge/internal/llm"
	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

func delegated(recipientID string) string {
	return fmt.Sprintf("Task delegated to %s.", registry.DisplayName(recipientID))
}

const emptyTask = "No task to delegate."

func blank(in Input) bool {
	return strings.TrimSpace(in.Text) == ""
}

// ceo routes goals to department managers, or works through the backlog when
// run without input or message.
func ceo(ctx context.Context, a *Agent, in Input) (string, error) {
	if !blank(in) {
		return delegateTo(ctx, a, delegation.Route(in.Text), in.Text)
	}
	if in.Message != nil {
		return emptyTask, nil
	}

	entry, ok := a.swarm.backlog.Pop()
	if !ok {
		return "No tasks in the backlog.", nil
	}
	if entry.Department == "" || entry.Description == "" {
		return "Task is missing department or description.", nil
	}
	return delegateTo(ctx, a, entry.Department, entry.Description)
}

func delegateTo(ctx context.Context, a *Agent, dept model.Department, description string) (string, error) {
	manager, ok := delegation.Manager(dept)
	if !ok {
		return fmt.Sprintf("No manager found for department: %s", dept), nil
	}
	a.log().WithField("department", dept).Info("delegating task")
	if err := a.send(ctx, manager, description); err != nil {
		return "", err
	}
	return delegated(manager), nil
}

// forwardTo builds a manager that hands every task to one assignee.
func forwardTo(assign func(string) string) behaviour {
	return func(ctx context.Context, a *Agent, in Input) (string, error) {
		if blank(in) {
			return emptyTask, nil
		}
		to := assign(in.Text)
		if err := a.send(ctx, to, in.Text); err != nil {
			return "", err
		}
		return delegated(to), nil
	}
}

// engineeringManager runs a tool itself when the model picks one, otherwise
// hands the task to a developer.
func engineeringManager(ctx context.Context, a *Agent, in Input) (string, error) {
	if blank(in) {
		return emptyTask, nil
	}
	if d := a.Think(ctx, in.Text); d.Tool != model.NoTool {
		return a.UseTool(ctx, d.Tool, d.Params), nil
	}
	to, ok := delegation.EngineeringAssignee(in.Text)
	if !ok {
		return "Could not determine the appropriate developer for the task.", nil
	}
	if err := a.send(ctx, to, in.Text); err != nil {
		return "", err
	}
	return delegated(to), nil
}

// worker is the common lifecycle: in_progress, think, use the tool, then
// completed or failed. after runs once a tool succeeded.
func worker(idle string, after func(ctx context.Context, a *Agent, taskID string, d model.ToolDecision) error) behaviour {
	return func(ctx context.Context, a *Agent, in Input) (string, error) {
		taskID, _ := TaskIDFrom(in.Text)
		a.setStatus(ctx, taskID, model.TaskInProgress)

		d := a.Think(ctx, in.Text)
		if d.Tool == model.NoTool {
			a.setStatus(ctx, taskID, model.TaskCompleted)
			return fmt.Sprintf("%s: %s", idle, in.Text), nil
		}

		a.log().WithField("tool", d.Tool).Info("using tool")
		out, err := a.useTool(ctx, d.Tool, d.Params)
		if err == nil && after != nil {
			err = after(ctx, a, taskID, d)
		}
		if err != nil {
			a.setStatus(ctx, taskID, model.TaskFailed)
			return fmt.Sprintf("An error occurred: %v", err), nil
		}
		a.setStatus(ctx, taskID, model.TaskCompleted)
		return out, nil
	}
}

// requestReview asks QA to review a file the backend developer just wrote.
func requestReview(ctx context.Context, a *Agent, taskID string, d model.ToolDecision) error {
	if d.Tool != "file_writer" {
		return nil
	}
	path, _ := d.Params["file_path"].(string)
	a.remember(ctx, "last_file_written", path)
	review := fmt.Sprintf("Task ID: %s. Please review the code in the file '%s'.", taskID, path)
	return a.send(ctx, registry.QAManager, review)
}

const reviewPrompt = `You are a senior software engineer performing a code review.
Analyze the following code for quality, bugs, and adherence to best practices.
Respond in JSON format as {"summary": "<concise findings>"}.

Code to review:
%s`

var quotedPath = regexp.MustCompile(`'([^']+)'`)

// codeReviewer reads the file named in the task and records the model's review.
func codeReviewer(ctx context.Context, a *Agent, in Input) (string, error) {
	taskID, _ := TaskIDFrom(in.Text)
	a.setStatus(ctx, taskID, model.TaskInProgress)

	path := ""
	if d := a.Think(ctx, "I need to read the file to review it. "+in.Text); d.Tool == "file_reader" {
		path, _ = d.Params["file_path"].(string)
	}
	if path == "" {
		if m := quotedPath.FindStringSubmatch(in.Text); m != nil {
			path = m[1]
		}
	}
	if path == "" {
		a.setStatus(ctx, taskID, model.TaskCompleted)
		return "Could not perform code review because no file path was specified.", nil
	}

	code, err := a.useTool(ctx, "file_reader", map[string]interface{}{"file_path": path})
	if err != nil {
		a.setStatus(ctx, taskID, model.TaskFailed)
		return fmt.Sprintf("An error occurred during code review: %v", err), nil
	}

	summary := "Could not generate review."
	out, err := a.complete(ctx, []llm.Message{{Role: "user", Content: fmt.Sprintf(reviewPrompt, code)}})
	if err == nil {
		var r struct {
			Summary string `json:"summary"`
		}
		if json.Unmarshal([]byte(stripFence(out)), &r) == nil && r.Summary != "" {
			summary = r.Summary
		}
	}
	a.remember(ctx, "review:"+path, summary)
	a.setStatus(ctx, taskID, model.TaskCompleted)
	return fmt.Sprintf("Review for %s complete. Findings saved to memory.", path), nil
}

var metricsDate = regexp.MustCompile(`for (\d{4}-\d{2}-\d{2})`)

// analytics records events pushed by the coordinator and aggregates daily metrics.
func analytics(ctx context.Context, a *Agent, in Input) (string, error) {
	events := a.swarm.deps.Events
	if in.Message != nil {
		if obj, ok := in.Message.Object(); ok && obj["action"] == "record_event" {
			return recordEvent(ctx, a, obj, in.Message.UserID)
		}
	}

	lower := strings.ToLower(in.Text)
	switch {
	case strings.Contains(lower, "record event"):
		return recordEvent(ctx, a, map[string]interface{}{
			"event_type": "generic_agent_event",
			"payload":    map[string]interface{}{"description": in.Text},
		}, "")
	case strings.Contains(lower, "aggregate daily metrics") && events != nil:
		day := time.Now().UTC().AddDate(0, 0, -1)
		if m := metricsDate.FindStringSubmatch(in.Text); m != nil {
			parsed, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				return "Invalid date format. Use YYYY-MM-DD.", nil
			}
			day = parsed
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		signups, err := events.CountEvents(ctx, "user_signup", start, start.AddDate(0, 0, 1))
		if err != nil {
			return "", err
		}
		goals, err := events.CountEvents(ctx, "goal_submitted", start, start.AddDate(0, 0, 1))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Daily metrics for %s: new_signups=%d goals_submitted=%d", start.Format("2006-01-02"), signups, goals), nil
	}
	return fmt.Sprintf("Analytics Agent handled: %s", in.Text), nil
}

func recordEvent(ctx context.Context, a *Agent, obj map[string]interface{}, fallbackUserID string) (string, error) {
	eventType, _ := obj["event_type"].(string)
	if eventType == "" {
		return "Event is missing event_type.", nil
	}
	userID, _ := obj["user_id"].(string)
	if userID == "" {
		userID = fallbackUserID
	}
	payload, _ := obj["payload"].(map[string]interface{})
	ev := &model.Event{
		EventID:   model.GenerateUUIDWithSuffix("event"),
		EventType: eventType,
		UserID:    userID,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}
	if a.swarm.deps.Events == nil {
		return "", fmt.Errorf("no event store configured")
	}
	if err := a.swarm.deps.Events.RecordEvent(ctx, ev); err != nil {
		return "", fmt.Errorf("failed to record event '%s': %w", eventType, err)
	}
	return fmt.Sprintf("Event '%s' recorded.", eventType), nil
}

// notifications handles notification requests. Internal errors go to the alerter;
// user-facing notifications are only logged.
func notifications(ctx context.Context, a *Agent, in Input) (string, error) {
	if in.Message == nil {
		return fmt.Sprintf("Notification Agent handled: %s", in.Text), nil
	}
	obj, ok := in.Message.Object()
	if !ok || obj["action"] != "process_notification_request" {
		return fmt.Sprintf("Notification Agent handled: %s", in.Text), nil
	}
	kind, _ := obj["notification_type"].(string)
	data, _ := obj["data"].(map[string]interface{})

	switch kind {
	case "internal_error":
		msg, _ := data["error_message"].(string)
		if msg == "" {
			msg = "An unknown error occurred."
		}
		if a.swarm.deps.Alerts != nil {
			if err := a.swarm.deps.Alerts.Alert(ctx, in.Message.SenderID, fmt.Errorf("application error: %s", msg)); err != nil {
				a.log().WithError(err).Warn("internal alert not delivered")
				return "Internal alert logged; delivery failed.", nil
			}
		}
		return "Internal alert sent.", nil
	case "welcome":
		email, _ := data["user_email"].(string)
		a.log().WithField("user_email", email).Info("welcome notification requested")
		return fmt.Sprintf("Welcome notification recorded for %s.", email), nil
	}
	return fmt.Sprintf("Unknown notification type: %s", kind), nil
}
