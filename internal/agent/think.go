package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/titanforge/titanforge/internal/llm"
	"github.com/titanforge/titanforge/model"
)

const decisionSchema = `{
	"type": "object",
	"required": ["tool", "params"],
	"properties": {
		"tool": {"type": "string", "minLength": 1},
		"params": {"type": "object"}
	}
}`

var decisionValidator = mustCompile("tool_decision.json", decisionSchema)

func mustCompile(name, schema string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(err)
	}
	return sch
}

const thinkPrompt = `You are an intelligent agent's thinking module. Your role is to choose the best tool to accomplish a given task.
You must respond in JSON format.

The available tools are:
%s

Based on the user's task, decide which tool to use.
If no tool is appropriate, respond with {"tool": "none", "params": {}}.
If a tool is appropriate, respond with a JSON object containing the tool name and its parameters.
For example: {"tool": "file_writer", "params": {"file_path": "example.txt", "content": "Hello from the agent!"}}
Parameter values should be extracted directly from the user's task.`

// Think asks the model which tool to use for task. Any failure along the way
// yields the "none" decision.
func (a *Agent) Think(ctx context.Context, task string) model.ToolDecision {
	if len(a.Tools) == 0 {
		return model.NoToolDecision()
	}

	out, err := a.complete(ctx, []llm.Message{
		{Role: "system", Content: fmt.Sprintf(thinkPrompt, a.Tools.Describe())},
		{Role: "user", Content: "Task: " + task},
	})
	if err != nil {
		a.log().WithError(err).Error("think: completion failed")
		return model.NoToolDecision()
	}

	decision, err := parseDecision(out)
	if err != nil {
		a.log().WithError(err).WithField("output", out).Warn("think: unusable model output")
		return model.NoToolDecision()
	}
	if decision.Tool == model.NoTool {
		return model.NoToolDecision()
	}
	if _, ok := a.Tools[decision.Tool]; !ok {
		a.log().WithField("tool", decision.Tool).Warn("think: model chose a tool this agent does not have")
		return model.NoToolDecision()
	}
	return decision
}

func parseDecision(out string) (model.ToolDecision, error) {
	raw := stripFence(out)
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return model.ToolDecision{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := decisionValidator.Validate(doc); err != nil {
		return model.ToolDecision{}, fmt.Errorf("schema: %w", err)
	}
	var d model.ToolDecision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return model.ToolDecision{}, err
	}
	if d.Params == nil {
		d.Params = map[string]interface{}{}
	}
	return d, nil
}

// stripFence unwraps a ```json fenced block if the model added one.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
