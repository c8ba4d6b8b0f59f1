package delegation

import (
	"strings"

	"github.com/titanforge/titanforge/internal/registry"
)

// EngineeringAssignee routes an engineering task to a developer. ok is false
// when the task names neither backend nor frontend work.
func EngineeringAssignee(task string) (string, bool) {
	text := strings.ToLower(task)
	switch {
	case strings.Contains(text, "backend"):
		return registry.BackendDeveloper, true
	case strings.Contains(text, "frontend"):
		return registry.FrontendDeveloper, true
	}
	return "", false
}

func QAAssignee(task string) string {
	text := strings.ToLower(task)
	if strings.Contains(text, "review") || strings.Contains(text, "analyze") {
		return registry.CodeReviewer
	}
	return registry.TestEngineer
}

func MarketingAssignee(string) string { return registry.ContentCreator }

func DesignAssignee(string) string { return registry.GraphicDesigner }
