package delegation

import (
	"strings"

	"github.com/titanforge/titanforge/internal/registry"
	"github.com/titanforge/titanforge/model"
)

type rule struct {
	dept     model.Department
	keywords []string
}

// rules are evaluated in order; the first group with a matching keyword wins.
var rules = []rule{
	{model.Marketing, []string{"market", "post", "leads", "customers"}},
	{model.Design, []string{"design", "logo", "image"}},
	{model.QA, []string{"test", "quality", "review code"}},
	{model.HumanCapital, []string{"hire", "new agent", "workforce"}},
	{model.Operations, []string{"scale", "infrastructure", "deploy"}},
	{model.DataIntelligence, []string{"analyze data", "insights", "optimize"}},
	{model.ExecutiveBoard, []string{"architect", "system", "improve"}},
}

var managers = map[model.Department]string{
	model.Marketing:        registry.MarketingManager,
	model.Design:           registry.DesignManager,
	model.QA:               registry.QAManager,
	model.HumanCapital:     registry.HRManager,
	model.Operations:       registry.Orchestrator,
	model.DataIntelligence: registry.AnalyticsAgent,
	model.ExecutiveBoard:   registry.Architect,
	model.Engineering:      registry.EngineeringManager,
}

// Route picks the department for a free-text goal. Goals matching no keyword go
// to Engineering.
func Route(goal string) model.Department {
	text := strings.ToLower(goal)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.dept
			}
		}
	}
	return model.Engineering
}

// Manager returns the mailbox id of the department's manager.
func Manager(dept model.Department) (string, bool) {
	id, ok := managers[dept]
	return id, ok
}

// Departments lists every department in routing priority order, Engineering last.
func Departments() []model.Department {
	out := make([]model.Department, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.dept)
	}
	return append(out, model.Engineering)
}
