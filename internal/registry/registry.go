package registry

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	CEO                 = "ceo"
	Architect           = "architect"
	EngineeringManager  = "engineering_manager"
	BackendDeveloper    = "backend_developer"
	FrontendDeveloper   = "frontend_developer"
	MarketingManager    = "marketing_manager"
	ContentCreator      = "content_creator"
	SocialMediaManager  = "social_media_manager"
	LeadGenerationAgent = "lead_generation_agent"
	CommunityManager    = "community_manager"
	DesignManager       = "design_manager"
	GraphicDesigner     = "graphic_designer"
	QAManager           = "qa_manager"
	TestEngineer        = "test_engineer"
	CodeReviewer        = "code_reviewer"
	BillingManager      = "billing_manager"
	HRManager           = "hr_manager"
	Orchestrator        = "orchestrator"
	AnalyticsAgent      = "analytics_agent"
	ProvisioningAgent   = "provisioning_agent"
	NotificationAgent   = "notification_agent"
)

// MCP is the sender id used by the coordinator itself. It has no mailbox.
const MCP = "mcp"

var agents = map[string]string{
	CEO:                 "CEO",
	Architect:           "Architect",
	EngineeringManager:  "Engineering Manager",
	BackendDeveloper:    "Backend Developer",
	FrontendDeveloper:   "Frontend Developer",
	MarketingManager:    "Marketing Manager",
	ContentCreator:      "Content Creator",
	SocialMediaManager:  "Social Media Manager",
	LeadGenerationAgent: "Lead Generation Agent",
	CommunityManager:    "Community Manager",
	DesignManager:       "Design Manager",
	GraphicDesigner:     "Graphic Designer",
	QAManager:           "QA Manager",
	TestEngineer:        "Test Engineer",
	CodeReviewer:        "Code Reviewer",
	BillingManager:      "Billing Manager",
	HRManager:           "HR Manager",
	Orchestrator:        "Orchestrator",
	AnalyticsAgent:      "Analytics Agent",
	ProvisioningAgent:   "Provisioning Agent",
	NotificationAgent:   "Notification Agent",
}

// IsRegistered reports whether id names an agent with a mailbox.
func IsRegistered(id string) bool {
	_, ok := agents[id]
	return ok
}

// DisplayName returns the human readable role, or the id itself when unknown.
func DisplayName(id string) string {
	if name, ok := agents[id]; ok {
		return name
	}
	return id
}

// IDs returns every registered agent id in lexical order.
func IDs() []string {
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Suggest returns the registered id closest to id by edit distance, or "" when
// nothing is within half the length of the input.
func Suggest(id string) string {
	best, bestDist := "", -1
	for _, candidate := range IDs() {
		d := levenshtein.DistanceForStrings([]rune(id), []rune(candidate), levenshtein.DefaultOptions)
		if bestDist == -1 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 || bestDist > len(id)/2+1 {
		return ""
	}
	return best
}
