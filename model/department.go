package model

type Department string

const (
	Marketing        Department = "Marketing"
	Design           Department = "Design"
	QA               Department = "QA"
	HumanCapital     Department = "HumanCapital"
	Operations       Department = "Operations"
	DataIntelligence Department = "DataIntelligence"
	ExecutiveBoard   Department = "Executive Board"
	Engineering      Department = "Engineering"
)

// ToolDecision is the outcome of an agent's think step.
type ToolDecision struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

const NoTool = "none"

func NoToolDecision() ToolDecision {
	return ToolDecision{Tool: NoTool, Params: map[string]interface{}{}}
}
