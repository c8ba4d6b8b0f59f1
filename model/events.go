package model

import "time"

type Event struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// AnalyticsSummary is the dashboard roll-up of users, signups and task states.
type AnalyticsSummary struct {
	TotalUsers    int64                `json:"total_users"`
	ActiveUsers   int64                `json:"active_users"`
	Signups       int64                `json:"signups"`
	GoalsReceived int64                `json:"goals_received"`
	TotalLeads    int64                `json:"total_leads"`
	TasksByStatus map[TaskStatus]int64 `json:"tasks_by_status"`
}
