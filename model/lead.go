package model

import "time"

const (
	DefaultLeadSource = "landing_page"
	DefaultLeadStatus = "new"
)

type Lead struct {
	LeadID    string    `json:"lead_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message,omitempty"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
