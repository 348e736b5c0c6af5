package models

import (
	"encoding/json"
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Eligible reports whether users with this role count towards survey coverage.
func (r Role) Eligible() bool {
	return r == RoleEmployee || r == RoleManager
}

// User is an account. PassHash never leaves the server.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	PassHash   []byte    `json:"-"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Question is a single Likert item of a template. Text is the only signal
// used to derive the question's dimension.
type Question struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Text       string `json:"text"`
	Type       string `json:"type"`
	Position   int    `json:"position"`
}

// SurveyTemplate is an ordered question set surveys are created from.
type SurveyTemplate struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Survey is a scheduled run of a template for a set of departments.
type Survey struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	TemplateID         string    `json:"templateId"`
	TemplateName       string    `json:"templateName,omitempty"`
	Periodicity        string    `json:"periodicity,omitempty"`
	AnonymityThreshold int       `json:"anonymityThreshold"`
	Departments        []string  `json:"departments"`
	Status             string    `json:"status"`
	Archived           bool      `json:"archived"`
	CreatedAt          time.Time `json:"createdAt"`
}

const (
	SurveyActive = "active"
	SurveyClosed = "closed"
)

// SurveyResponse is one submission. Answers keeps the payload exactly as it
// was received; its shape varies between clients.
type SurveyResponse struct {
	ID        string          `json:"id"`
	SurveyID  string          `json:"surveyId"`
	UserID    string          `json:"userId"`
	Answers   json.RawMessage `json:"answers"`
	CreatedAt time.Time       `json:"submittedAt"`
}

// ResponseRecord is the read model the dashboard aggregates over: a response
// joined with its submitter's department and its survey's question set.
type ResponseRecord struct {
	ResponseID  string
	UserID      string
	Department  string
	Answers     json.RawMessage
	Questions   []Question
	SubmittedAt time.Time
}

// Settings is the global workspace configuration record.
type Settings struct {
	AnonymityThreshold int       `json:"anonymityThreshold"`
	RemindersEnabled   bool      `json:"remindersEnabled"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}
