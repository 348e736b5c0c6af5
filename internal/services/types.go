package services

import "github.com/google/uuid"

// RegisterInput carries the sanitized sign-up form.
type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// CreateSurveyInput is the payload for launching a survey from a template.
// A nil AnonymityThreshold takes the workspace setting.
type CreateSurveyInput struct {
	Name               string   `json:"name"`
	TemplateID         string   `json:"templateId"`
	Periodicity        string   `json:"periodicity,omitempty"`
	AnonymityThreshold *int     `json:"anonymityThreshold,omitempty"`
	Departments        []string `json:"departments"`
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	AnonymityThreshold *int  `json:"anonymityThreshold,omitempty"`
	RemindersEnabled   *bool `json:"remindersEnabled,omitempty"`
}

// Department is an entry of the department directory.
type Department struct {
	Name string `json:"name"`
}

func newID() string { return uuid.NewString() }
