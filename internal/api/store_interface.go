package api

import "github.com/soaringjerry/MoodMetrics/internal/services"

// Store is the persistence surface the HTTP layer wires into its services.
type Store interface {
	services.AuthStore
	services.UserStore
	services.SurveyStore
	services.ResponseStore
	services.SettingsStore
	services.DashboardStore
}
