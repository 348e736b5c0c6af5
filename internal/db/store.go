package db

import (
	"context"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

// Store is everything the services need from persistence, plus the few
// writes used by seeding.
type Store interface {
	services.AuthStore
	services.UserStore
	services.SurveyStore
	services.ResponseStore
	services.SettingsStore
	services.DashboardStore

	UpdateUser(ctx context.Context, u *models.User) error
	AddTemplate(ctx context.Context, t *models.SurveyTemplate) error
	FindTemplateByName(ctx context.Context, name string) (*models.SurveyTemplate, error)
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
