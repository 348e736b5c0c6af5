package services

import (
	"context"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// Anonymity threshold bounds accepted by Update.
const (
	MinAnonymityThreshold = 1
	MaxAnonymityThreshold = 100
)

type SettingsStore interface {
	// GetSettings returns nil when nothing has been saved yet.
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
}

// DefaultSettings is the record served before anything is saved.
func DefaultSettings() models.Settings {
	return models.Settings{AnonymityThreshold: 7, RemindersEnabled: true}
}

// SettingsService loads and saves the workspace settings record. Nothing is
// cached: every call reads the store.
type SettingsService struct {
	store    SettingsStore
	defaults models.Settings
	now      func() time.Time
}

func NewSettingsService(store SettingsStore, defaults models.Settings) *SettingsService {
	return &SettingsService{
		store:    store,
		defaults: defaults,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SettingsService) Load(ctx context.Context) (models.Settings, error) {
	st, err := s.store.GetSettings(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if st == nil {
		return s.defaults, nil
	}
	return *st, nil
}

// Update applies a partial change on top of the current record and saves it.
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (models.Settings, error) {
	cur, err := s.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if patch.AnonymityThreshold != nil {
		v := *patch.AnonymityThreshold
		if v < MinAnonymityThreshold || v > MaxAnonymityThreshold {
			return models.Settings{}, NewInvalidError("anonymityThreshold must be between 1 and 100")
		}
		cur.AnonymityThreshold = v
	}
	if patch.RemindersEnabled != nil {
		cur.RemindersEnabled = *patch.RemindersEnabled
	}
	cur.UpdatedAt = s.now()
	if err := s.store.SaveSettings(ctx, &cur); err != nil {
		return models.Settings{}, err
	}
	return cur, nil
}
