package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// legacyResponse is one entry of the old data/responses.json file.
type legacyResponse struct {
	ID          string          `json:"id"`
	SurveyID    string          `json:"surveyId"`
	UserID      string          `json:"userId"`
	Responses   json.RawMessage `json:"responses"`
	SubmittedAt string          `json:"submittedAt"`
}

// ImportStats summarizes an ImportLegacyResponses run.
type ImportStats struct {
	Imported int
	Skipped  int
}

// ImportLegacyResponses copies the JSON response log into store. Entries
// that are already present (same id) or that lack an id, user, or payload
// are skipped, so the import can safely be repeated. A missing file imports
// nothing.
func ImportLegacyResponses(ctx context.Context, store interface {
	AddResponse(ctx context.Context, r *models.SurveyResponse) error
}, path string, log *zap.Logger) (ImportStats, error) {
	var stats ImportStats
	if log == nil {
		log = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("read legacy responses: %w", err)
	}
	var entries []legacyResponse
	if err := json.Unmarshal(data, &entries); err != nil {
		return stats, fmt.Errorf("decode legacy responses: %w", err)
	}

	log.Info("Importing legacy responses", zap.String("path", path), zap.Int("entries", len(entries)))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" || e.UserID == "" || len(e.Responses) == 0 || string(e.Responses) == "null" {
			stats.Skipped++
			continue
		}
		submitted, err := time.Parse(time.RFC3339Nano, e.SubmittedAt)
		if err != nil {
			log.Warn("Legacy response has no valid timestamp", zap.String("id", e.ID), zap.Error(err))
			stats.Skipped++
			continue
		}
		err = store.AddResponse(ctx, &models.SurveyResponse{
			ID:        e.ID,
			SurveyID:  e.SurveyID,
			UserID:    e.UserID,
			Answers:   e.Responses,
			CreatedAt: submitted.UTC(),
		})
		if errors.Is(err, ErrDuplicate) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.Imported++
	}
	log.Info("Legacy import finished", zap.Int("imported", stats.Imported), zap.Int("skipped", stats.Skipped))
	return stats, nil
}
