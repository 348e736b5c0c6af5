package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	AddResponse(ctx context.Context, r *models.SurveyResponse) error
	// ListResponsesByUser returns a user's submissions, oldest first.
	ListResponsesByUser(ctx context.Context, userID string) ([]*models.SurveyResponse, error)
}

type ResponseService struct {
	store ResponseStore
	now   func() time.Time
	idGen func() string
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: newID,
	}
}

// Submit stores a survey submission as a list of answers. Values are kept as
// sent; the dashboard discards entries it cannot use.
func (s *ResponseService) Submit(ctx context.Context, userID, surveyID string, answers []Answer) (*models.SurveyResponse, error) {
	if _, err := s.requireSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, NewInvalidError("Answers required")
	}
	for _, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return nil, NewInvalidError("questionId required")
		}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, surveyID, raw)
}

// SubmitLegacy stores a payload from older clients verbatim. Those clients
// send a flat questionId → value object.
func (s *ResponseService) SubmitLegacy(ctx context.Context, userID, surveyID string, payload json.RawMessage) (*models.SurveyResponse, error) {
	payload = bytes.TrimSpace(payload)
	if userID == "" || strings.TrimSpace(surveyID) == "" || len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, NewInvalidError("Missing required fields")
	}
	if !json.Valid(payload) {
		return nil, NewInvalidError("responses must be valid JSON")
	}
	if _, err := s.requireSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, surveyID, payload)
}

// Mine lists the caller's own submissions.
func (s *ResponseService) Mine(ctx context.Context, userID string) ([]*models.SurveyResponse, error) {
	list, err := s.store.ListResponsesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.SurveyResponse{}
	}
	return list, nil
}

func (s *ResponseService) requireSurvey(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	return sv, nil
}

func (s *ResponseService) save(ctx context.Context, userID, surveyID string, raw json.RawMessage) (*models.SurveyResponse, error) {
	r := &models.SurveyResponse{
		ID:        s.idGen(),
		SurveyID:  surveyID,
		UserID:    userID,
		Answers:   raw,
		CreatedAt: s.now(),
	}
	if err := s.store.AddResponse(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
