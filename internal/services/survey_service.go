package services

import (
	"context"
	"strings"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

type SurveyStore interface {
	// ListTemplates returns templates with their questions, newest first.
	ListTemplates(ctx context.Context) ([]*models.SurveyTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.SurveyTemplate, error)
	// ListSurveys returns surveys with TemplateName filled, newest first.
	ListSurveys(ctx context.Context) ([]*models.Survey, error)
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	AddSurvey(ctx context.Context, s *models.Survey) error
	// SetSurveyArchived also moves Status to closed, or back to active.
	SetSurveyArchived(ctx context.Context, id string, archived bool) error
}

type settingsLoader interface {
	Load(ctx context.Context) (models.Settings, error)
}

type SurveyService struct {
	store    SurveyStore
	settings settingsLoader
	now      func() time.Time
	idGen    func() string
}

// SurveyDetail is a survey together with the questions respondents answer.
type SurveyDetail struct {
	*models.Survey
	Template SurveyDetailTemplate `json:"template"`
}

type SurveyDetailTemplate struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Questions []models.Question `json:"questions"`
}

func NewSurveyService(store SurveyStore, settings settingsLoader) *SurveyService {
	return &SurveyService{
		store:    store,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    newID,
	}
}

func (s *SurveyService) Templates(ctx context.Context) ([]*models.SurveyTemplate, error) {
	ts, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []*models.SurveyTemplate{}
	}
	return ts, nil
}

func (s *SurveyService) List(ctx context.Context) ([]*models.Survey, error) {
	list, err := s.store.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Survey{}
	}
	return list, nil
}

// Create launches an active survey from an existing template.
func (s *SurveyService) Create(ctx context.Context, in CreateSurveyInput) (*models.Survey, error) {
	name := strings.TrimSpace(in.Name)
	depts := cleanDepartments(in.Departments)
	if name == "" || strings.TrimSpace(in.TemplateID) == "" || len(depts) == 0 {
		return nil, NewInvalidError("Некорректные данные")
	}
	tpl, err := s.store.GetTemplate(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, NewInvalidError("Template not found")
	}

	threshold := 0
	if in.AnonymityThreshold != nil {
		threshold = *in.AnonymityThreshold
		if threshold < MinAnonymityThreshold || threshold > MaxAnonymityThreshold {
			return nil, NewInvalidError("anonymityThreshold must be between 1 and 100")
		}
	} else {
		st, err := s.settings.Load(ctx)
		if err != nil {
			return nil, err
		}
		threshold = st.AnonymityThreshold
	}

	sv := &models.Survey{
		ID:                 s.idGen(),
		Name:               name,
		TemplateID:         tpl.ID,
		TemplateName:       tpl.Name,
		Periodicity:        strings.TrimSpace(in.Periodicity),
		AnonymityThreshold: threshold,
		Departments:        depts,
		Status:             models.SurveyActive,
		CreatedAt:          s.now(),
	}
	if err := s.store.AddSurvey(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func cleanDepartments(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (s *SurveyService) Get(ctx context.Context, id string) (*SurveyDetail, error) {
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, ErrSurveyNotFound
	}
	tpl, err := s.store.GetTemplate(ctx, sv.TemplateID)
	if err != nil {
		return nil, err
	}
	detail := &SurveyDetail{Survey: sv, Template: SurveyDetailTemplate{ID: sv.TemplateID, Questions: []models.Question{}}}
	if tpl != nil {
		detail.Template.Name = tpl.Name
		detail.Template.Questions = tpl.Questions
	}
	return detail, nil
}

// Archive closes a survey; Unarchive reopens it.
func (s *SurveyService) Archive(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, true)
}

func (s *SurveyService) Unarchive(ctx context.Context, id string) error {
	return s.setArchived(ctx, id, false)
}

func (s *SurveyService) setArchived(ctx context.Context, id string, archived bool) error {
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return err
	}
	if sv == nil {
		return ErrSurveyNotFound
	}
	return s.store.SetSurveyArchived(ctx, id, archived)
}
