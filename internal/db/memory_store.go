package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// MemoryStore keeps everything in process. It mirrors SQLiteStore's
// semantics and is used for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	byEmail   map[string]string
	userOrder []string
	templates []*models.SurveyTemplate
	surveys   []*models.Survey
	responses []*models.SurveyResponse
	respIDs   map[string]struct{}
	settings  *models.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]*models.User{},
		byEmail: map[string]string{},
		respIDs: map[string]struct{}{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PassHash = slices.Clone(u.PassHash)
	return &c
}

func cloneTemplate(t *models.SurveyTemplate) *models.SurveyTemplate {
	c := *t
	c.Questions = slices.Clone(t.Questions)
	if c.Questions == nil {
		c.Questions = []models.Question{}
	}
	return &c
}

func cloneSurvey(s *models.Survey) *models.Survey {
	c := *s
	c.Departments = slices.Clone(s.Departments)
	if c.Departments == nil {
		c.Departments = []string{}
	}
	return &c
}

func cloneResponse(r *models.SurveyResponse) *models.SurveyResponse {
	c := *r
	c.Answers = slices.Clone(r.Answers)
	return &c
}

// millis truncates like the SQLite columns do.
func millis(t time.Time) time.Time { return fromMillis(toMillis(t)) }

func (s *MemoryStore) AddUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("insert user: %w", ErrDuplicate)
	}
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("insert user: %w", ErrDuplicate)
	}
	c := cloneUser(u)
	c.Email = email
	c.CreatedAt = millis(u.CreatedAt)
	s.users[c.ID] = c
	s.byEmail[email] = c.ID
	s.userOrder = append(s.userOrder, c.ID)
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return nil
	}
	cur.PassHash = slices.Clone(u.PassHash)
	cur.Name = u.Name
	cur.Role = u.Role
	cur.Department = u.Department
	cur.Position = u.Position
	cur.Approved = u.Approved
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		return cloneUser(s.users[id]), nil
	}
	return nil, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, cloneUser(s.users[id]))
	}
	// newest first; ties keep reverse insertion order
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetUserApproved(_ context.Context, id string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Approved = approved
	}
	return nil
}

func (s *MemoryStore) CountEligibleUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Approved && u.Role.Eligible() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) AddTemplate(_ context.Context, t *models.SurveyTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.templates {
		if cur.ID == t.ID || cur.Name == t.Name {
			return fmt.Errorf("insert template: %w", ErrDuplicate)
		}
	}
	for i := range t.Questions {
		t.Questions[i].TemplateID = t.ID
	}
	c := cloneTemplate(t)
	sort.SliceStable(c.Questions, func(i, j int) bool { return c.Questions[i].Position < c.Questions[j].Position })
	c.CreatedAt = millis(t.CreatedAt)
	s.templates = append(s.templates, c)
	return nil
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]*models.SurveyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SurveyTemplate, 0, len(s.templates))
	for i := len(s.templates) - 1; i >= 0; i-- {
		out = append(out, cloneTemplate(s.templates[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) findTemplate(match func(*models.SurveyTemplate) bool) *models.SurveyTemplate {
	for _, t := range s.templates {
		if match(t) {
			return t
		}
	}
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (*models.SurveyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.findTemplate(func(t *models.SurveyTemplate) bool { return t.ID == id }); t != nil {
		return cloneTemplate(t), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindTemplateByName(_ context.Context, name string) (*models.SurveyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.findTemplate(func(t *models.SurveyTemplate) bool { return t.Name == name }); t != nil {
		return cloneTemplate(t), nil
	}
	return nil, nil
}

func (s *MemoryStore) withTemplateName(sv *models.Survey) *models.Survey {
	c := cloneSurvey(sv)
	c.TemplateName = ""
	if t := s.findTemplate(func(t *models.SurveyTemplate) bool { return t.ID == sv.TemplateID }); t != nil {
		c.TemplateName = t.Name
	}
	return c
}

func (s *MemoryStore) AddSurvey(_ context.Context, sv *models.Survey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.surveys {
		if cur.ID == sv.ID {
			return fmt.Errorf("insert survey: %w", ErrDuplicate)
		}
	}
	c := cloneSurvey(sv)
	c.CreatedAt = millis(sv.CreatedAt)
	s.surveys = append(s.surveys, c)
	return nil
}

func (s *MemoryStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sv := range s.surveys {
		if sv.ID == id {
			return s.withTemplateName(sv), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListSurveys(_ context.Context) ([]*models.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Survey, 0, len(s.surveys))
	for i := len(s.surveys) - 1; i >= 0; i-- {
		out = append(out, s.withTemplateName(s.surveys[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetSurveyArchived(_ context.Context, id string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sv := range s.surveys {
		if sv.ID != id {
			continue
		}
		sv.Archived = archived
		sv.Status = models.SurveyActive
		if archived {
			sv.Status = models.SurveyClosed
		}
	}
	return nil
}

func (s *MemoryStore) AddResponse(_ context.Context, r *models.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.respIDs[r.ID]; ok {
		return fmt.Errorf("insert response: %w", ErrDuplicate)
	}
	c := cloneResponse(r)
	c.CreatedAt = millis(r.CreatedAt)
	// keep responses ordered by creation time, insertion order on ties
	i := sort.Search(len(s.responses), func(i int) bool { return s.responses[i].CreatedAt.After(c.CreatedAt) })
	s.responses = slices.Insert(s.responses, i, c)
	s.respIDs[c.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) ListResponsesByUser(_ context.Context, userID string) ([]*models.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SurveyResponse
	for _, r := range s.responses {
		if r.UserID == userID {
			out = append(out, cloneResponse(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListResponseRecords(_ context.Context, from, to time.Time) ([]models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from = millis(from)
	if !to.IsZero() {
		to = millis(to)
	}
	var out []models.ResponseRecord
	for _, r := range s.responses {
		if r.CreatedAt.Before(from) || (!to.IsZero() && !r.CreatedAt.Before(to)) {
			continue
		}
		rec := models.ResponseRecord{
			ResponseID:  r.ID,
			UserID:      r.UserID,
			Answers:     slices.Clone(r.Answers),
			SubmittedAt: r.CreatedAt,
		}
		if u, ok := s.users[r.UserID]; ok {
			rec.Department = u.Department
		}
		for _, sv := range s.surveys {
			if sv.ID != r.SurveyID {
				continue
			}
			if t := s.findTemplate(func(t *models.SurveyTemplate) bool { return t.ID == sv.TemplateID }); t != nil {
				rec.Questions = slices.Clone(t.Questions)
			}
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, nil
	}
	c := *s.settings
	return &c, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, st *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *st
	c.UpdatedAt = millis(st.UpdatedAt)
	s.settings = &c
	return nil
}
