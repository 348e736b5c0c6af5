package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/MoodMetrics/internal/db"
	"github.com/soaringjerry/MoodMetrics/internal/middleware"
	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

type testEnv struct {
	t     *testing.T
	h     http.Handler
	store *db.MemoryStore
	auth  *middleware.Auth
	seq   int
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := db.NewMemoryStore()
	a := middleware.NewAuth("test-secret")
	rt := NewRouter(store, Options{
		Auth:       a,
		TokenTTL:   time.Hour,
		Settings:   services.DefaultSettings(),
		Thresholds: services.DefaultThresholds(),
		Dashboard:  services.DefaultDashboardOptions(),
		Log:        zaptest.NewLogger(t),
	})
	return &testEnv{t: t, h: rt.Handler(), store: store, auth: a}
}

// addUser stores an account directly and returns its id and a valid token.
func (e *testEnv) addUser(role models.Role, dept string, approved bool) (string, string) {
	e.t.Helper()
	e.seq++
	id := string(role) + "-" + string(rune('a'+e.seq))
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := &models.User{ID: id, Email: id + "@example.com", PassHash: hash, Name: id, Role: role,
		Department: dept, Approved: approved, CreatedAt: time.Now().UTC()}
	require.NoError(e.t, e.store.AddUser(context.Background(), u))
	tok, err := e.auth.SignToken(id, role, u.Email, time.Hour)
	require.NoError(e.t, err)
	return id, tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}

func (e *testEnv) addTemplate() string {
	e.t.Helper()
	tpl := &models.SurveyTemplate{ID: "tpl", Name: "Pulse", CreatedAt: time.Now().UTC(), Questions: []models.Question{
		{ID: "q-wb", Text: "Общая удовлетворённость неделей", Type: "scale", Position: 1},
		{ID: "q-bo", Text: "Усталость к концу дня", Type: "scale", Position: 2},
		{ID: "q-tn", Text: "Как часто возникают конфликты", Type: "scale", Position: 3},
	}}
	require.NoError(e.t, e.store.AddTemplate(context.Background(), tpl))
	return tpl.ID
}

func TestRegisterApproveLogin(t *testing.T) {
	env := newEnv(t)
	_, adminTok := env.addUser(models.RoleAdmin, "", true)

	rr := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "New@Example.com", "password": "secret1", "name": "New", "department": "Sales",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, services.PendingApprovalMessage, decode[map[string]string](t, rr)["message"])

	login := map[string]string{"email": "new@example.com", "password": "secret1"}
	rr = env.do(http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Аккаунт ожидает подтверждения администратором", errorOf(t, rr))

	u, err := env.store.FindUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)

	rr = env.do(http.MethodPut, "/api/admin/users/"+u.ID+"/approve", adminTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[map[string]any](t, rr)["approved"].(bool))

	rr = env.do(http.MethodPost, "/api/auth/login", "", login)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}](t, rr)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "employee", res.User["role"])
	assert.NotContains(t, rr.Body.String(), "passHash")

	rr = env.do(http.MethodGet, "/api/auth/me", res.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "new@example.com", decode[map[string]any](t, rr)["email"])

	rr = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid credentials", errorOf(t, rr))
}

func TestRegisterValidation(t *testing.T) {
	env := newEnv(t)

	rr := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@b.c", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Пароль должен быть минимум 6 символов", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "hr@b.c", "password": "123456", "role": "hr"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[map[string]any](t, rr)["token"])

	rr = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "HR@b.c", "password": "123456"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "User already exists", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "long@b.c", "password": strings.Repeat("x", 80), "role": "hr"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Пароль должен быть не длиннее 72 байт", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoleGates(t *testing.T) {
	env := newEnv(t)
	_, empTok := env.addUser(models.RoleEmployee, "Sales", true)
	_, mgrTok := env.addUser(models.RoleManager, "IT", true)
	_, hrTok := env.addUser(models.RoleHR, "", true)
	env.addUser(models.RoleEmployee, "Ops", false)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous", http.MethodGet, "/api/surveys", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/surveys", "garbage", http.StatusUnauthorized},
		{"employee lists surveys", http.MethodGet, "/api/surveys", empTok, http.StatusOK},
		{"employee admin users", http.MethodGet, "/api/admin/users", empTok, http.StatusForbidden},
		{"hr admin users", http.MethodGet, "/api/admin/users", hrTok, http.StatusOK},
		{"hr approves", http.MethodPut, "/api/admin/users/x/approve", hrTok, http.StatusForbidden},
		{"employee dashboard", http.MethodGet, "/api/dashboard/metrics", empTok, http.StatusForbidden},
		{"manager dashboard", http.MethodGet, "/api/dashboard/metrics", mgrTok, http.StatusOK},
		{"manager employees", http.MethodGet, "/api/employees", mgrTok, http.StatusOK},
		{"employee settings", http.MethodPut, "/api/settings", empTok, http.StatusForbidden},
		{"employee heatmap", http.MethodGet, "/api/zones/heatmap", empTok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := env.do(http.MethodGet, "/api/employees", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]map[string]any](t, rr), 2)

	rr = env.do(http.MethodGet, "/api/employees/departments", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"name":"IT"},{"name":"Sales"}]`, rr.Body.String())

	rr = env.do(http.MethodPut, "/api/admin/users/nobody/approve", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSurveyLifecycle(t *testing.T) {
	env := newEnv(t)
	_, hrTok := env.addUser(models.RoleHR, "", true)
	_, empTok := env.addUser(models.RoleEmployee, "Sales", true)
	tplID := env.addTemplate()

	rr := env.do(http.MethodGet, "/api/surveys/templates", empTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]map[string]any](t, rr), 1)

	rr = env.do(http.MethodPost, "/api/surveys", hrTok, map[string]any{"name": "W", "templateId": "missing", "departments": []string{"Sales"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Template not found", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/surveys", hrTok, map[string]any{"name": "W", "templateId": tplID, "departments": []string{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Некорректные данные", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/surveys", empTok, map[string]any{"name": "W", "templateId": tplID, "departments": []string{"Sales"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(http.MethodPost, "/api/surveys", hrTok, map[string]any{"name": "Weekly", "templateId": tplID, "departments": []string{"Sales", " Sales "}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[models.Survey](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 7, created.AnonymityThreshold)
	assert.Equal(t, []string{"Sales"}, created.Departments)

	rr = env.do(http.MethodGet, "/api/surveys/"+created.ID, empTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode[struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Template struct {
			Questions []models.Question `json:"questions"`
		} `json:"template"`
	}](t, rr)
	assert.Equal(t, "Weekly", detail.Name)
	assert.Len(t, detail.Template.Questions, 3)

	rr = env.do(http.MethodGet, "/api/surveys/missing", empTok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodPost, "/api/surveys/missing/responses", empTok, map[string]any{"answers": []any{}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodPost, "/api/surveys/"+created.ID+"/responses", empTok, map[string]any{"answers": []any{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Answers required", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/surveys/"+created.ID+"/responses", empTok, map[string]any{"answers": []map[string]any{
		{"questionId": "q-wb", "value": 5}, {"questionId": "q-bo", "value": 2}, {"questionId": "q-tn", "value": 1},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	rr = env.do(http.MethodPatch, "/api/surveys/"+created.ID+"/archive", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(http.MethodGet, "/api/surveys", hrTok, nil)
	list := decode[[]models.Survey](t, rr)
	require.Len(t, list, 1)
	assert.True(t, list[0].Archived)
	assert.Equal(t, models.SurveyClosed, list[0].Status)
	assert.Equal(t, "Pulse", list[0].TemplateName)

	rr = env.do(http.MethodPatch, "/api/surveys/"+created.ID+"/unarchive", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(http.MethodPatch, "/api/surveys/missing/unarchive", hrTok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLegacyResponses(t *testing.T) {
	env := newEnv(t)
	_, hrTok := env.addUser(models.RoleHR, "", true)
	uid, empTok := env.addUser(models.RoleEmployee, "Sales", true)
	tplID := env.addTemplate()
	rr := env.do(http.MethodPost, "/api/surveys", hrTok, map[string]any{"name": "W", "templateId": tplID, "departments": []string{"Sales"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	sid := decode[models.Survey](t, rr).ID

	rr = env.do(http.MethodPost, "/api/responses", empTok, map[string]any{"surveyId": sid})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required fields", errorOf(t, rr))

	rr = env.do(http.MethodPost, "/api/responses", empTok, map[string]any{"surveyId": sid, "responses": map[string]any{"q-wb": 4, "q-bo": "5"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[models.SurveyResponse](t, rr)
	assert.Equal(t, uid, saved.UserID)
	assert.JSONEq(t, `{"q-wb": 4, "q-bo": "5"}`, string(saved.Answers))

	rr = env.do(http.MethodGet, "/api/responses/me", empTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	mine := decode[[]models.SurveyResponse](t, rr)
	require.Len(t, mine, 1)
	assert.Equal(t, saved.ID, mine[0].ID)

	rr = env.do(http.MethodGet, "/api/responses/me", hrTok, nil)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestDashboardEndpoints(t *testing.T) {
	env := newEnv(t)
	_, hrTok := env.addUser(models.RoleHR, "", true)
	_, empTok := env.addUser(models.RoleEmployee, "Sales", true)
	tplID := env.addTemplate()
	rr := env.do(http.MethodPost, "/api/surveys", hrTok, map[string]any{"name": "W", "templateId": tplID, "departments": []string{"Sales"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	sid := decode[models.Survey](t, rr).ID
	rr = env.do(http.MethodPost, "/api/surveys/"+sid+"/responses", empTok, map[string]any{"answers": []map[string]any{
		{"questionId": "q-wb", "value": 5}, {"questionId": "q-bo", "value": 2}, {"questionId": "q-tn", "value": 1},
	}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/api/dashboard/metrics", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	m := decode[services.Metrics](t, rr)
	assert.Equal(t, 100, m.WellbeingIndex.Overall)
	assert.Equal(t, services.StatusOK, m.WellbeingIndex.Status)
	assert.Equal(t, 0, m.BurnoutRisk.Value)
	assert.Equal(t, 100, m.SurveyCoverage.Value)
	assert.Equal(t, "ru", rr.Header().Get("Content-Language"))

	rr = env.do(http.MethodGet, "/api/dashboard/dynamics?lang=en", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	pts := decode[[]services.DynamicsPoint](t, rr)
	require.Len(t, pts, 8)
	assert.Equal(t, "Current", pts[7].Week)
	assert.Equal(t, 100, pts[7].Value)

	rr = env.do(http.MethodGet, "/api/dashboard/problem-zones", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	zones := decode[[]services.Zone](t, rr)
	require.Len(t, zones, 1)
	assert.Equal(t, "Sales", zones[0].Department)

	rr = env.do(http.MethodGet, "/api/dashboard/recommendations", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/zones/heatmap", empTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]services.HeatmapCell](t, rr), 3)

	rr = env.do(http.MethodGet, "/api/notifications", empTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[[]services.Notification](t, rr))

	rr = env.do(http.MethodGet, "/api/dashboard/export?format=csv", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "response_id,"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".csv")

	rr = env.do(http.MethodGet, "/api/dashboard/export", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))

	rr = env.do(http.MethodGet, "/api/dashboard/export?format=pdf", hrTok, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newEnv(t)
	_, hrTok := env.addUser(models.RoleHR, "", true)

	rr := env.do(http.MethodGet, "/api/settings", hrTok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	st := decode[models.Settings](t, rr)
	assert.Equal(t, 7, st.AnonymityThreshold)
	assert.True(t, st.RemindersEnabled)

	rr = env.do(http.MethodPut, "/api/settings", hrTok, map[string]any{"anonymityThreshold": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	st = decode[models.Settings](t, rr)
	assert.Equal(t, 5, st.AnonymityThreshold)
	assert.True(t, st.RemindersEnabled)

	rr = env.do(http.MethodPut, "/api/settings", hrTok, map[string]any{"anonymityThreshold": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(http.MethodGet, "/api/settings", hrTok, nil)
	assert.Equal(t, 5, decode[models.Settings](t, rr).AnonymityThreshold)
}

func TestChatNotConfigured(t *testing.T) {
	env := newEnv(t)
	_, tok := env.addUser(models.RoleEmployee, "Sales", true)
	rr := env.do(http.MethodPost, "/api/ai/chat", tok, map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "AI assistant is not configured", errorOf(t, rr))
}

func TestUnknownRoute(t *testing.T) {
	env := newEnv(t)
	rr := env.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found","path":"/api/nope"}`, rr.Body.String())
}
