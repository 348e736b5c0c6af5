package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/soaringjerry/MoodMetrics/internal/services"
)

type userView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Approved   bool   `json:"approved"`
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidPayload)
		return
	}
	res, err := rt.auth.Register(r.Context(), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if res.Pending() {
		writeJSON(w, http.StatusCreated, map[string]string{"message": res.Message})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidPayload)
		return
	}
	res, err := rt.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/auth/me
func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := rt.auth.Me(r.Context(), claims(r).UID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GET /api/admin/users
func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := rt.users.List(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// PUT /api/admin/users/{id}/approve
func (rt *Router) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	u, err := rt.users.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
		Department: u.Department, Position: u.Position, Approved: u.Approved})
}

// GET /api/employees
func (rt *Router) handleEmployees(w http.ResponseWriter, r *http.Request) {
	users, err := rt.users.Employees(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GET /api/employees/departments
func (rt *Router) handleDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := rt.users.Departments(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, depts)
}

// GET /api/surveys/templates
func (rt *Router) handleTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := rt.surveys.Templates(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// GET /api/surveys
func (rt *Router) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.surveys.List(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/surveys
func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var in services.CreateSurveyInput
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidPayload)
		return
	}
	sv, err := rt.surveys.Create(r.Context(), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sv)
}

// GET /api/surveys/{id}
func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	detail, err := rt.surveys.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// POST /api/surveys/{id}/responses
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Answers []services.Answer `json:"answers"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Answers required")
		return
	}
	if _, err := rt.responses.Submit(r.Context(), claims(r).UID, r.PathValue("id"), in.Answers); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// PATCH /api/surveys/{id}/archive and /unarchive
func (rt *Router) handleArchive(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var err error
		if archived {
			err = rt.surveys.Archive(r.Context(), id)
		} else {
			err = rt.surveys.Unarchive(r.Context(), id)
		}
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// POST /api/responses
// { surveyId: string, responses: {questionId: value} }
func (rt *Router) handleLegacySubmit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SurveyID  string          `json:"surveyId"`
		Responses json.RawMessage `json:"responses"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	resp, err := rt.responses.SubmitLegacy(r.Context(), claims(r).UID, in.SurveyID, in.Responses)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/responses/me
func (rt *Router) handleMyResponses(w http.ResponseWriter, r *http.Request) {
	list, err := rt.responses.Mine(r.Context(), claims(r).UID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/settings
func (rt *Router) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := rt.settings.Load(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PUT /api/settings
func (rt *Router) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch services.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidPayload)
		return
	}
	st, err := rt.settings.Update(r.Context(), patch)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// POST /api/ai/chat
// { messages: [{role, content}] }
func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Messages []services.ChatMessage `json:"messages"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, invalidPayload)
		return
	}
	text, err := rt.chat.Reply(r.Context(), in.Messages)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": strings.TrimSpace(text)})
}
