package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/MoodMetrics/internal/db"
	"github.com/soaringjerry/MoodMetrics/internal/middleware"
	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

const invalidPayload = "Некорректные данные"

// Options carries everything NewRouter needs besides the store.
type Options struct {
	Auth       *middleware.Auth
	TokenTTL   time.Duration
	Settings   models.Settings
	Thresholds services.Thresholds
	Classifier services.Classifier
	Dashboard  services.DashboardOptions
	Chat       services.ChatConfig
	Log        *zap.Logger
}

type Router struct {
	jwt       *middleware.Auth
	auth      *services.AuthService
	users     *services.UserService
	surveys   *services.SurveyService
	responses *services.ResponseService
	settings  *services.SettingsService
	dashboard *services.DashboardService
	chat      *services.ChatService
	log       *zap.Logger
}

func NewRouter(store Store, opts Options) *Router {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	settings := services.NewSettingsService(store, opts.Settings)
	calc := services.NewCalculator(opts.Classifier, opts.Thresholds)
	return &Router{
		jwt:       opts.Auth,
		auth:      services.NewAuthService(store, opts.Auth.SignToken, opts.TokenTTL),
		users:     services.NewUserService(store),
		surveys:   services.NewSurveyService(store, settings),
		responses: services.NewResponseService(store),
		settings:  settings,
		dashboard: services.NewDashboardService(store, calc, opts.Dashboard),
		chat:      services.NewChatService(opts.Chat, log.Named("ai")),
		log:       log,
	}
}

var (
	staff   = []models.Role{models.RoleAdmin, models.RoleHR, models.RoleManager}
	admins  = []models.Role{models.RoleAdmin, models.RoleHR}
	creator = []models.Role{models.RoleHR, models.RoleManager, models.RoleAdmin}
)

// Register mounts every API route on mux. Callers must run requests through
// Auth.WithAuth and LocaleMiddleware, or use Handler.
func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", rt.handleRegister)
	mux.HandleFunc("POST /api/auth/login", rt.handleLogin)
	rt.authed(mux, "GET /api/auth/me", rt.handleMe)

	rt.authed(mux, "GET /api/admin/users", rt.handleListUsers, admins...)
	rt.authed(mux, "PUT /api/admin/users/{id}/approve", rt.handleApproveUser, models.RoleAdmin)
	rt.authed(mux, "GET /api/employees", rt.handleEmployees, staff...)
	rt.authed(mux, "GET /api/employees/departments", rt.handleDepartments, staff...)

	rt.authed(mux, "GET /api/surveys/templates", rt.handleTemplates)
	rt.authed(mux, "GET /api/surveys", rt.handleListSurveys)
	rt.authed(mux, "POST /api/surveys", rt.handleCreateSurvey, creator...)
	rt.authed(mux, "GET /api/surveys/{id}", rt.handleGetSurvey)
	rt.authed(mux, "POST /api/surveys/{id}/responses", rt.handleSubmit)
	rt.authed(mux, "PATCH /api/surveys/{id}/archive", rt.handleArchive(true), creator...)
	rt.authed(mux, "PATCH /api/surveys/{id}/unarchive", rt.handleArchive(false), creator...)

	rt.authed(mux, "POST /api/responses", rt.handleLegacySubmit)
	rt.authed(mux, "GET /api/responses/me", rt.handleMyResponses)

	rt.authed(mux, "GET /api/dashboard/metrics", rt.handleMetrics, staff...)
	rt.authed(mux, "GET /api/dashboard/dynamics", rt.handleDynamics, staff...)
	rt.authed(mux, "GET /api/dashboard/problem-zones", rt.handleProblemZones, staff...)
	rt.authed(mux, "GET /api/dashboard/recommendations", rt.handleRecommendations, staff...)
	rt.authed(mux, "GET /api/dashboard/export", rt.handleExport, staff...)
	rt.authed(mux, "GET /api/zones/heatmap", rt.handleHeatmap)
	rt.authed(mux, "GET /api/notifications", rt.handleNotifications)

	rt.authed(mux, "GET /api/settings", rt.handleGetSettings)
	rt.authed(mux, "PUT /api/settings", rt.handleUpdateSettings, admins...)

	rt.authed(mux, "POST /api/ai/chat", rt.handleChat)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found", "path": r.URL.Path})
	})
}

// Handler returns the API with token parsing and locale detection applied.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return middleware.LocaleMiddleware(rt.jwt.WithAuth(mux))
}

// authed registers h behind RequireAuth, or behind RequireRole when roles
// are given.
func (rt *Router) authed(mux *http.ServeMux, pattern string, h http.HandlerFunc, roles ...models.Role) {
	if len(roles) == 0 {
		mux.Handle(pattern, middleware.RequireAuth(h))
		return
	}
	mux.Handle(pattern, middleware.RequireRole(roles...)(h))
}

func claims(r *http.Request) *middleware.Claims {
	c, _ := middleware.ClaimsFromContext(r.Context())
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError maps service errors to HTTP statuses. Anything else is logged
// and reported as a generic 500.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeMessage(w, statusFor(se.Code), se.Message)
		return
	}
	if errors.Is(err, db.ErrDuplicate) {
		writeMessage(w, http.StatusConflict, "Already exists")
		return
	}
	rt.log.Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Error(err))
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	case services.ErrorUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
