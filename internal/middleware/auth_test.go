package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

func claimsEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(c.UID + ":" + string(c.Role)))
	})
}

func bearer(req *http.Request, tok string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestSignAndParse(t *testing.T) {
	a := NewAuth("secret")
	tok, err := a.SignToken("u1", models.RoleHR, "hr@example.com", time.Hour)
	require.NoError(t, err)

	c, err := a.parseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UID)
	assert.Equal(t, models.RoleHR, c.Role)
	assert.Equal(t, "hr@example.com", c.Email)

	_, err = NewAuth("other").parseToken(tok)
	assert.Error(t, err)
}

func TestExpiredTokenIsIgnored(t *testing.T) {
	a := NewAuth("secret")
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }
	tok, err := a.SignToken("u1", models.RoleAdmin, "a@example.com", time.Hour)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(2 * time.Hour) }
	rr := httptest.NewRecorder()
	a.WithAuth(claimsEcho(t)).ServeHTTP(rr, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestWithAuth(t *testing.T) {
	a := NewAuth("secret")
	tok, err := a.SignToken("u7", models.RoleEmployee, "e@example.com", time.Hour)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	a.WithAuth(claimsEcho(t)).ServeHTTP(rr, bearer(httptest.NewRequest(http.MethodGet, "/", nil), tok))
	assert.Equal(t, "u7:employee", rr.Body.String())

	rr = httptest.NewRecorder()
	a.WithAuth(claimsEcho(t)).ServeHTTP(rr, bearer(httptest.NewRequest(http.MethodGet, "/", nil), "garbage"))
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(claimsEcho(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UID: "u1", Role: models.RoleManager}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1:manager", rr.Body.String())
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin, models.RoleHR)(claimsEcho(t))

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"employee", &Claims{UID: "e", Role: models.RoleEmployee}, http.StatusForbidden},
		{"manager", &Claims{UID: "m", Role: models.RoleManager}, http.StatusForbidden},
		{"hr", &Claims{UID: "h", Role: models.RoleHR}, http.StatusOK},
		{"admin", &Claims{UID: "a", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
