//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("MOODMETRICS_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// TestSurveyJourneyIntegration runs against a live server started with
// database.seed enabled.
func TestSurveyJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()
	suffix := time.Now().UnixNano()

	var adminLogin struct {
		Token string `json:"token"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email":    envOr("MOODMETRICS_TEST_ADMIN_EMAIL", "admin@psycheck.com"),
		"password": envOr("MOODMETRICS_TEST_ADMIN_PASSWORD", "admin123"),
	}, &adminLogin)
	if adminLogin.Token == "" {
		t.Fatalf("admin login did not return a token")
	}

	var hr struct {
		Token string `json:"token"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email":    fmt.Sprintf("hr_%d@example.com", suffix),
		"password": "Secret123!",
		"name":     "Integration HR",
		"role":     "hr",
	}, &hr)
	if hr.Token == "" {
		t.Fatalf("hr registration should be approved immediately")
	}

	var templates []struct {
		ID string `json:"id"`
	}
	doJSON(t, client, http.MethodGet, base+"/api/surveys/templates", hr.Token, nil, &templates)
	if len(templates) == 0 {
		t.Fatalf("expected seeded templates")
	}

	var survey struct {
		ID string `json:"id"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/surveys", hr.Token, map[string]any{
		"name":        "Integration pulse",
		"templateId":  templates[0].ID,
		"departments": []string{"Integration"},
	}, &survey)
	if survey.ID == "" {
		t.Fatalf("expected survey id in response")
	}

	empEmail := fmt.Sprintf("employee_%d@example.com", suffix)
	var pending struct {
		Message string `json:"message"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email":      empEmail,
		"password":   "Secret123!",
		"name":       "Integration Employee",
		"department": "Integration",
	}, &pending)
	if pending.Message == "" {
		t.Fatalf("employee registration should be pending")
	}

	var users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	doJSON(t, client, http.MethodGet, base+"/api/admin/users", adminLogin.Token, nil, &users)
	var empID string
	for _, u := range users {
		if u.Email == empEmail {
			empID = u.ID
		}
	}
	if empID == "" {
		t.Fatalf("registered employee missing from admin list")
	}
	doJSON(t, client, http.MethodPut, base+"/api/admin/users/"+empID+"/approve", adminLogin.Token, nil, nil)

	var emp struct {
		Token string `json:"token"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email":    empEmail,
		"password": "Secret123!",
	}, &emp)

	var detail struct {
		Template struct {
			Questions []struct {
				ID string `json:"id"`
			} `json:"questions"`
		} `json:"template"`
	}
	doJSON(t, client, http.MethodGet, base+"/api/surveys/"+survey.ID, emp.Token, nil, &detail)
	answers := make([]map[string]any, 0, len(detail.Template.Questions))
	for _, q := range detail.Template.Questions {
		answers = append(answers, map[string]any{"questionId": q.ID, "value": 4})
	}
	doJSON(t, client, http.MethodPost, base+"/api/surveys/"+survey.ID+"/responses", emp.Token, map[string]any{"answers": answers}, nil)

	req, err := http.NewRequest(http.MethodGet, base+"/api/dashboard/export?format=csv", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+hr.Token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("export status %d body %s", resp.StatusCode, string(body))
	}
	csvData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export data: %v", err)
	}
	if !strings.Contains(string(csvData), empID) {
		t.Fatalf("export csv did not contain the employee's answers; csv=%s", csvData)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, out any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
