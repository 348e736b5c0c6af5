package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

// ErrDuplicate is returned when an insert collides with an existing id or
// unique key.
var ErrDuplicate = errors.New("duplicate record")

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// mapInsertErr turns unique and primary key violations into ErrDuplicate.
func mapInsertErr(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- users ---

const userColumns = "id, email, pass_hash, name, role, department, position, approved, created_at"

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		role     string
		approved int64
		created  int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.Name, &role, &u.Department, &u.Position, &approved, &created); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.Approved = approved != 0
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

func (s *SQLiteStore) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, strings.ToLower(u.Email), u.PassHash, u.Name, string(u.Role), u.Department, u.Position,
		boolToInt64(u.Approved), toMillis(u.CreatedAt))
	if err != nil {
		return mapInsertErr("insert user", err)
	}
	return nil
}

// UpdateUser rewrites every mutable column of an existing account.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET pass_hash = ?, name = ?, role = ?, department = ?, position = ?, approved = ? WHERE id = ?",
		u.PassHash, u.Name, string(u.Role), u.Department, u.Position, boolToInt64(u.Approved), u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getUserWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetUserApproved(ctx context.Context, id string, approved bool) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE users SET approved = ? WHERE id = ?", boolToInt64(approved), id); err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountEligibleUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE approved = 1 AND role IN (?, ?)",
		string(models.RoleEmployee), string(models.RoleManager)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count eligible users: %w", err)
	}
	return n, nil
}

// --- templates ---

func (s *SQLiteStore) AddTemplate(ctx context.Context, t *models.SurveyTemplate) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add template: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, "INSERT INTO survey_templates (id, name, created_at) VALUES (?, ?, ?)",
		t.ID, t.Name, toMillis(t.CreatedAt)); err != nil {
		return mapInsertErr("insert template", err)
	}
	for i := range t.Questions {
		q := &t.Questions[i]
		q.TemplateID = t.ID
		if _, err = tx.ExecContext(ctx, "INSERT INTO questions (id, template_id, position, text, type) VALUES (?, ?, ?, ?, ?)",
			q.ID, t.ID, q.Position, q.Text, q.Type); err != nil {
			return mapInsertErr("insert question", err)
		}
	}
	return nil
}

func (s *SQLiteStore) questions(ctx context.Context, templateID string) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, template_id, position, text, type FROM questions WHERE template_id = ? ORDER BY position ASC, id ASC", templateID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	out := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.TemplateID, &q.Position, &q.Text, &q.Type); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) templatesWhere(ctx context.Context, where string, args ...any) ([]*models.SurveyTemplate, error) {
	q := "SELECT id, name, created_at FROM survey_templates"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at DESC, rowid DESC"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var out []*models.SurveyTemplate
	for rows.Next() {
		var (
			t       models.SurveyTemplate
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.CreatedAt = fromMillis(created)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for _, t := range out {
		if t.Questions, err = s.questions(ctx, t.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]*models.SurveyTemplate, error) {
	return s.templatesWhere(ctx, "")
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*models.SurveyTemplate, error) {
	ts, err := s.templatesWhere(ctx, "id = ?", id)
	if err != nil || len(ts) == 0 {
		return nil, err
	}
	return ts[0], nil
}

func (s *SQLiteStore) FindTemplateByName(ctx context.Context, name string) (*models.SurveyTemplate, error) {
	ts, err := s.templatesWhere(ctx, "name = ?", name)
	if err != nil || len(ts) == 0 {
		return nil, err
	}
	return ts[0], nil
}

// --- surveys ---

const surveySelect = `SELECT s.id, s.name, s.template_id, COALESCE(t.name, ''), s.periodicity,
       s.anonymity_threshold, s.departments, s.status, s.archived, s.created_at
FROM surveys s LEFT JOIN survey_templates t ON t.id = s.template_id`

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var (
		sv       models.Survey
		depts    string
		archived int64
		created  int64
	)
	if err := row.Scan(&sv.ID, &sv.Name, &sv.TemplateID, &sv.TemplateName, &sv.Periodicity,
		&sv.AnonymityThreshold, &depts, &sv.Status, &archived, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(depts), &sv.Departments); err != nil {
		return nil, fmt.Errorf("decode departments of survey %s: %w", sv.ID, err)
	}
	if sv.Departments == nil {
		sv.Departments = []string{}
	}
	sv.Archived = archived != 0
	sv.CreatedAt = fromMillis(created)
	return &sv, nil
}

func (s *SQLiteStore) AddSurvey(ctx context.Context, sv *models.Survey) error {
	depts := sv.Departments
	if depts == nil {
		depts = []string{}
	}
	b, err := json.Marshal(depts)
	if err != nil {
		return fmt.Errorf("encode departments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO surveys (id, name, template_id, periodicity, anonymity_threshold, departments, status, archived, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.Name, sv.TemplateID, sv.Periodicity, sv.AnonymityThreshold, string(b), sv.Status,
		boolToInt64(sv.Archived), toMillis(sv.CreatedAt))
	if err != nil {
		return mapInsertErr("insert survey", err)
	}
	return nil
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx, surveySelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return sv, nil
}

func (s *SQLiteStore) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	rows, err := s.db.QueryContext(ctx, surveySelect+" ORDER BY s.created_at DESC, s.rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()
	var out []*models.Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan survey: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetSurveyArchived(ctx context.Context, id string, archived bool) error {
	status := models.SurveyActive
	if archived {
		status = models.SurveyClosed
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE surveys SET archived = ?, status = ? WHERE id = ?",
		boolToInt64(archived), status, id); err != nil {
		return fmt.Errorf("archive survey: %w", err)
	}
	return nil
}

// --- responses ---

func (s *SQLiteStore) AddResponse(ctx context.Context, r *models.SurveyResponse) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO survey_responses (id, survey_id, user_id, answers, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.SurveyID, r.UserID, string(r.Answers), toMillis(r.CreatedAt))
	if err != nil {
		return mapInsertErr("insert response", err)
	}
	return nil
}

func (s *SQLiteStore) ListResponsesByUser(ctx context.Context, userID string) ([]*models.SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, survey_id, user_id, answers, created_at FROM survey_responses WHERE user_id = ? ORDER BY created_at ASC, rowid ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	var out []*models.SurveyResponse
	for rows.Next() {
		var (
			r       models.SurveyResponse
			answers string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.UserID, &answers, &created); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.Answers = json.RawMessage(answers)
		r.CreatedAt = fromMillis(created)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResponseRecords(ctx context.Context, from, to time.Time) ([]models.ResponseRecord, error) {
	q := `SELECT r.id, r.user_id, COALESCE(u.department, ''), r.answers, r.created_at, COALESCE(sv.template_id, '')
FROM survey_responses r
LEFT JOIN users u ON u.id = r.user_id
LEFT JOIN surveys sv ON sv.id = r.survey_id
WHERE r.created_at >= ?`
	args := []any{toMillis(from)}
	if !to.IsZero() {
		q += " AND r.created_at < ?"
		args = append(args, toMillis(to))
	}
	q += " ORDER BY r.created_at ASC, r.rowid ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list response records: %w", err)
	}
	var (
		out       []models.ResponseRecord
		templates []string
	)
	for rows.Next() {
		var (
			rec     models.ResponseRecord
			answers string
			created int64
			tplID   string
		)
		if err := rows.Scan(&rec.ResponseID, &rec.UserID, &rec.Department, &answers, &created, &tplID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan response record: %w", err)
		}
		rec.Answers = json.RawMessage(answers)
		rec.SubmittedAt = fromMillis(created)
		out = append(out, rec)
		templates = append(templates, tplID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	cache := map[string][]models.Question{}
	for i, tplID := range templates {
		if tplID == "" {
			continue
		}
		qs, ok := cache[tplID]
		if !ok {
			if qs, err = s.questions(ctx, tplID); err != nil {
				return nil, err
			}
			cache[tplID] = qs
		}
		out[i].Questions = qs
	}
	return out, nil
}

// --- settings ---

func (s *SQLiteStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var (
		st        models.Settings
		reminders int64
		updated   int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT anonymity_threshold, reminders_enabled, updated_at FROM settings WHERE id = 1").
		Scan(&st.AnonymityThreshold, &reminders, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	st.RemindersEnabled = reminders != 0
	st.UpdatedAt = fromMillis(updated)
	return &st, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, st *models.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, anonymity_threshold, reminders_enabled, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET anonymity_threshold = excluded.anonymity_threshold,
		   reminders_enabled = excluded.reminders_enabled, updated_at = excluded.updated_at`,
		st.AnonymityThreshold, boolToInt64(st.RemindersEnabled), toMillis(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
