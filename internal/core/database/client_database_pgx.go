package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Surveya/internal/config"
	"github.com/markdave123-py/Surveya/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for a low-volume bot; adjust as needed.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, telegram_id, first_name, last_name, birth_date, status, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.TelegramID, user.FirstName, user.LastName, user.BirthDate, user.Status, user.Role, user.CreatedAt)
	return err
}

func (c *DatabaseClient) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	const q = `
		SELECT id, telegram_id, first_name, last_name, birth_date, status, role, created_at
		FROM users WHERE telegram_id = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, telegramID).Scan(
		&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.BirthDate, &u.Status, &u.Role, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) ListUsers(ctx context.Context) ([]models.User, error) {
	const q = `
		SELECT id, telegram_id, first_name, last_name, birth_date, status, role, created_at
		FROM users
		ORDER BY created_at DESC
	`
	return c.scanUsers(ctx, q)
}

func (c *DatabaseClient) ListUsersByStatus(ctx context.Context, status string) ([]models.User, error) {
	const q = `
		SELECT id, telegram_id, first_name, last_name, birth_date, status, role, created_at
		FROM users
		WHERE status = $1
		ORDER BY created_at DESC
	`
	return c.scanUsers(ctx, q, status)
}

func (c *DatabaseClient) scanUsers(ctx context.Context, q string, args ...any) ([]models.User, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.BirthDate, &u.Status, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateUserStatus(ctx context.Context, telegramID int64, status string) error {
	const q = `
		UPDATE users SET status = $2 WHERE telegram_id = $1
	`
	res, err := c.db.ExecContext(ctx, q, telegramID, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %d", telegramID)
	}
	return nil
}

// Survey templates

func (c *DatabaseClient) CreateTemplate(ctx context.Context, tpl *models.SurveyTemplate) error {
	if tpl == nil {
		return errors.New("nil template")
	}
	questions, err := json.Marshal(tpl.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	const q = `
		INSERT INTO survey_templates (id, title, questions, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err = c.db.ExecContext(ctx, q, tpl.ID, tpl.Title, questions, tpl.CreatedAt)
	return err
}

func (c *DatabaseClient) GetTemplateByID(ctx context.Context, id string) (*models.SurveyTemplate, error) {
	const q = `
		SELECT id, title, questions, created_at
		FROM survey_templates WHERE id = $1
	`
	var (
		t   models.SurveyTemplate
		raw []byte
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Title, &raw, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &t.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &t, nil
}

func (c *DatabaseClient) ListTemplates(ctx context.Context) ([]models.SurveyTemplate, error) {
	const q = `
		SELECT id, title, questions, created_at
		FROM survey_templates
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

func scanTemplates(rows *sql.Rows) ([]models.SurveyTemplate, error) {
	var out []models.SurveyTemplate
	for rows.Next() {
		var (
			t   models.SurveyTemplate
			raw []byte
		)
		if err := rows.Scan(&t.ID, &t.Title, &raw, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Assignments

// CreateAssignment relies on the partial unique index on incomplete
// (user_id, template_id) pairs, so a concurrent duplicate insert is refused
// by the storage layer rather than by a check-then-act read.
func (c *DatabaseClient) CreateAssignment(ctx context.Context, a *models.SurveyAssignment) (bool, error) {
	if a == nil {
		return false, errors.New("nil assignment")
	}
	const q = `
		INSERT INTO survey_assignments (id, user_id, template_id, assigned_at, completed)
		VALUES ($1, $2, $3, COALESCE($4, now()), FALSE)
		ON CONFLICT DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q, a.ID, a.UserID, a.TemplateID, a.AssignedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (c *DatabaseClient) GetAssignmentByID(ctx context.Context, id string) (*models.SurveyAssignment, error) {
	const q = `
		SELECT id, user_id, template_id, assigned_at, completed, completed_at
		FROM survey_assignments WHERE id = $1
	`
	var a models.SurveyAssignment
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.UserID, &a.TemplateID, &a.AssignedAt, &a.Completed, &a.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *DatabaseClient) ListOpenAssignmentsByUser(ctx context.Context, telegramID int64) ([]models.AssignedSurvey, error) {
	const q = `
		SELECT a.id, t.id, t.title
		FROM survey_assignments a
		JOIN survey_templates t ON t.id = a.template_id
		WHERE a.user_id = $1 AND NOT a.completed
		ORDER BY a.assigned_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, telegramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AssignedSurvey
	for rows.Next() {
		var s models.AssignedSurvey
		if err := rows.Scan(&s.AssignmentID, &s.TemplateID, &s.Title); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CompleteAssignment(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE survey_assignments
		SET completed = TRUE, completed_at = $2
		WHERE id = $1 AND NOT completed
	`
	res, err := c.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("assignment not found or already completed: %s", id)
	}
	return nil
}

// Responses

func (c *DatabaseClient) CreateResponse(ctx context.Context, resp *models.Response) error {
	if resp == nil {
		return errors.New("nil response")
	}
	const q = `
		INSERT INTO responses (id, user_id, assignment_id, template_id, question, answer, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		resp.ID, resp.UserID, resp.AssignmentID, resp.TemplateID, resp.Question, resp.Answer, resp.Type, resp.CreatedAt)
	return err
}

func (c *DatabaseClient) ListResponsesByTemplate(ctx context.Context, templateID string) ([]models.Response, error) {
	const q = `
		SELECT id, user_id, assignment_id, template_id, question, answer, type, created_at
		FROM responses
		WHERE template_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.AssignmentID, &r.TemplateID, &r.Question, &r.Answer, &r.Type, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Schedules

func (c *DatabaseClient) CreateSchedule(ctx context.Context, entry *models.ScheduleEntry) error {
	if entry == nil {
		return errors.New("nil schedule entry")
	}
	const q = `
		INSERT INTO scheduled_surveys (id, user_id, template_id, recurrence, next_run, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		entry.ID, entry.UserID, entry.TemplateID, entry.Recurrence, entry.NextRun, entry.CreatedAt)
	return err
}

func (c *DatabaseClient) ListSchedules(ctx context.Context) ([]models.ScheduleEntry, error) {
	const q = `
		SELECT id, user_id, template_id, recurrence, next_run, created_at
		FROM scheduled_surveys
		ORDER BY next_run ASC
	`
	return c.scanSchedules(ctx, q)
}

func (c *DatabaseClient) ListDueSchedules(ctx context.Context, now time.Time) ([]models.ScheduleEntry, error) {
	const q = `
		SELECT id, user_id, template_id, recurrence, next_run, created_at
		FROM scheduled_surveys
		WHERE next_run <= $1
		ORDER BY next_run ASC
	`
	return c.scanSchedules(ctx, q, now)
}

func (c *DatabaseClient) scanSchedules(ctx context.Context, q string, args ...any) ([]models.ScheduleEntry, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.TemplateID, &e.Recurrence, &e.NextRun, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateScheduleNextRun(ctx context.Context, id string, nextRun time.Time) error {
	const q = `
		UPDATE scheduled_surveys SET next_run = $2 WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, nextRun)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("schedule not found: %s", id)
	}
	return nil
}

// Statuses

func (c *DatabaseClient) CreateStatus(ctx context.Context, name string) error {
	const q = `
		INSERT INTO statuses (name, created_at)
		VALUES ($1, now())
		ON CONFLICT (name) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, name)
	return err
}

func (c *DatabaseClient) ListStatuses(ctx context.Context) ([]models.StatusDefinition, error) {
	const q = `
		SELECT name, created_at FROM statuses ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatusDefinition
	for rows.Next() {
		var s models.StatusDefinition
		if err := rows.Scan(&s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CreateStatusMapping(ctx context.Context, m *models.StatusSurveyMapping) (bool, error) {
	if m == nil {
		return false, errors.New("nil status mapping")
	}
	const q = `
		INSERT INTO survey_status (status_name, template_id, assigned_at)
		VALUES ($1, $2, COALESCE($3, now()))
		ON CONFLICT (status_name, template_id) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q, m.StatusName, m.TemplateID, m.AssignedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (c *DatabaseClient) ListTemplatesForStatus(ctx context.Context, status string) ([]models.SurveyTemplate, error) {
	const q = `
		SELECT t.id, t.title, t.questions, t.created_at
		FROM survey_status m
		JOIN survey_templates t ON t.id = m.template_id
		WHERE m.status_name = $1
		ORDER BY m.assigned_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// Admins

func (c *DatabaseClient) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if admin == nil {
		return errors.New("nil admin")
	}
	const q = `
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err := c.db.ExecContext(ctx, q, admin.ID, admin.Email, admin.PasswordHash, admin.CreatedAt)
	return err
}

func (c *DatabaseClient) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM admins WHERE email = $1
	`
	var a models.Admin
	err := c.db.QueryRowContext(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
