package db

import (
	"context"
	"time"

	"github.com/markdave123-py/Surveya/internal/models"
)

// DbClient defines all persistence operations the bot, poller and admin API
// need. It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByStatus(ctx context.Context, status string) ([]models.User, error)
	UpdateUserStatus(ctx context.Context, telegramID int64, status string) error

	CreateTemplate(ctx context.Context, tpl *models.SurveyTemplate) error
	GetTemplateByID(ctx context.Context, id string) (*models.SurveyTemplate, error)
	ListTemplates(ctx context.Context) ([]models.SurveyTemplate, error)

	// CreateAssignment inserts a new incomplete assignment unless one already
	// exists for the same (user, template) pair. It reports whether a row was
	// actually inserted.
	CreateAssignment(ctx context.Context, a *models.SurveyAssignment) (bool, error)
	GetAssignmentByID(ctx context.Context, id string) (*models.SurveyAssignment, error)
	ListOpenAssignmentsByUser(ctx context.Context, telegramID int64) ([]models.AssignedSurvey, error)
	CompleteAssignment(ctx context.Context, id string, at time.Time) error

	CreateResponse(ctx context.Context, resp *models.Response) error
	ListResponsesByTemplate(ctx context.Context, templateID string) ([]models.Response, error)

	CreateSchedule(ctx context.Context, entry *models.ScheduleEntry) error
	ListSchedules(ctx context.Context) ([]models.ScheduleEntry, error)
	ListDueSchedules(ctx context.Context, now time.Time) ([]models.ScheduleEntry, error)
	UpdateScheduleNextRun(ctx context.Context, id string, nextRun time.Time) error

	CreateStatus(ctx context.Context, name string) error
	ListStatuses(ctx context.Context) ([]models.StatusDefinition, error)
	CreateStatusMapping(ctx context.Context, m *models.StatusSurveyMapping) (bool, error)
	ListTemplatesForStatus(ctx context.Context, status string) ([]models.SurveyTemplate, error)

	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)

	Close() error
}
