package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/bot"
	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/models"
)

// SurveyService owns assignment orchestration shared by the admin API, the
// scheduler poller and status changes.
type SurveyService struct {
	db        db.DbClient
	messenger bot.Messenger
	log       *zap.SugaredLogger
}

func NewSurveyService(dbclient db.DbClient, messenger bot.Messenger, log *zap.SugaredLogger) *SurveyService {
	return &SurveyService{db: dbclient, messenger: messenger, log: log}
}

// AssignToUser idempotently gives a user an incomplete assignment for the
// template and notifies them when a new one was actually created. The
// storage layer enforces the at-most-one-incomplete invariant.
func (s *SurveyService) AssignToUser(ctx context.Context, userID int64, templateID string) (bool, error) {
	created, err := s.db.CreateAssignment(ctx, &models.SurveyAssignment{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: templateID,
		AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("assign template %s to user %d: %w", templateID, userID, err)
	}
	if !created {
		return false, nil
	}

	if err := s.messenger.SendText(ctx, userID,
		"You have a new survey to take. Please use the /start command."); err != nil {
		// The assignment stands; the user will see it on their next /start.
		s.log.Warnw("assignment notification failed", "user_id", userID, "error", err)
	}
	return true, nil
}

// AssignTemplateToStatus maps a template to a status cohort and
// retroactively assigns it to every current member. Per-user failures are
// collected but do not stop the batch.
func (s *SurveyService) AssignTemplateToStatus(ctx context.Context, status, templateID string) error {
	created, err := s.db.CreateStatusMapping(ctx, &models.StatusSurveyMapping{
		StatusName: status,
		TemplateID: templateID,
		AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("map template %s to status %q: %w", templateID, status, err)
	}
	if !created {
		return nil
	}

	users, err := s.db.ListUsersByStatus(ctx, status)
	if err != nil {
		return fmt.Errorf("list users with status %q: %w", status, err)
	}

	var failed []string
	for _, u := range users {
		if _, err := s.AssignToUser(ctx, u.TelegramID, templateID); err != nil {
			s.log.Errorw("retroactive assignment failed", "user_id", u.TelegramID, "error", err)
			failed = append(failed, fmt.Sprint(u.TelegramID))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("assigning to status %q failed for users: %s", status, strings.Join(failed, ", "))
	}
	return nil
}

// ChangeUserStatus moves a user into a cohort and hands them every template
// mapped to it, then tells them what changed.
func (s *SurveyService) ChangeUserStatus(ctx context.Context, userID int64, status string) error {
	if err := s.db.UpdateUserStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("update status for user %d: %w", userID, err)
	}

	templates, err := s.db.ListTemplatesForStatus(ctx, status)
	if err != nil {
		return fmt.Errorf("list templates for status %q: %w", status, err)
	}
	titles := make([]string, 0, len(templates))
	for _, t := range templates {
		if _, err := s.AssignToUser(ctx, userID, t.ID); err != nil {
			s.log.Errorw("status assignment failed", "user_id", userID, "template_id", t.ID, "error", err)
			continue
		}
		titles = append(titles, t.Title)
	}

	body := fmt.Sprintf("Your status has been changed to %q.", status)
	if len(titles) > 0 {
		body += " You have been assigned the following surveys: " + strings.Join(titles, ", ")
	}
	if err := s.messenger.SendText(ctx, userID, body); err != nil {
		s.log.Warnw("status notification failed", "user_id", userID, "error", err)
	}
	return nil
}

// ScheduleForUser creates a recurring schedule entry; the first firing is at
// startDate.
func (s *SurveyService) ScheduleForUser(ctx context.Context, userID int64, templateID string, recurrence models.Recurrence, startDate time.Time) error {
	if !recurrence.Valid() {
		return fmt.Errorf("unsupported recurrence %q", recurrence)
	}
	tpl, err := s.db.GetTemplateByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("load template %s: %w", templateID, err)
	}
	if tpl == nil {
		return fmt.Errorf("template %s does not exist", templateID)
	}

	return s.db.CreateSchedule(ctx, &models.ScheduleEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: templateID,
		Recurrence: recurrence,
		NextRun:    startDate,
		CreatedAt:  time.Now().UTC(),
	})
}

// ScheduleForStatus creates one schedule entry per current member of the
// status cohort.
func (s *SurveyService) ScheduleForStatus(ctx context.Context, status, templateID string, recurrence models.Recurrence, startDate time.Time) error {
	users, err := s.db.ListUsersByStatus(ctx, status)
	if err != nil {
		return fmt.Errorf("list users with status %q: %w", status, err)
	}
	var errs []error
	for _, u := range users {
		if err := s.ScheduleForUser(ctx, u.TelegramID, templateID, recurrence, startDate); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
