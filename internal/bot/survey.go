package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/models"
)

// SurveyStore is the slice of the persistence gateway the survey flow needs.
type SurveyStore interface {
	GetAssignmentByID(ctx context.Context, id string) (*models.SurveyAssignment, error)
	GetTemplateByID(ctx context.Context, id string) (*models.SurveyTemplate, error)
	CreateResponse(ctx context.Context, resp *models.Response) error
	CompleteAssignment(ctx context.Context, id string, at time.Time) error
}

// SurveyMachine presents an assigned survey's questions one at a time,
// records answers and marks the assignment completed after the last one.
type SurveyMachine struct {
	db        SurveyStore
	messenger Messenger
	log       *zap.SugaredLogger
}

func NewSurveyMachine(db SurveyStore, messenger Messenger, log *zap.SugaredLogger) *SurveyMachine {
	return &SurveyMachine{db: db, messenger: messenger, log: log}
}

// Start enters the survey flow for an assignment. Resolution failures abort
// without touching session state.
func (m *SurveyMachine) Start(ctx context.Context, sess *Session, assignmentID string) error {
	tpl, _, err := m.resolve(ctx, sess.ChatID, assignmentID)
	if err != nil {
		return err
	}

	sess.Survey = &SurveyState{AssignmentID: assignmentID}
	return m.askNext(ctx, sess, tpl)
}

// HandleCSIAnswer records a rating answer for the current csi question.
// The router guarantees rating is within 1..5.
func (m *SurveyMachine) HandleCSIAnswer(ctx context.Context, sess *Session, rating int) error {
	return m.handleAnswer(ctx, sess, models.QuestionCSI, strconv.Itoa(rating))
}

// HandleOpenAnswer records a free-text answer for the current open question.
func (m *SurveyMachine) HandleOpenAnswer(ctx context.Context, sess *Session, text string) error {
	return m.handleAnswer(ctx, sess, models.QuestionOpen, text)
}

func (m *SurveyMachine) handleAnswer(ctx context.Context, sess *Session, kind models.QuestionType, answer string) error {
	state := sess.Survey
	if state == nil || state.Current == nil {
		// An answer arrived with no question on record; never drop it
		// silently.
		_ = m.messenger.SendText(ctx, sess.ChatID, "Something went wrong saving your answer.")
		return fmt.Errorf("answer without a current question: %w", ErrUnrecognized)
	}
	if state.Current.Type != kind {
		_ = m.messenger.SendText(ctx, sess.ChatID, "Something went wrong saving your answer.")
		return fmt.Errorf("answer type %s for %s question: %w", kind, state.Current.Type, ErrUnrecognized)
	}

	tpl, assignment, err := m.resolve(ctx, sess.ChatID, state.AssignmentID)
	if err != nil {
		return err
	}

	resp := &models.Response{
		ID:           uuid.NewString(),
		UserID:       sess.ChatID,
		AssignmentID: assignment.ID,
		TemplateID:   assignment.TemplateID,
		Question:     state.Current.Text,
		Answer:       answer,
		Type:         kind,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.db.CreateResponse(ctx, resp); err != nil {
		_ = m.messenger.SendText(ctx, sess.ChatID, "Something went wrong saving your answer. Please try again later.")
		return fmt.Errorf("save response for assignment %s: %v: %w", assignment.ID, err, ErrPersistence)
	}

	state.Step++
	state.Current = nil
	return m.askNext(ctx, sess, tpl)
}

// askNext renders the question at the current step, or finishes the survey
// when every question has been answered.
func (m *SurveyMachine) askNext(ctx context.Context, sess *Session, tpl *models.SurveyTemplate) error {
	state := sess.Survey

	if state.Step < len(tpl.Questions) {
		question := tpl.Questions[state.Step]
		state.Current = &question

		if question.Type == models.QuestionCSI {
			buttons := make([]Button, 0, 5)
			for i := 1; i <= 5; i++ {
				buttons = append(buttons, Button{Label: strconv.Itoa(i), Payload: csiPayload(i)})
			}
			return m.messenger.SendText(ctx, sess.ChatID, question.Text, buttons...)
		}
		return m.messenger.SendText(ctx, sess.ChatID, question.Text)
	}

	if err := m.db.CompleteAssignment(ctx, state.AssignmentID, time.Now().UTC()); err != nil {
		_ = m.messenger.SendText(ctx, sess.ChatID, "Something went wrong finishing the survey. Please try again later.")
		return fmt.Errorf("complete assignment %s: %v: %w", state.AssignmentID, err, ErrPersistence)
	}

	sess.ClearSurvey()
	return m.messenger.SendText(ctx, sess.ChatID, "Survey finished. Thank you for taking part!")
}

// resolve loads the assignment and its template. A missing or already
// completed assignment, or a missing template, aborts the flow.
func (m *SurveyMachine) resolve(ctx context.Context, chatID int64, assignmentID string) (*models.SurveyTemplate, *models.SurveyAssignment, error) {
	assignment, err := m.db.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		_ = m.messenger.SendText(ctx, chatID, "Could not load the survey. Please try again later.")
		return nil, nil, fmt.Errorf("load assignment %s: %v: %w", assignmentID, err, ErrPersistence)
	}
	if assignment == nil || assignment.Completed {
		_ = m.messenger.SendText(ctx, chatID, "Survey not found.")
		return nil, nil, fmt.Errorf("assignment %s: %w", assignmentID, ErrNotFound)
	}

	tpl, err := m.db.GetTemplateByID(ctx, assignment.TemplateID)
	if err != nil {
		_ = m.messenger.SendText(ctx, chatID, "Could not load the survey. Please try again later.")
		return nil, nil, fmt.Errorf("load template %s: %v: %w", assignment.TemplateID, err, ErrPersistence)
	}
	if tpl == nil {
		_ = m.messenger.SendText(ctx, chatID, "Survey not found.")
		return nil, nil, fmt.Errorf("template %s: %w", assignment.TemplateID, ErrNotFound)
	}
	return tpl, assignment, nil
}
