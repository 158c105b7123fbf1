package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Surveya/internal/models"
)

func newSurveyFixture() (*SurveyMachine, *memStore, *fakeMessenger, *Session) {
	store := newMemStore()
	messenger := &fakeMessenger{}
	machine := NewSurveyMachine(store, messenger, testLogger())
	sess := &Session{ChatID: 42}
	return machine, store, messenger, sess
}

func TestSurveyFullRun(t *testing.T) {
	machine, store, messenger, sess := newSurveyFixture()
	ctx := context.Background()

	store.addTemplate("tpl-1", "Service check",
		models.Question{Type: models.QuestionCSI, Text: "Rate us"},
		models.Question{Type: models.QuestionOpen, Text: "Tell us more"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")

	require.NoError(t, machine.Start(ctx, sess, "asg-1"))
	require.NotNil(t, sess.Survey)
	require.Equal(t, 0, sess.Survey.Step)

	first := messenger.last()
	require.Equal(t, "Rate us", first.Text)
	require.Len(t, first.Buttons, 5)
	require.Equal(t, "csi_answer_1", first.Buttons[0].Payload)
	require.Equal(t, "csi_answer_5", first.Buttons[4].Payload)

	require.NoError(t, machine.HandleCSIAnswer(ctx, sess, 4))
	require.Len(t, store.responses, 1)
	require.Equal(t, "4", store.responses[0].Answer)
	require.Equal(t, models.QuestionCSI, store.responses[0].Type)
	require.Equal(t, "Rate us", store.responses[0].Question)
	require.False(t, store.assignments["asg-1"].Completed,
		"assignment completes only after the last answer")

	second := messenger.last()
	require.Equal(t, "Tell us more", second.Text)
	require.Empty(t, second.Buttons)

	require.NoError(t, machine.HandleOpenAnswer(ctx, sess, "Great service"))
	require.Len(t, store.responses, 2)
	require.Equal(t, "Great service", store.responses[1].Answer)
	require.Equal(t, models.QuestionOpen, store.responses[1].Type)

	require.True(t, store.assignments["asg-1"].Completed)
	require.NotNil(t, store.assignments["asg-1"].CompletedAt)
	require.Nil(t, sess.Survey, "survey scratchpad must be cleared on completion")
	require.True(t, messenger.contains("Thank you"))
}

func TestSurveyResponsesTagAssignment(t *testing.T) {
	machine, store, _, sess := newSurveyFixture()
	ctx := context.Background()

	store.addTemplate("tpl-1", "One question",
		models.Question{Type: models.QuestionOpen, Text: "Anything?"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")

	require.NoError(t, machine.Start(ctx, sess, "asg-1"))
	require.NoError(t, machine.HandleOpenAnswer(ctx, sess, "no"))

	require.Len(t, store.responses, 1)
	resp := store.responses[0]
	require.Equal(t, "asg-1", resp.AssignmentID)
	require.Equal(t, "tpl-1", resp.TemplateID)
	require.Equal(t, int64(42), resp.UserID)
}

func TestSurveyStartUnknownAssignment(t *testing.T) {
	machine, store, messenger, sess := newSurveyFixture()
	ctx := context.Background()

	err := machine.Start(ctx, sess, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, sess.Survey, "resolution failure must not mutate state")
	require.Empty(t, store.responses)
	require.True(t, messenger.contains("Survey not found"))
}

func TestSurveyStartCompletedAssignment(t *testing.T) {
	machine, store, _, sess := newSurveyFixture()
	ctx := context.Background()

	store.addTemplate("tpl-1", "Done already",
		models.Question{Type: models.QuestionOpen, Text: "Q"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")
	store.assignments["asg-1"].Completed = true

	err := machine.Start(ctx, sess, "asg-1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, sess.Survey)
}

func TestSurveyStartMissingTemplate(t *testing.T) {
	machine, _, messenger, sess := newSurveyFixture()
	ctx := context.Background()

	store := newMemStore()
	machine = NewSurveyMachine(store, messenger, testLogger())
	store.addAssignment("asg-1", 42, "tpl-gone")

	err := machine.Start(ctx, sess, "asg-1")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, sess.Survey)
}

func TestAnswerWithoutCurrentQuestion(t *testing.T) {
	machine, store, messenger, sess := newSurveyFixture()
	ctx := context.Background()

	err := machine.HandleCSIAnswer(ctx, sess, 3)
	require.ErrorIs(t, err, ErrUnrecognized)
	require.Empty(t, store.responses)
	require.True(t, messenger.contains("Something went wrong saving your answer"))
}

func TestAnswerKindMismatch(t *testing.T) {
	machine, store, _, sess := newSurveyFixture()
	ctx := context.Background()

	store.addTemplate("tpl-1", "Ratings only",
		models.Question{Type: models.QuestionCSI, Text: "Rate us"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")

	require.NoError(t, machine.Start(ctx, sess, "asg-1"))

	// Free text against a csi question is not a valid answer.
	err := machine.HandleOpenAnswer(ctx, sess, "five stars")
	require.ErrorIs(t, err, ErrUnrecognized)
	require.Empty(t, store.responses)
	require.Equal(t, 0, sess.Survey.Step)
}

func TestAnswerPersistFailureDoesNotAdvance(t *testing.T) {
	machine, store, _, sess := newSurveyFixture()
	ctx := context.Background()

	store.addTemplate("tpl-1", "One question",
		models.Question{Type: models.QuestionCSI, Text: "Rate us"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")
	require.NoError(t, machine.Start(ctx, sess, "asg-1"))

	store.createResponseErr = errors.New("db down")
	err := machine.HandleCSIAnswer(ctx, sess, 5)
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, 0, sess.Survey.Step)
	require.False(t, store.assignments["asg-1"].Completed)
}
