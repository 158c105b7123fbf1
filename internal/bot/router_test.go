package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Surveya/internal/models"
)

func TestDecodeCallback(t *testing.T) {
	cases := []struct {
		payload string
		want    Event
	}{
		{"register", Event{Action: ActionRegister}},
		{"accept_personal_data", Event{Action: ActionAcceptPersonalData}},
		{"decline_personal_data", Event{Action: ActionDeclinePersonalData}},
		{"contact_admin", Event{Action: ActionContactAdmin}},
		{"start_survey_abc", Event{Action: ActionStartSurvey, AssignmentID: "abc"}},
		{"start_survey_", Event{Action: ActionUnknown}},
		{"csi_answer_3", Event{Action: ActionCSIAnswer, Rating: 3}},
		{"csi_answer_1", Event{Action: ActionCSIAnswer, Rating: 1}},
		{"csi_answer_5", Event{Action: ActionCSIAnswer, Rating: 5}},
		{"csi_answer_0", Event{Action: ActionUnknown}},
		{"csi_answer_7", Event{Action: ActionUnknown}},
		{"csi_answer_x", Event{Action: ActionUnknown}},
		{"help", Event{Action: ActionUnknown}},
		{"", Event{Action: ActionUnknown}},
	}

	for _, tc := range cases {
		t.Run(tc.payload, func(t *testing.T) {
			got := DecodeCallback(7, tc.payload)
			require.Equal(t, int64(7), got.ChatID)
			require.Equal(t, EventCallback, got.Kind)
			require.Equal(t, tc.want.Action, got.Action)
			require.Equal(t, tc.want.AssignmentID, got.AssignmentID)
			require.Equal(t, tc.want.Rating, got.Rating)
		})
	}
}

func newRouterFixture(adminChatID int64) (*Router, *memStore, *fakeMessenger, *SessionStore) {
	store := newMemStore()
	messenger := &fakeMessenger{}
	log := testLogger()
	sessions := NewSessionStore()
	registration := NewRegistrationMachine(store, messenger, log)
	survey := NewSurveyMachine(store, messenger, log)
	router := NewRouter(sessions, registration, survey, store, messenger, adminChatID, log)
	return router, store, messenger, sessions
}

func registeredUser(store *memStore, telegramID int64) {
	store.users = append(store.users, &models.User{
		ID:         "u-1",
		TelegramID: telegramID,
		FirstName:  "Alice",
		LastName:   "Smith",
		Status:     "default",
		Role:       "user",
		CreatedAt:  time.Now(),
	})
}

func TestStartUnregisteredOffersRegistration(t *testing.T) {
	router, _, messenger, _ := newRouterFixture(0)

	router.Dispatch(context.Background(), Event{ChatID: 42, Kind: EventStart})

	msg := messenger.last()
	require.Contains(t, msg.Text, "not registered")
	require.Len(t, msg.Buttons, 1)
	require.Equal(t, payloadRegister, msg.Buttons[0].Payload)
}

func TestStartRegisteredListsOpenSurveys(t *testing.T) {
	router, store, messenger, _ := newRouterFixture(0)
	registeredUser(store, 42)
	store.addTemplate("tpl-1", "Weekly check",
		models.Question{Type: models.QuestionOpen, Text: "Q"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")

	router.Dispatch(context.Background(), Event{ChatID: 42, Kind: EventStart})

	msg := messenger.last()
	require.Len(t, msg.Buttons, 2)
	require.Equal(t, "Take survey: Weekly check", msg.Buttons[0].Label)
	require.Equal(t, "start_survey_asg-1", msg.Buttons[0].Payload)
	require.Equal(t, payloadContactAdmin, msg.Buttons[1].Payload)
}

func TestStartRegisteredNoSurveys(t *testing.T) {
	router, store, messenger, _ := newRouterFixture(0)
	registeredUser(store, 42)

	router.Dispatch(context.Background(), Event{ChatID: 42, Kind: EventStart})

	msg := messenger.last()
	require.Len(t, msg.Buttons, 2)
	require.Equal(t, "No surveys available", msg.Buttons[0].Label)
	require.Equal(t, payloadContactAdmin, msg.Buttons[1].Payload)
}

func TestOutOfRangeRatingLeavesStateUntouched(t *testing.T) {
	router, store, _, sessions := newRouterFixture(0)
	registeredUser(store, 42)
	store.addTemplate("tpl-1", "Ratings",
		models.Question{Type: models.QuestionCSI, Text: "Rate us"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")
	ctx := context.Background()

	router.Dispatch(ctx, DecodeCallback(42, "start_survey_asg-1"))
	sess := sessions.Ensure(42)
	require.NotNil(t, sess.Survey)
	require.Equal(t, 0, sess.Survey.Step)

	// A forged payload outside 1..5 decodes to ActionUnknown and must not
	// produce a response or move the survey forward.
	router.Dispatch(ctx, DecodeCallback(42, "csi_answer_7"))

	require.Empty(t, store.responses)
	require.Equal(t, 0, sess.Survey.Step)
	require.False(t, store.assignments["asg-1"].Completed)

	// The legitimate answer still works afterwards.
	router.Dispatch(ctx, DecodeCallback(42, "csi_answer_2"))
	require.Len(t, store.responses, 1)
	require.True(t, store.assignments["asg-1"].Completed)
}

func TestTextPrecedenceAdminOverSurvey(t *testing.T) {
	router, store, messenger, sessions := newRouterFixture(999)
	registeredUser(store, 42)
	store.addTemplate("tpl-1", "Open",
		models.Question{Type: models.QuestionOpen, Text: "Q"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")
	ctx := context.Background()

	router.Dispatch(ctx, DecodeCallback(42, "start_survey_asg-1"))
	router.Dispatch(ctx, DecodeCallback(42, "contact_admin"))

	router.Dispatch(ctx, Event{ChatID: 42, Kind: EventText, Text: "hello admin"})

	// The text went to the operator chat, not into the survey.
	require.Empty(t, store.responses)
	require.True(t, messenger.contains("Message from user 42:\nhello admin"))

	sess := sessions.Ensure(42)
	require.False(t, sess.AwaitingAdminMessage, "relay flag is one-shot")
	require.NotNil(t, sess.Survey, "survey stays in flight behind the relay")

	// The next text resumes the survey.
	router.Dispatch(ctx, Event{ChatID: 42, Kind: EventText, Text: "my answer"})
	require.Len(t, store.responses, 1)
	require.Equal(t, "my answer", store.responses[0].Answer)
}

func TestTextPrecedenceRegistrationOverSurvey(t *testing.T) {
	router, store, _, sessions := newRouterFixture(0)
	registeredUser(store, 42)
	store.addTemplate("tpl-1", "Open",
		models.Question{Type: models.QuestionOpen, Text: "Q"},
	)
	store.addAssignment("asg-1", 42, "tpl-1")
	ctx := context.Background()

	router.Dispatch(ctx, DecodeCallback(42, "start_survey_asg-1"))
	router.Dispatch(ctx, DecodeCallback(42, "register"))

	router.Dispatch(ctx, Event{ChatID: 42, Kind: EventText, Text: "Bob"})

	sess := sessions.Ensure(42)
	require.Equal(t, "Bob", sess.Registration.FirstName)
	require.Empty(t, store.responses, "text must not double as a survey answer")
}

func TestTextWithoutFlowFallsBack(t *testing.T) {
	router, _, messenger, _ := newRouterFixture(0)

	router.Dispatch(context.Background(), Event{ChatID: 42, Kind: EventText, Text: "hi"})

	require.True(t, messenger.contains("use the buttons"))
}

func TestUnknownCallbackAnswered(t *testing.T) {
	router, _, messenger, _ := newRouterFixture(0)

	router.Dispatch(context.Background(), DecodeCallback(42, "bogus"))

	require.True(t, messenger.contains("Action not recognized"))
}

func TestRelayWithoutAdminConfigured(t *testing.T) {
	router, _, messenger, _ := newRouterFixture(0)
	ctx := context.Background()

	router.Dispatch(ctx, DecodeCallback(42, "contact_admin"))
	router.Dispatch(ctx, Event{ChatID: 42, Kind: EventText, Text: "anyone there?"})

	require.True(t, messenger.contains("administrator is unavailable"))
}

func TestIdleSessionsAreDropped(t *testing.T) {
	router, _, _, sessions := newRouterFixture(0)

	router.Dispatch(context.Background(), Event{ChatID: 42, Kind: EventText, Text: "hi"})

	require.Nil(t, sessions.Get(42))
}
