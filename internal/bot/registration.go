package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/models"
)

// Registration dialogue states and transitions.
const (
	stateAwaitingName      = "awaiting_name"
	stateAwaitingSurname   = "awaiting_surname"
	stateAwaitingBirthDate = "awaiting_birth_date"
	stateAwaitingConsent   = "awaiting_consent"
	stateDone              = "done"

	eventNameEntered      = "name_entered"
	eventSurnameEntered   = "surname_entered"
	eventBirthDateEntered = "birth_date_entered"
	eventConsentAccepted  = "consent_accepted"
	eventConsentDeclined  = "consent_declined"
)

const birthDateLayout = "2006-01-02"

// RegistrationState holds the dialogue FSM plus the fields collected so far.
type RegistrationState struct {
	fsm       *fsm.FSM
	FirstName string
	LastName  string
	BirthDate time.Time
}

func newRegistrationState() *RegistrationState {
	return &RegistrationState{
		fsm: fsm.NewFSM(
			stateAwaitingName,
			fsm.Events{
				{Name: eventNameEntered, Src: []string{stateAwaitingName}, Dst: stateAwaitingSurname},
				{Name: eventSurnameEntered, Src: []string{stateAwaitingSurname}, Dst: stateAwaitingBirthDate},
				{Name: eventBirthDateEntered, Src: []string{stateAwaitingBirthDate}, Dst: stateAwaitingConsent},
				{Name: eventConsentAccepted, Src: []string{stateAwaitingConsent}, Dst: stateDone},
				{Name: eventConsentDeclined, Src: []string{stateAwaitingConsent}, Dst: stateDone},
			},
			fsm.Callbacks{},
		),
	}
}

// Step returns the current dialogue state name.
func (s *RegistrationState) Step() string {
	return s.fsm.Current()
}

// RegistrationStore is the slice of the persistence gateway the registration
// flow needs.
type RegistrationStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	ListOpenAssignmentsByUser(ctx context.Context, telegramID int64) ([]models.AssignedSurvey, error)
}

// RegistrationMachine drives the multi-turn registration dialogue:
// name -> surname -> birth date -> consent -> persist.
type RegistrationMachine struct {
	db        RegistrationStore
	messenger Messenger
	log       *zap.SugaredLogger
}

func NewRegistrationMachine(db RegistrationStore, messenger Messenger, log *zap.SugaredLogger) *RegistrationMachine {
	return &RegistrationMachine{db: db, messenger: messenger, log: log}
}

// Start begins the dialogue for this chat, replacing any stale progress.
func (m *RegistrationMachine) Start(ctx context.Context, sess *Session) error {
	sess.Registration = newRegistrationState()
	return m.messenger.SendText(ctx, sess.ChatID, "Please enter your first name:")
}

// HandleText advances the dialogue with one text message. Invalid input
// re-prompts without advancing.
func (m *RegistrationMachine) HandleText(ctx context.Context, sess *Session, text string) error {
	reg := sess.Registration
	if reg == nil {
		return fmt.Errorf("no registration in progress: %w", ErrUnrecognized)
	}

	text = strings.TrimSpace(text)

	switch reg.Step() {
	case stateAwaitingName:
		if text == "" {
			return m.messenger.SendText(ctx, sess.ChatID, "Please enter your first name:")
		}
		reg.FirstName = text
		_ = reg.fsm.Event(ctx, eventNameEntered)
		return m.messenger.SendText(ctx, sess.ChatID, "Please enter your last name:")

	case stateAwaitingSurname:
		if text == "" {
			return m.messenger.SendText(ctx, sess.ChatID, "Please enter your last name:")
		}
		reg.LastName = text
		_ = reg.fsm.Event(ctx, eventSurnameEntered)
		return m.messenger.SendText(ctx, sess.ChatID, "Please enter your birth date (YYYY-MM-DD):")

	case stateAwaitingBirthDate:
		birthDate, err := time.Parse(birthDateLayout, text)
		if err != nil {
			return m.messenger.SendText(ctx, sess.ChatID, "That doesn't look like a valid date. Please try again (YYYY-MM-DD).")
		}
		reg.BirthDate = birthDate
		_ = reg.fsm.Event(ctx, eventBirthDateEntered)
		return m.messenger.SendText(ctx, sess.ChatID,
			"Do you consent to the processing of your personal data?",
			Button{Label: "I agree", Payload: payloadAccept},
			Button{Label: "I do not agree", Payload: payloadDecline},
		)

	default:
		return m.messenger.SendText(ctx, sess.ChatID, "Please follow the bot's instructions.")
	}
}

// HandleConsent resolves the final binary choice. Accept persists the user
// and announces available surveys; decline persists nothing. Both paths end
// the flow.
func (m *RegistrationMachine) HandleConsent(ctx context.Context, sess *Session, accepted bool) error {
	reg := sess.Registration
	if reg == nil || reg.Step() != stateAwaitingConsent {
		return fmt.Errorf("consent event outside consent step: %w", ErrUnrecognized)
	}

	if !accepted {
		_ = reg.fsm.Event(ctx, eventConsentDeclined)
		sess.Registration = nil
		return m.messenger.SendText(ctx, sess.ChatID,
			"You declined the registration. We cannot continue without your consent.")
	}

	user := &models.User{
		ID:         uuid.NewString(),
		TelegramID: sess.ChatID,
		FirstName:  reg.FirstName,
		LastName:   reg.LastName,
		BirthDate:  reg.BirthDate,
		Status:     "default",
		Role:       "user",
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.db.CreateUser(ctx, user); err != nil {
		// Session stays at the consent step so the user may try again.
		_ = m.messenger.SendText(ctx, sess.ChatID, "Something went wrong saving your registration. Please try again later.")
		return fmt.Errorf("create user %d: %v: %w", sess.ChatID, err, ErrPersistence)
	}

	_ = reg.fsm.Event(ctx, eventConsentAccepted)
	sess.Registration = nil

	return m.announceSurveys(ctx, sess.ChatID)
}

// announceSurveys tells a freshly registered user what is waiting for them.
func (m *RegistrationMachine) announceSurveys(ctx context.Context, chatID int64) error {
	surveys, err := m.db.ListOpenAssignmentsByUser(ctx, chatID)
	if err != nil {
		m.log.Warnw("listing surveys after registration", "chat_id", chatID, "error", err)
		return m.messenger.SendText(ctx, chatID, "Registration complete! Welcome!")
	}
	if len(surveys) == 0 {
		return m.messenger.SendText(ctx, chatID,
			"Registration complete! There are no surveys for you yet; an administrator will add them soon.")
	}

	buttons := make([]Button, 0, len(surveys))
	for _, s := range surveys {
		buttons = append(buttons, Button{
			Label:   "Take survey: " + s.Title,
			Payload: surveyPayload(s.AssignmentID),
		})
	}
	return m.messenger.SendText(ctx, chatID,
		"Registration complete! Welcome! You have surveys available.", buttons...)
}
