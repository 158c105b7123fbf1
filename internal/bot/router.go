package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/models"
)

// RouterStore is the slice of the persistence gateway the router needs for
// the /start greeting.
type RouterStore interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListOpenAssignmentsByUser(ctx context.Context, telegramID int64) ([]models.AssignedSurvey, error)
}

// Router dispatches decoded inbound events to the right flow. Free-text
// precedence: awaiting-admin-message, then registration, then survey, then a
// fallback prompt. The admin-contact flag wins so operator messages are
// never swallowed by another in-flight flow.
type Router struct {
	sessions     *SessionStore
	registration *RegistrationMachine
	survey       *SurveyMachine
	db           RouterStore
	messenger    Messenger
	adminChatID  int64
	log          *zap.SugaredLogger
}

func NewRouter(
	sessions *SessionStore,
	registration *RegistrationMachine,
	survey *SurveyMachine,
	db RouterStore,
	messenger Messenger,
	adminChatID int64,
	log *zap.SugaredLogger,
) *Router {
	return &Router{
		sessions:     sessions,
		registration: registration,
		survey:       survey,
		db:           db,
		messenger:    messenger,
		adminChatID:  adminChatID,
		log:          log,
	}
}

// Dispatch handles one inbound event to completion. It is the error
// boundary: every handler failure is logged and answered with a best-effort
// notification, and never propagates to the transport loop. Events for the
// same chat are serialized on the session lock.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	sess := r.sessions.Ensure(ev.ChatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err := r.dispatch(ctx, ev, sess)

	if sess.Idle() {
		r.sessions.Clear(ev.ChatID)
	}

	if err == nil {
		return
	}

	switch {
	case errors.Is(err, ErrUnrecognized):
		r.log.Debugw("unrecognized input", "chat_id", ev.ChatID, "error", err)
	case errors.Is(err, ErrNotFound):
		r.log.Infow("flow aborted", "chat_id", ev.ChatID, "error", err)
	default:
		r.log.Errorw("event handling failed", "chat_id", ev.ChatID, "error", err)
		_ = r.messenger.SendText(ctx, ev.ChatID, "An error occurred. Please try again later.")
	}
}

func (r *Router) dispatch(ctx context.Context, ev Event, sess *Session) error {
	switch ev.Kind {
	case EventStart:
		return r.handleStart(ctx, ev.ChatID)
	case EventCallback:
		return r.handleCallback(ctx, ev, sess)
	case EventText:
		return r.handleText(ctx, ev, sess)
	default:
		return fmt.Errorf("event kind %d: %w", ev.Kind, ErrUnrecognized)
	}
}

// handleStart greets a known user with their open surveys, or offers
// registration to a new one.
func (r *Router) handleStart(ctx context.Context, chatID int64) error {
	user, err := r.db.GetUserByTelegramID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("look up user %d: %v: %w", chatID, err, ErrPersistence)
	}

	if user == nil {
		return r.messenger.SendText(ctx, chatID,
			"Welcome! You are not registered yet. Please press the button below to register:",
			Button{Label: "Register", Payload: payloadRegister},
		)
	}

	surveys, err := r.db.ListOpenAssignmentsByUser(ctx, chatID)
	if err != nil {
		return fmt.Errorf("list surveys for %d: %v: %w", chatID, err, ErrPersistence)
	}

	buttons := make([]Button, 0, len(surveys)+1)
	for _, s := range surveys {
		buttons = append(buttons, Button{
			Label:   "Take survey: " + s.Title,
			Payload: surveyPayload(s.AssignmentID),
		})
	}
	if len(surveys) == 0 {
		buttons = append(buttons, Button{Label: "No surveys available", Payload: "help"})
	}
	buttons = append(buttons, Button{Label: "Contact an administrator", Payload: payloadContactAdmin})

	return r.messenger.SendText(ctx, chatID, "Welcome back! Pick an option:", buttons...)
}

func (r *Router) handleCallback(ctx context.Context, ev Event, sess *Session) error {
	switch ev.Action {
	case ActionRegister:
		return r.registration.Start(ctx, sess)

	case ActionAcceptPersonalData:
		return r.registration.HandleConsent(ctx, sess, true)

	case ActionDeclinePersonalData:
		return r.registration.HandleConsent(ctx, sess, false)

	case ActionStartSurvey:
		return r.survey.Start(ctx, sess, ev.AssignmentID)

	case ActionCSIAnswer:
		return r.survey.HandleCSIAnswer(ctx, sess, ev.Rating)

	case ActionContactAdmin:
		sess.AwaitingAdminMessage = true
		return r.messenger.SendText(ctx, ev.ChatID, "Please type your message for the administrator.")

	default:
		if err := r.messenger.SendText(ctx, ev.ChatID, "Action not recognized."); err != nil {
			return err
		}
		return fmt.Errorf("callback action: %w", ErrUnrecognized)
	}
}

func (r *Router) handleText(ctx context.Context, ev Event, sess *Session) error {
	switch {
	case sess.AwaitingAdminMessage:
		return r.relayToAdmin(ctx, ev, sess)
	case sess.Registration != nil:
		return r.registration.HandleText(ctx, sess, ev.Text)
	case sess.Survey != nil:
		return r.survey.HandleOpenAnswer(ctx, sess, ev.Text)
	default:
		return r.messenger.SendText(ctx, ev.ChatID, "Please use the buttons to interact with the bot.")
	}
}

// relayToAdmin forwards one message to the operator chat and clears the flag
// regardless of other in-flight flows.
func (r *Router) relayToAdmin(ctx context.Context, ev Event, sess *Session) error {
	sess.AwaitingAdminMessage = false

	if r.adminChatID == 0 {
		r.log.Warnw("admin chat not configured, dropping relay", "chat_id", ev.ChatID)
		return r.messenger.SendText(ctx, ev.ChatID, "The administrator is unavailable right now. Please try again later.")
	}

	body := fmt.Sprintf("Message from user %d:\n%s", ev.ChatID, ev.Text)
	if err := r.messenger.SendText(ctx, r.adminChatID, body); err != nil {
		return fmt.Errorf("relay to admin: %w", err)
	}
	return r.messenger.SendText(ctx, ev.ChatID, "Your message has been sent to the administrator.")
}
