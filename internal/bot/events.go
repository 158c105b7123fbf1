package bot

import (
	"strconv"
	"strings"
)

// EventKind classifies an inbound update from the chat transport.
type EventKind int

const (
	EventStart EventKind = iota // /start command
	EventCallback               // button press
	EventText                   // free-text message
)

// CallbackAction is the decoded intent of a button press. Callback payloads
// are parsed exactly once, at the transport boundary, so the router and the
// state machines only ever see typed actions.
type CallbackAction int

const (
	ActionUnknown CallbackAction = iota
	ActionRegister
	ActionAcceptPersonalData
	ActionDeclinePersonalData
	ActionStartSurvey
	ActionCSIAnswer
	ActionContactAdmin
)

// Event is one inbound chat event, already decoded.
type Event struct {
	ChatID int64
	Kind   EventKind

	// Text carries the message body for EventText.
	Text string

	// Callback fields, set for EventCallback only.
	Action       CallbackAction
	AssignmentID string // ActionStartSurvey
	Rating       int    // ActionCSIAnswer, guaranteed 1..5
}

const (
	payloadRegister     = "register"
	payloadAccept       = "accept_personal_data"
	payloadDecline      = "decline_personal_data"
	payloadContactAdmin = "contact_admin"
	payloadSurveyPrefix = "start_survey_"
	payloadCSIPrefix    = "csi_answer_"
)

// DecodeCallback turns a raw callback payload into a typed event. Anything
// that does not match a known payload, including a csi rating outside 1..5,
// decodes to ActionUnknown.
func DecodeCallback(chatID int64, payload string) Event {
	ev := Event{ChatID: chatID, Kind: EventCallback, Action: ActionUnknown}

	switch {
	case payload == payloadRegister:
		ev.Action = ActionRegister
	case payload == payloadAccept:
		ev.Action = ActionAcceptPersonalData
	case payload == payloadDecline:
		ev.Action = ActionDeclinePersonalData
	case payload == payloadContactAdmin:
		ev.Action = ActionContactAdmin
	case strings.HasPrefix(payload, payloadSurveyPrefix):
		if id := strings.TrimPrefix(payload, payloadSurveyPrefix); id != "" {
			ev.Action = ActionStartSurvey
			ev.AssignmentID = id
		}
	case strings.HasPrefix(payload, payloadCSIPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(payload, payloadCSIPrefix))
		if err == nil && n >= 1 && n <= 5 {
			ev.Action = ActionCSIAnswer
			ev.Rating = n
		}
	}
	return ev
}

func surveyPayload(assignmentID string) string {
	return payloadSurveyPrefix + assignmentID
}

func csiPayload(rating int) string {
	return payloadCSIPrefix + strconv.Itoa(rating)
}
