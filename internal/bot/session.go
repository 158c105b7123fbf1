package bot

import (
	"sync"

	"github.com/markdave123-py/Surveya/internal/models"
)

// SurveyState tracks progress through one assigned survey. Step only ever
// increases and is bounded by the template's question count. Current holds a
// snapshot of the question awaiting an answer.
type SurveyState struct {
	AssignmentID string
	Step         int
	Current      *models.Question
}

// Session is the per-chat conversation scratchpad. It exists only while a
// user is mid-registration, mid-survey or composing an admin message; an
// absent session means idle. Not persisted across restarts.
type Session struct {
	ChatID int64

	Registration *RegistrationState
	Survey       *SurveyState

	// AwaitingAdminMessage flags that the next text message is relayed to
	// the operator. Takes precedence over any other in-flight flow.
	AwaitingAdminMessage bool

	// mu serializes event handling for this chat. Events for different
	// chats may be handled concurrently.
	mu sync.Mutex
}

// Idle reports whether the session carries no in-flight flow.
func (s *Session) Idle() bool {
	return s.Registration == nil && s.Survey == nil && !s.AwaitingAdminMessage
}

// ClearSurvey drops survey progress only, leaving other flags intact.
func (s *Session) ClearSurvey() {
	s.Survey = nil
}

// SessionStore keys sessions by chat id. It is passed into handlers rather
// than kept as ambient global state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the session for chatID, or nil when the user is idle.
func (st *SessionStore) Get(chatID int64) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[chatID]
}

// Ensure returns the session for chatID, creating an empty one if absent.
func (st *SessionStore) Ensure(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		s = &Session{ChatID: chatID}
		st.sessions[chatID] = s
	}
	return s
}

// Clear forgets the session for chatID entirely.
func (st *SessionStore) Clear(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}
