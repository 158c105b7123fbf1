package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/Surveya/internal/models"
)

// fakeMessenger records every outbound message.
type fakeMessenger struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
}

type sentMessage struct {
	ChatID  int64
	Text    string
	Buttons []Button
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string, buttons ...Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, sentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return nil
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sends) == 0 {
		return sentMessage{}
	}
	return f.sends[len(f.sends)-1]
}

func (f *fakeMessenger) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sends {
		if strings.Contains(s.Text, substr) {
			return true
		}
	}
	return false
}

// memStore is an in-memory stand-in for the persistence gateway slices the
// conversational core consumes.
type memStore struct {
	mu          sync.Mutex
	users       []*models.User
	templates   map[string]*models.SurveyTemplate
	assignments map[string]*models.SurveyAssignment
	responses   []*models.Response

	createUserErr     error
	createResponseErr error
}

func newMemStore() *memStore {
	return &memStore{
		templates:   make(map[string]*models.SurveyTemplate),
		assignments: make(map[string]*models.SurveyAssignment),
	}
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createUserErr != nil {
		return s.createUserErr
	}
	u := *user
	s.users = append(s.users, &u)
	return nil
}

func (s *memStore) GetUserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListOpenAssignmentsByUser(_ context.Context, telegramID int64) ([]models.AssignedSurvey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AssignedSurvey
	for _, a := range s.assignments {
		if a.UserID != telegramID || a.Completed {
			continue
		}
		title := ""
		if t, ok := s.templates[a.TemplateID]; ok {
			title = t.Title
		}
		out = append(out, models.AssignedSurvey{
			AssignmentID: a.ID,
			TemplateID:   a.TemplateID,
			Title:        title,
		})
	}
	return out, nil
}

func (s *memStore) GetAssignmentByID(_ context.Context, id string) (*models.SurveyAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, nil
	}
	copy := *a
	return &copy, nil
}

func (s *memStore) GetTemplateByID(_ context.Context, id string) (*models.SurveyTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	copy := *t
	return &copy, nil
}

func (s *memStore) CreateResponse(_ context.Context, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createResponseErr != nil {
		return s.createResponseErr
	}
	r := *resp
	s.responses = append(s.responses, &r)
	return nil
}

func (s *memStore) CompleteAssignment(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok || a.Completed {
		return errors.New("assignment not found or already completed")
	}
	a.Completed = true
	a.CompletedAt = &at
	return nil
}

func (s *memStore) addTemplate(id, title string, questions ...models.Question) {
	s.templates[id] = &models.SurveyTemplate{
		ID: id, Title: title, Questions: questions, CreatedAt: time.Now(),
	}
}

func (s *memStore) addAssignment(id string, userID int64, templateID string) {
	s.assignments[id] = &models.SurveyAssignment{
		ID: id, UserID: userID, TemplateID: templateID, AssignedAt: time.Now(),
	}
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
