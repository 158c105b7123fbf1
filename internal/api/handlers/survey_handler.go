package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/models"
	"github.com/markdave123-py/Surveya/internal/services"
)

// SurveyHandler serves template authoring, direct assignment and response
// analytics for the admin console.
type SurveyHandler struct {
	dbclient  db.DbClient
	surveys   *services.SurveyService
	analytics *services.AnalyticsService
}

func NewSurveyHandler(dbclient db.DbClient, surveys *services.SurveyService, analytics *services.AnalyticsService) *SurveyHandler {
	return &SurveyHandler{dbclient: dbclient, surveys: surveys, analytics: analytics}
}

type createTemplateRequest struct {
	Title     string            `json:"title"`
	Questions []models.Question `json:"questions"`
}

func (h *SurveyHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || len(req.Questions) == 0 {
		http.Error(w, "title and at least one question required", http.StatusBadRequest)
		return
	}
	for _, q := range req.Questions {
		if q.Text == "" || (q.Type != models.QuestionCSI && q.Type != models.QuestionOpen) {
			http.Error(w, "question needs text and type csi|open", http.StatusBadRequest)
			return
		}
	}

	tpl := &models.SurveyTemplate{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Questions: req.Questions,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.dbclient.CreateTemplate(r.Context(), tpl); err != nil {
		http.Error(w, "failed to store template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

func (h *SurveyHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.dbclient.ListTemplates(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(templates)
}

type assignRequest struct {
	UserID     int64  `json:"user_id"`
	TemplateID string `json:"template_id"`
}

// Assign gives one user an incomplete assignment for a template. Repeating
// the call before completion is a no-op.
func (h *SurveyHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 || req.TemplateID == "" {
		http.Error(w, "user_id and template_id required", http.StatusBadRequest)
		return
	}

	created, err := h.surveys.AssignToUser(r.Context(), req.UserID, req.TemplateID)
	if err != nil {
		http.Error(w, "failed to assign survey", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"created": created})
}

func (h *SurveyHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	responses, err := h.dbclient.ListResponsesByTemplate(r.Context(), templateID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func (h *SurveyHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	summary, err := h.analytics.Summary(r.Context(), templateID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if summary == nil {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
