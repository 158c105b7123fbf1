package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/models"
	"github.com/markdave123-py/Surveya/internal/services"
)

// ScheduleHandler serves recurring-survey scheduling for the admin console.
type ScheduleHandler struct {
	dbclient db.DbClient
	surveys  *services.SurveyService
}

func NewScheduleHandler(dbclient db.DbClient, surveys *services.SurveyService) *ScheduleHandler {
	return &ScheduleHandler{dbclient: dbclient, surveys: surveys}
}

type createScheduleRequest struct {
	UserID     int64             `json:"user_id,omitempty"`
	Status     string            `json:"status,omitempty"`
	TemplateID string            `json:"template_id"`
	Recurrence models.Recurrence `json:"recurrence"`
	StartDate  string            `json:"start_date"` // YYYY-MM-DD
}

// Create schedules a template for either one user or a whole status cohort.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.TemplateID == "" || !req.Recurrence.Valid() {
		http.Error(w, "template_id and recurrence daily|weekly|monthly required", http.StatusBadRequest)
		return
	}
	if (req.UserID == 0) == (req.Status == "") {
		http.Error(w, "exactly one of user_id or status required", http.StatusBadRequest)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if req.UserID != 0 {
		err = h.surveys.ScheduleForUser(r.Context(), req.UserID, req.TemplateID, req.Recurrence, startDate)
	} else {
		err = h.surveys.ScheduleForStatus(r.Context(), req.Status, req.TemplateID, req.Recurrence, startDate)
	}
	if err != nil {
		http.Error(w, "failed to create schedule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.dbclient.ListSchedules(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schedules)
}
