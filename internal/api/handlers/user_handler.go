package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/services"
)

// UserHandler serves user listings and status management for the admin
// console.
type UserHandler struct {
	dbclient db.DbClient
	surveys  *services.SurveyService
}

func NewUserHandler(dbclient db.DbClient, surveys *services.SurveyService) *UserHandler {
	return &UserHandler{dbclient: dbclient, surveys: surveys}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.dbclient.ListUsers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves a user into a cohort; templates mapped to that status
// are assigned as a side effect.
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(chi.URLParam(r, "telegramID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status required", http.StatusBadRequest)
		return
	}

	if err := h.surveys.ChangeUserStatus(r.Context(), telegramID, req.Status); err != nil {
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createStatusRequest struct {
	Name string `json:"name"`
}

func (h *UserHandler) CreateStatus(w http.ResponseWriter, r *http.Request) {
	var req createStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if err := h.dbclient.CreateStatus(r.Context(), req.Name); err != nil {
		http.Error(w, "failed to create status", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *UserHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.dbclient.ListStatuses(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

type statusSurveyRequest struct {
	TemplateID string `json:"template_id"`
}

// AssignSurveyToStatus maps a template to a status and pushes it to every
// current member.
func (h *UserHandler) AssignSurveyToStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "name")

	var req statusSurveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemplateID == "" {
		http.Error(w, "template_id required", http.StatusBadRequest)
		return
	}

	if err := h.surveys.AssignTemplateToStatus(r.Context(), status, req.TemplateID); err != nil {
		http.Error(w, "failed to assign survey to status", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) ListStatusSurveys(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "name")
	templates, err := h.dbclient.ListTemplatesForStatus(r.Context(), status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(templates)
}
