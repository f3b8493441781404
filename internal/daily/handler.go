package daily

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/certprep/backend/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the daily question endpoint on the protected
// subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/daily", h.GetDailyQuestion).Methods("GET")
}

// RegisterAdminRoutes registers admin endpoints on the admin subrouter.
func (h *Handler) RegisterAdminRoutes(admin *mux.Router) {
	admin.HandleFunc("/daily/assign", h.AssignDailyQuestions).Methods("POST")
}

func (h *Handler) GetDailyQuestion(w http.ResponseWriter, r *http.Request) {
	versionID := r.URL.Query().Get("exam_version_id")
	if _, err := uuid.Parse(versionID); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "exam_version_id is required"})
		return
	}

	dq, err := h.service.Question(r.Context(), versionID)
	if errors.Is(err, models.ErrEmptyResult) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No question of the day is available for this exam"})
		return
	}
	if err != nil {
		log.Printf("[handler] GetDailyQuestion error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load the question of the day"})
		return
	}
	writeJSON(w, http.StatusOK, dq)
}

type assignRequest struct {
	Date string `json:"date"`
}

type assignResponse struct {
	Date     string `json:"date"`
	Assigned int    `json:"assigned"`
}

func (h *Handler) AssignDailyQuestions(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
			return
		}
	}
	if req.Date == "" {
		req.Date = h.service.Today()
	}

	n, err := h.service.AssignAll(r.Context(), req.Date)
	if errors.Is(err, ErrInvalidDate) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.Printf("[handler] AssignDailyQuestions error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to assign daily questions"})
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{Date: req.Date, Assigned: n})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
