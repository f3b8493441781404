package catalog

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/certprep/backend/internal/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers catalog endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/exams", h.ListExams).Methods("GET")
	protected.HandleFunc("/exams/{examID}/versions", h.ListVersions).Methods("GET")
	protected.HandleFunc("/versions/{versionID}/subjects", h.ListSubjects).Methods("GET")
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.service.ListExams(r.Context())
	if err != nil {
		log.Printf("[handler] ListExams error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load exams"})
		return
	}
	if exams == nil {
		exams = []models.Exam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	examID := mux.Vars(r)["examID"]

	versions, err := h.service.ListVersions(r.Context(), examID)
	if err != nil {
		log.Printf("[handler] ListVersions error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load exam versions"})
		return
	}
	if versions == nil {
		versions = []models.ExamVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	versionID := mux.Vars(r)["versionID"]

	if _, err := h.service.GetVersion(r.Context(), versionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Exam version not found"})
			return
		}
		log.Printf("[handler] ListSubjects error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load subjects"})
		return
	}

	subjects, err := h.service.SubjectsForVersion(r.Context(), versionID)
	if err != nil {
		log.Printf("[handler] ListSubjects error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load subjects"})
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
