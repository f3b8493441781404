package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/certprep/backend/internal/middleware"
	"github.com/certprep/backend/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SelectionReader returns the user's saved exam selection, or nil.
type SelectionReader interface {
	Get(ctx context.Context, userID string) (*models.Selection, error)
}

type Handler struct {
	service    *Service
	selections SelectionReader
}

func NewHandler(service *Service, selections SelectionReader) *Handler {
	return &Handler{service: service, selections: selections}
}

// RegisterRoutes registers statistics endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/stats", h.GetProgress).Methods("GET")
}

// GetProgress serves the progress aggregate. The exam version and subject
// come from the query string, falling back to the saved selection.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sel := models.Selection{
		ExamVersionID: r.URL.Query().Get("exam_version_id"),
		SubjectID:     r.URL.Query().Get("subject_id"),
	}
	if sel.ExamVersionID == "" && h.selections != nil {
		saved, err := h.selections.Get(r.Context(), userID)
		if err != nil {
			log.Printf("[handler] GetProgress selection error: %v", err)
			writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load stats."})
			return
		}
		if saved != nil {
			sel = *saved
		}
	}
	if sel.ExamVersionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Select an exam version first"})
		return
	}
	if !validID(sel.ExamVersionID) || (sel.SubjectID != "" && !validID(sel.SubjectID)) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid exam version or subject"})
		return
	}

	progress, err := h.service.Progress(r.Context(), userID, sel)
	if errors.Is(err, models.ErrFetchFailure) {
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load stats."})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
