package selection

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/certprep/backend/internal/catalog"
	"github.com/certprep/backend/internal/middleware"
	"github.com/certprep/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// VersionChecker confirms an exam version exists and reports which
// subjects are linked to it.
type VersionChecker interface {
	GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error)
	SubjectsForVersion(ctx context.Context, versionID string) ([]models.Subject, error)
}

var ErrUnknownVersion = errors.New("exam version not found")

type Handler struct {
	store    Store
	catalog  VersionChecker
	validate *validator.Validate
}

func NewHandler(store Store, catalog VersionChecker) *Handler {
	return &Handler{store: store, catalog: catalog, validate: validator.New()}
}

// RegisterRoutes registers selection endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/selection", h.GetSelection).Methods("GET")
	protected.HandleFunc("/selection", h.SaveSelection).Methods("PUT")
}

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sel, err := h.store.Get(r.Context(), userID)
	if err != nil {
		log.Printf("[handler] GetSelection error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load selection"})
		return
	}
	if sel == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No exam selected yet"})
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// SaveSelection stores the user's exam version and optional subject. The
// subject must be linked to the version.
func (h *Handler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var sel models.Selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	sel.ExamVersionID = catalog.NormalizeID(sel.ExamVersionID)
	sel.SubjectID = catalog.NormalizeID(sel.SubjectID)
	if err := h.validate.Struct(sel); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "A valid exam_version_id is required"})
		return
	}

	if h.catalog != nil {
		version, err := h.catalog.GetVersion(r.Context(), sel.ExamVersionID)
		if err != nil || version == nil {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: ErrUnknownVersion.Error()})
			return
		}
		if sel.ExamID == "" {
			sel.ExamID = version.ExamID
		}
		if sel.HasSubject() && !h.subjectLinked(r.Context(), sel) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Subject is not part of this exam version"})
			return
		}
	}

	if err := h.store.Save(r.Context(), userID, sel); err != nil {
		log.Printf("[handler] SaveSelection error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save selection"})
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *Handler) subjectLinked(ctx context.Context, sel models.Selection) bool {
	subjects, err := h.catalog.SubjectsForVersion(ctx, sel.ExamVersionID)
	if err != nil {
		log.Printf("[handler] SaveSelection subjects error: %v", err)
		return false
	}
	for _, s := range subjects {
		if s.ID == sel.SubjectID {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
