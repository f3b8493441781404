package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/certprep/backend/internal/catalog"
	"github.com/certprep/backend/internal/middleware"
	"github.com/certprep/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Handler struct {
	service  *Service
	hub      *Hub
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// sessionErrorResponse carries the session alongside a recoverable error so
// the client can offer a retry.
type sessionErrorResponse struct {
	Error   string              `json:"error"`
	Session *models.SessionView `json:"session,omitempty"`
}

// RegisterRoutes registers quiz endpoints on the protected subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/quiz/sessions", h.StartSession).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}", h.GetSession).Methods("GET")
	protected.HandleFunc("/quiz/sessions/{id}", h.EndSession).Methods("DELETE")
	protected.HandleFunc("/quiz/sessions/{id}/select", h.SelectAnswer).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/submit", h.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/advance", h.Advance).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/complete", h.Complete).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/retry", h.Retry).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/save", h.SaveResult).Methods("POST")
	protected.HandleFunc("/quiz/sessions/{id}/ws", h.Watch).Methods("GET")
}

// ── Session Lifecycle ───────────────────────────────────

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	req.ExamVersionID = catalog.NormalizeID(req.ExamVersionID)
	req.SubjectID = catalog.NormalizeID(req.SubjectID)
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "A valid quiz mode is required"})
		return
	}

	view, err := h.service.Start(r.Context(), userID, req)
	if err != nil {
		writeSessionError(w, "StartSession", err, view)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	view, err := h.service.Get(userID, mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, "GetSession", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if err := h.service.Teardown(userID, mux.Vars(r)["id"]); err != nil {
		writeSessionError(w, "EndSession", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	view, err := h.service.Retry(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, "Retry", err, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ── Answering ───────────────────────────────────────────

func (h *Handler) SelectAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SelectAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "option_id is required"})
		return
	}

	view, err := h.service.Select(userID, mux.Vars(r)["id"], req.OptionID)
	if err != nil {
		writeSessionError(w, "SelectAnswer", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "SubmitAnswer", func(userID, sessionID string) (*models.SessionView, error) {
		return h.service.Submit(userID, sessionID)
	})
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "Advance", func(userID, sessionID string) (*models.SessionView, error) {
		return h.service.Advance(r.Context(), userID, sessionID)
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "Complete", func(userID, sessionID string) (*models.SessionView, error) {
		return h.service.Complete(r.Context(), userID, sessionID)
	})
}

func (h *Handler) SaveResult(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "SaveResult", func(userID, sessionID string) (*models.SessionView, error) {
		return h.service.SaveResult(r.Context(), userID, sessionID)
	})
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, name string, op func(userID, sessionID string) (*models.SessionView, error)) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	view, err := op(userID, mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, name, err, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ── Live Countdown ──────────────────────────────────────

// Watch upgrades to a websocket that receives tick and completion events
// for the session, plus a snapshot of its state. The connection is
// registered before the snapshot is taken, so no event between the two is
// lost.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sessionID := mux.Vars(r)["id"]
	if _, err := h.service.Get(userID, sessionID); err != nil {
		writeSessionError(w, "Watch", err, nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(sessionID, conn)
	defer h.hub.RemoveConnection(sessionID, conn)

	view, err := h.service.Get(userID, sessionID)
	if err != nil {
		return
	}
	if err := h.hub.Send(sessionID, conn, Message{Type: MsgSnapshot, Data: view}); err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// ── Helpers ─────────────────────────────────────────────

func writeSessionError(w http.ResponseWriter, op string, err error, view *models.SessionView) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[handler] %s error: %v", op, err)
	}
	writeJSON(w, status, sessionErrorResponse{Error: msg, Session: view})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrFetchFailure):
		return http.StatusBadGateway, "Failed to load questions. Please try again."
	case errors.Is(err, models.ErrEmptyResult):
		return http.StatusNotFound, "No questions are available for this selection."
	case errors.Is(err, models.ErrPersistFailure):
		return http.StatusInternalServerError, "Your result could not be saved. Try saving again."
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionClosed):
		return http.StatusNotFound, "Quiz session not found"
	case errors.Is(err, ErrPremium):
		return http.StatusForbidden, "This quiz mode requires a premium subscription"
	case errors.Is(err, ErrNoExamSelected):
		return http.StatusBadRequest, "Select an exam version first"
	case errors.Is(err, ErrUnknownMode):
		return http.StatusBadRequest, "Unknown quiz mode"
	case errors.Is(err, ErrNoSelection):
		return http.StatusBadRequest, "Select an answer first"
	case errors.Is(err, ErrUnknownOption):
		return http.StatusBadRequest, "That option does not belong to this question"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNothingToSave):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
