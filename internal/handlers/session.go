package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civiclearn/game-engine/internal/session"
	"github.com/civiclearn/game-engine/pkg/engine"
	"github.com/civiclearn/game-engine/pkg/manifest"
	"github.com/civiclearn/game-engine/pkg/state"
)

type SessionHandler struct {
	registry *session.Registry
	logger   *slog.Logger
}

func NewSessionHandler(registry *session.Registry, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger,
	}
}

// Routes mounts the session endpoints
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Post("/resume", h.handleResume)
		r.Post("/advance", h.handleAdvance)
		r.Post("/choose", h.handleChoose)
		r.Post("/answer", h.handleAnswer)
		r.Post("/back", h.handleBack)
		r.Post("/finalize", h.handleFinalize)
	})
}

type CreateSessionRequest struct {
	Manifest string `json:"manifest"`
}

type SessionResponse struct {
	State *state.GameState `json:"state"`
	Scene *manifest.Scene  `json:"scene,omitempty"`
}

type AnswerRequest struct {
	OptionIDs []string `json:"option_ids"`
}

type AnswerResponse struct {
	Outcome *engine.QuizOutcome `json:"outcome"`
	State   *state.GameState    `json:"state"`
	Scene   *manifest.Scene     `json:"scene,omitempty"`
}

type ChooseRequest struct {
	ChoiceID string `json:"choice_id"`
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := readJSON(r, &req); err != nil || req.Manifest == "" {
		writeError(w, h.logger, http.StatusBadRequest, "manifest filename is required")
		return
	}

	sess, err := h.registry.Create(r.Context(), req.Manifest)
	if err != nil {
		var verrs manifest.ValidationErrors
		if errors.As(err, &verrs) {
			// Session construction is refused for invalid manifests;
			// return the complete violation list for authoring feedback.
			writeJSON(w, h.logger, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":      "manifest validation failed",
				"violations": verrs,
			})
			return
		}
		h.logger.Error("Failed to create session", "manifest", req.Manifest, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, h.sessionResponse(sess))
}

func (h *SessionHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req CreateSessionRequest
	if err := readJSON(r, &req); err != nil || req.Manifest == "" {
		writeError(w, h.logger, http.StatusBadRequest, "manifest filename is required")
		return
	}

	sess, err := h.registry.Resume(r.Context(), id, req.Manifest)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "No snapshot found for session")
			return
		}
		if errors.Is(err, engine.ErrSessionEnded) {
			writeError(w, h.logger, http.StatusConflict, "Session already completed")
			return
		}
		h.logger.Error("Failed to resume session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resume session")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to remove session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to remove session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Advance(); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

func (h *SessionHandler) handleChoose(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ChooseRequest
	if err := readJSON(r, &req); err != nil || req.ChoiceID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "choice_id is required")
		return
	}
	if err := sess.Choose(req.ChoiceID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

func (h *SessionHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := sess.Submit(req.OptionIDs)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	resp := AnswerResponse{
		Outcome: outcome,
		State:   sess.State(),
	}
	if scene, err := sess.CurrentScene(); err == nil {
		resp.Scene = scene
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SessionHandler) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Back(); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.sessionResponse(sess))
}

func (h *SessionHandler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	results, err := sess.Finalize()
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, results)
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	sess, err := h.registry.Get(id)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) sessionResponse(sess *engine.Session) SessionResponse {
	resp := SessionResponse{State: sess.State()}
	if scene, err := sess.CurrentScene(); err == nil {
		resp.Scene = scene
	}
	return resp
}

// writeEngineError maps the engine's recoverable error taxonomy onto HTTP
// statuses. The failed operation was a no-op; state is intact.
func (h *SessionHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownChoice),
		errors.Is(err, engine.ErrInvalidSelection):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrIllegalTransition),
		errors.Is(err, engine.ErrNavigationDisabled),
		errors.Is(err, engine.ErrAttemptsExceeded),
		errors.Is(err, engine.ErrNotQuizScene),
		errors.Is(err, engine.ErrNotTerminal),
		errors.Is(err, engine.ErrSessionEnded):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrSceneNotFound):
		h.logger.Error("Scene missing from manifest at runtime", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Error("Unexpected engine error", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}
