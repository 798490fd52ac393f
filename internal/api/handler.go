// internal/api/handler.go
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/catalog"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
// Instead of relying on package-level globals, every handler method
// receives its dependencies through this struct.
type Handler struct {
	sessions *service.SessionService
	progress *service.ProgressService
	catalog  catalog.Store
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(sessions *service.SessionService, progress *service.ProgressService, cat catalog.Store, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		progress: progress,
		catalog:  cat,
		logger:   logger,
		validate: newValidator(),
	}
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ErrorResponse struct {
	Error string `json:"error" example:"session not found"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// decodeAndValidate decodes the JSON body into v and validates it.
// Returns false after writing a 400 response.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			respondError(w, http.StatusBadRequest, fe.Field()+" failed on "+fe.Tag())
			return false
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps engine and store errors to HTTP responses. Returns
// true if an error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}

	var pe *service.PersistenceError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, session.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrPoolEmpty):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrFetchFailed):
		respondError(w, http.StatusServiceUnavailable, "question pool unavailable, retry loading the session")
	case errors.Is(err, session.ErrInvalidAnswer), errors.Is(err, session.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrReportPending):
		respondError(w, http.StatusAccepted, err.Error())
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, entity+" already exists")
	case errors.As(err, &pe):
		respondError(w, http.StatusBadGateway, pe.Error())
	default:
		h.logger.Error("request failed", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
