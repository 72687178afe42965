package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/pkg/logger"
)

// Envelope is the uniform response body for every API call.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    interface{}        `json:"data,omitempty"`
	Error   *internal.AppError `json:"error,omitempty"`
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteSuccess wraps data in the success envelope.
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.WriteJSON(w, status, Envelope{Success: false, Message: message})
}

// HandleServiceError maps an error returned by a service to the envelope.
// Internal failures never expose their cause to the client.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.From(r.Context())

	appErr, ok := internal.IsAppError(err)
	if !ok {
		log.Error("unhandled service error", "path", r.URL.Path, "error", err)
		appErr = internal.NewInternalError("Internal server error", err)
	}

	if appErr.Type == internal.ErrorTypeInternal {
		log.Error("internal error", "path", r.URL.Path, "error", appErr)
		safe := internal.NewInternalError("Internal server error", nil)
		h.WriteJSON(w, appErr.StatusCode, Envelope{Success: false, Message: safe.Message, Error: safe})
		return
	}

	log.Warn("request failed", "path", r.URL.Path, "status", appErr.StatusCode, "code", appErr.Code, "message", appErr.Message)
	h.WriteJSON(w, appErr.StatusCode, Envelope{
		Success: false,
		Message: appErr.GetDetailedMessage(),
		Error:   appErr,
	})
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return internal.NewValidationError("request body is required", internal.ErrCodeValidationFailed)
		}
		return internal.NewValidationError("invalid request body: "+err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}

	return strings.TrimSpace(authHeader[7:])
}

// Principal returns the authenticated caller or writes a 401 and reports false.
func (h *BaseHandler) Principal(w http.ResponseWriter, r *http.Request) (*internal.Principal, bool) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, r, internal.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}

// Tenant resolves the principal and the company the request is scoped to. Platform principals
// pass ?company=<id>.
func (h *BaseHandler) Tenant(w http.ResponseWriter, r *http.Request) (*internal.Principal, string, bool) {
	p, ok := h.Principal(w, r)
	if !ok {
		return nil, "", false
	}
	companyID, err := p.TenantID(r.URL.Query().Get("company"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return nil, "", false
	}
	return p, companyID, true
}
