package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers pass the raw error to respondError. The error is mapped
// through core.MapError for the user-facing message and code, logged
// with full technical detail and the request id for correlation, and
// written as JSON with an HTTP status derived from the code.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parttrace/kicadbridge/internal/core"
)

// ErrorResponse is the JSON structure for API error responses. Code is
// the machine-readable entry in the error taxonomy; Message and Action
// are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped
// user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusForCode(userMsg.Code)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	// An upload without a file part is "nothing to do", not a failure.
	// The desktop plugin answered it with an empty 204.
	if status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusForCode maps the error taxonomy to HTTP statuses. Codes without
// an explicit mapping fall back by prefix: configuration, file and
// validation problems are the client's to fix, everything else is ours.
func statusForCode(code string) int {
	switch code {
	case "IMP001":
		return http.StatusNoContent
	case "IMP002", "IMP004":
		return http.StatusConflict
	case "IMP003", "RATE001":
		return http.StatusTooManyRequests
	case "IMP005", "RES001":
		return http.StatusNotFound
	case "FILE004":
		return http.StatusRequestEntityTooLarge
	case "VAL001":
		return http.StatusBadRequest
	case "DB001", "DB004":
		return http.StatusServiceUnavailable
	case "DB002":
		return http.StatusConflict
	case "DB003":
		return http.StatusGatewayTimeout
	}

	switch {
	case strings.HasPrefix(code, "CFG"),
		strings.HasPrefix(code, "FILE"),
		strings.HasPrefix(code, "VAL"):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
