package web

// errors.go maps failures to JSON error responses. The technical error is
// logged with the request id; the client gets the message, action and code
// from app.MapError.

import (
	"net/http"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/logging"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"run_id,omitempty"`
}

// statusForCode picks the HTTP status for an error code.
func statusForCode(code string) int {
	switch code {
	case "SRC001", "SRC002", "CLN001":
		return http.StatusUnprocessableEntity
	case "SRC003":
		return http.StatusNotFound
	case "LOAD001":
		return http.StatusServiceUnavailable
	case "LOAD002":
		return http.StatusBadGateway
	case "RUN001":
		return http.StatusConflict
	case "RUN002":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped message. A zero status is
// derived from the error code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int, runID string) {
	msg := app.MapError(err)
	if status == 0 {
		status = statusForCode(msg.Code)
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		RunID:   runID,
	})
}

// respondBadRequest writes a 400 for malformed input.
func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ001",
	})
}
