package web

// Errors are logged with their technical detail and the request ID, then
// sent as a core.UserMessage: JSON for API clients, an alert page for
// browsers.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/loader"
	"github.com/JonMunkholm/binfilter/internal/logging"
	"github.com/JonMunkholm/binfilter/internal/web/templates"
)

var (
	errNoFile       = errors.New("no file provided")
	errInvalidBody  = errors.New("invalid request body")
	errInvalidPage  = errors.New("invalid page")
	errInvalidQuery = errors.New("invalid query parameter")
	errRateLimited  = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every API error. Detail carries the
// technical error for client errors only.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

func newErrorResponse(msg core.UserMessage, detail error) ErrorResponse {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if detail != nil {
		resp.Detail = detail.Error()
	}
	return resp
}

// statusFor maps known errors to a status code, or returns fallback.
func statusFor(err error, fallback int) int {
	var readErr *loader.ReadError
	switch {
	case errors.Is(err, core.ErrNoData),
		errors.Is(err, bins.ErrColumnNotFound),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidPage),
		errors.Is(err, errInvalidQuery),
		errors.Is(err, loader.ErrEmptyFile),
		errors.As(err, &readErr):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return fallback
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		page := templates.Page("BIN Filter", templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
		if rerr := page.Render(r.Context(), w); rerr != nil {
			log.Error("render error page", "error", rerr)
		}
		return
	}

	var detail error
	if status < http.StatusInternalServerError {
		detail = err
	}
	writeJSON(w, r, status, newErrorResponse(msg, detail))
}

// wantsHTML reports whether the client asked for HTML over JSON, which
// is what a browser following a link does.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
