// Package api exposes the engine over HTTP: POST /analyze, POST /approve/:id,
// POST /deny/:id, GET /status, GET /health (spec §6).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// ProblemDetail implements RFC 7807 for every non-2xx response this API
// returns, adapted from the teacher's api.WriteError family.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://clawsec.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, "Bad Request", detail)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusUnauthorized, "Unauthorized", detail)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusNotFound, "Not Found", detail)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "the HTTP method is not supported for this endpoint")
}

func writeTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	writeProblem(w, r, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded")
}

// writeInternal logs err but never exposes it to the client.
func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("internal server error", "error", err, "path", r.URL.Path)
	writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
}
